package core

import "github.com/dmchat/dmchat-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessageSent echoes a persisted message back to its sender.
	EventMessageSent EventKind = iota
	// EventIncomingMessage notifies an online receiver about a new message.
	EventIncomingMessage
	// EventHistory delivers a full conversation to the requester.
	EventHistory
)

// Event is pushed into a client's handle to describe what happened.
type Event struct {
	Kind    EventKind
	Message Message
	From    string // sender username, set on EventIncomingMessage
	History []*store.ConversationMessage
}

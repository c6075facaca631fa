package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	// InboundTypePrivateMessage delivers a message to another user.
	InboundTypePrivateMessage = "private_message"
	// InboundTypeHistory requests the conversation with another user.
	InboundTypeHistory = "history"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	// EventMessageSent acknowledges a persisted message to its sender.
	EventMessageSent = "message_sent"
	// EventMessage is a live push to an online receiver.
	EventMessage = "message"
	// EventHistory carries a full conversation, oldest first.
	EventHistory = "history"
)

// PrivateMessageData asks to deliver a message to another user.
type PrivateMessageData struct {
	ToUsername string `json:"toUsername"`
	Content    string `json:"content"`
}

// HistoryData requests the full conversation with another user.
type HistoryData struct {
	WithUsername string `json:"withUsername"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MessageSent echoes the persisted record back to the sender.
type MessageSent struct {
	ID         int64  `json:"id"`
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
}

// IncomingMessage notifies an online receiver about a new message.
type IncomingMessage struct {
	From      string `json:"from"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// HistoryEntry is one message of a conversation.
type HistoryEntry struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

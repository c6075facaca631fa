package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/dmchat/dmchat-server/internal/store"
)

// Router dispatches inbound events from authenticated connections. It
// resolves the sender from the presence registry, persists messages, echoes
// acks, and pushes live notifications to online receivers. Invalid events
// are dropped without a response; durable storage is the recovery path for
// anything not delivered live.
type Router struct {
	presence *Presence
	users    store.UserStore
	messages store.MessageStore
	log      *zerolog.Logger
}

// NewRouter constructs a router over the given registry and stores.
func NewRouter(presence *Presence, users store.UserStore, messages store.MessageStore, logger *zerolog.Logger) *Router {
	return &Router{
		presence: presence,
		users:    users,
		messages: messages,
		log:      logger,
	}
}

// Send handles a private message from connection c to the user named
// toUsername. The message is persisted first; once stored it is part of the
// conversation whether or not any live delivery succeeds. The sender always
// gets an ack echo, the receiver gets a push only while registered.
func (r *Router) Send(ctx context.Context, c *Client, toUsername, content string) {
	senderID, ok := r.presence.Owner(c)
	if !ok {
		r.log.Warn().Str("client_id", c.ID).Msg("send from unregistered connection dropped")
		return
	}

	if toUsername == "" || content == "" {
		r.log.Warn().Int64("sender_id", senderID).Msg("send with missing recipient or content dropped")
		return
	}

	receiver, err := r.users.GetUserByUsername(ctx, toUsername)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.log.Warn().Int64("sender_id", senderID).Str("to", toUsername).Msg("send to unknown recipient dropped")
		} else {
			r.log.Error().Err(err).Int64("sender_id", senderID).Str("to", toUsername).Msg("resolve recipient failed, send dropped")
		}
		return
	}

	msg := &store.Message{
		SenderID:   senderID,
		ReceiverID: receiver.ID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.messages.AppendMessage(ctx, msg); err != nil {
		r.log.Error().Err(err).Int64("sender_id", senderID).Int64("receiver_id", receiver.ID).Msg("persist message failed, send dropped")
		return
	}

	c.TrySend(&Event{Kind: EventMessageSent, Message: toDomain(msg)})

	recv := r.presence.Lookup(receiver.ID)
	if recv == nil {
		r.log.Debug().Int64("receiver_id", receiver.ID).Msg("receiver offline, stored only")
		return
	}

	senderName := "Unknown"
	if sender, err := r.users.GetUserByID(ctx, senderID); err == nil {
		senderName = sender.Username
	}
	if !recv.TrySend(&Event{Kind: EventIncomingMessage, From: senderName, Message: toDomain(msg)}) {
		r.log.Warn().Int64("receiver_id", receiver.ID).Msg("receiver event buffer full, live push dropped")
	}
}

// History delivers the full conversation between the owner of c and the
// user named withUsername back to c only. An unknown counterpart reads as
// "no conversation yet" and yields an empty history.
func (r *Router) History(ctx context.Context, c *Client, withUsername string) {
	senderID, ok := r.presence.Owner(c)
	if !ok {
		r.log.Warn().Str("client_id", c.ID).Msg("history request from unregistered connection dropped")
		return
	}

	if withUsername == "" {
		r.log.Warn().Int64("sender_id", senderID).Msg("history request without counterpart dropped")
		return
	}

	other, err := r.users.GetUserByUsername(ctx, withUsername)
	if err != nil {
		// An unknown counterpart reads as "no conversation yet"; anything
		// else is a store failure and drops the request.
		if errors.Is(err, store.ErrNotFound) {
			c.TrySend(&Event{Kind: EventHistory, History: []*store.ConversationMessage{}})
		} else {
			r.log.Error().Err(err).Int64("sender_id", senderID).Str("with", withUsername).Msg("resolve counterpart failed, request dropped")
		}
		return
	}

	messages, err := r.messages.ListConversation(ctx, senderID, other.ID)
	if err != nil {
		r.log.Error().Err(err).Int64("sender_id", senderID).Int64("other_id", other.ID).Msg("list conversation failed, request dropped")
		return
	}

	c.TrySend(&Event{Kind: EventHistory, History: messages})
}

func toDomain(m *store.Message) Message {
	return Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
}

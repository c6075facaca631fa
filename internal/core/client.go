package core

import "github.com/google/uuid"

// Client is a live connection handle as seen by the core layer. The
// transport layer owns the underlying socket; the core only references the
// handle and pushes events through its channel.
type Client struct {
	ID     string
	Events chan *Event
}

// NewClient constructs a client handle with a fresh connection ID.
func NewClient() *Client {
	return &Client{
		ID:     uuid.NewString(),
		Events: make(chan *Event, 16),
	}
}

// TrySend queues an event without blocking. Returns false if the buffer is
// full and the event was dropped.
func (c *Client) TrySend(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		// Drop if slow consumer. Persistence happens before delivery, so a
		// dropped push is recoverable via history.
		return false
	}
}

package core

import "time"

// Message is the domain model for a direct message.
type Message struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Content    string
	CreatedAt  time.Time
}

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist. Callers
// use it to tell "no such user" apart from a failing store.
var ErrNotFound = errors.New("not found")

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Message is a persisted direct message between two users.
type Message struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Content    string
	CreatedAt  time.Time
}

// ConversationMessage is a message joined with both participants'
// usernames, as returned by conversation queries.
type ConversationMessage struct {
	ID        int64
	Content   string
	CreatedAt time.Time
	Sender    string
	Receiver  string
}

// UserStore handles user persistence and username resolution.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SearchUsers returns up to limit users whose username contains query,
	// ordered by username. An empty query lists users in insertion order.
	SearchUsers(ctx context.Context, query string, limit int) ([]*User, error)
}

// MessageStore is the append-only log of direct messages.
type MessageStore interface {
	// AppendMessage persists msg and fills in its store-assigned ID.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListConversation returns every message exchanged between the two
	// users, in either direction, ordered by creation time ascending.
	ListConversation(ctx context.Context, userA, userB int64) ([]*ConversationMessage, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}

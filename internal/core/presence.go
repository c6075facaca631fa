package core

import "sync"

// Presence tracks which user owns which live connection. It is the single
// source of truth for "is this user currently reachable" and the only
// shared mutable state in the core, so all methods are safe for concurrent
// use. Critical sections are pure map mutation, never I/O.
type Presence struct {
	mu       sync.RWMutex
	byUser   map[int64]*Client
	byClient map[*Client]int64
}

// NewPresence creates an empty presence registry.
func NewPresence() *Presence {
	return &Presence{
		byUser:   make(map[int64]*Client),
		byClient: make(map[*Client]int64),
	}
}

// Register binds userID to c, displacing any previous handle for the same
// user. Last register wins. The displaced connection is not closed here;
// its socket stays the transport layer's responsibility.
func (p *Presence) Register(userID int64, c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.byUser[userID]; ok {
		delete(p.byClient, prev)
	}
	p.byUser[userID] = c
	p.byClient[c] = userID
}

// Unregister removes c if it is still the registered handle for its user.
// Eviction is keyed on handle identity, not user identity, so a stale
// disconnect racing a newer registration is a no-op.
func (p *Presence) Unregister(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.byClient[c]
	if !ok {
		return
	}
	delete(p.byClient, c)
	if p.byUser[userID] == c {
		delete(p.byUser, userID)
	}
}

// Lookup returns the current handle for userID, or nil if the user has no
// registered connection.
func (p *Presence) Lookup(userID int64) *Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byUser[userID]
}

// Owner resolves the user that authenticated c. ok is false when c has no
// registry entry, which lets callers authenticate inbound events by
// connection identity instead of trusting client-supplied ids.
func (p *Presence) Owner(c *Client) (int64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	userID, ok := p.byClient[c]
	return userID, ok
}

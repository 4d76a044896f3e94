package session

import (
	"sync"

	"github.com/google/uuid"
)

// Identities tracks issued session tokens. A transport-level channel fault
// invalidates the player's token so a stale client cannot reuse it; a
// graceful close leaves the token alone.
type Identities struct {
	mu     sync.RWMutex
	tokens map[string]string // token -> player name
}

// NewIdentities creates an empty identity registry.
func NewIdentities() *Identities {
	return &Identities{
		tokens: make(map[string]string),
	}
}

// Issue creates a fresh session token for a player.
func (i *Identities) Issue(player string) string {
	token := uuid.New().String()
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tokens[token] = player
	return token
}

// Resolve returns the player a token was issued to.
func (i *Identities) Resolve(token string) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	player, ok := i.tokens[token]
	return player, ok
}

// Invalidate removes a single token.
func (i *Identities) Invalidate(token string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.tokens, token)
}

// InvalidatePlayer removes every token issued to a player.
func (i *Identities) InvalidatePlayer(player string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for token, p := range i.tokens {
		if p == player {
			delete(i.tokens, token)
		}
	}
}

package identity

import (
	"context"
	"sync"
	"time"
)

type ctxKey struct{}

// WithOwner returns a copy of ctx carrying the authenticated owner id.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ctxKey{}, owner)
}

// OwnerFrom returns the owner id stored by WithOwner.
func OwnerFrom(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ctxKey{}).(string)
	return owner, ok && owner != ""
}

// TokenTable maps bearer tokens to owner ids.
// The whole table is swapped on reload; readers never see a partial set.
type TokenTable struct {
	mu         sync.RWMutex
	tokens     map[string]string // token -> owner
	owners     int
	lastReload time.Time
}

// NewTokenTable creates an empty table. Every lookup fails until the
// first Replace.
func NewTokenTable() *TokenTable {
	return &TokenTable{tokens: make(map[string]string)}
}

// Resolve returns the owner of token.
func (t *TokenTable) Resolve(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	owner, ok := t.tokens[token]
	return owner, ok
}

// Replace swaps the table contents.
func (t *TokenTable) Replace(tokens map[string]string) {
	owners := make(map[string]struct{}, len(tokens))
	next := make(map[string]string, len(tokens))
	for token, owner := range tokens {
		next[token] = owner
		owners[owner] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.tokens = next
	t.owners = len(owners)
	t.lastReload = time.Now()
}

// Count returns the number of tokens and distinct owners.
func (t *TokenTable) Count() (tokens, owners int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.tokens), t.owners
}

// LastReload returns when the table was last replaced.
func (t *TokenTable) LastReload() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.lastReload
}

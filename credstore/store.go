// Package credstore persists the authenticated session's bearer token and
// serialized user record across process restarts. Token and user are always
// written and cleared together; a store never exposes a partial pair.
package credstore

import "encoding/json"

// Credentials is the persisted pair owned by the session store.
type Credentials struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user,omitempty"`
}

// Empty reports whether no token is held.
func (c Credentials) Empty() bool {
	return c.Token == ""
}

// Store is the durability mechanism behind the session store.
type Store interface {
	// Save persists the token/user pair, replacing any previous pair.
	Save(creds Credentials) error
	// Load returns the persisted pair, or ErrNoStoredCredentials when empty.
	Load() (Credentials, error)
	// Clear removes the persisted pair. Clearing an empty store is a no-op.
	Clear() error
}

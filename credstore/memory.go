package credstore

import (
	"sync"

	"github.com/epitaphe360/shareyoursales-go/internal/errors"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store for tests and ephemeral sessions.
type Memory struct {
	mu    sync.RWMutex
	creds Credentials
	held  bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = creds
	m.held = true
	return nil
}

func (m *Memory) Load() (Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.held {
		return Credentials{}, errors.ErrNoStoredCredentials
	}
	return m.creds, nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	m.held = false
	return nil
}

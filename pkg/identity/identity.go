// Package identity supplies the stable user id attached to chat requests.
package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Provider returns the user id for the current logical session.
type Provider interface {
	UserID(ctx context.Context) (string, error)
}

// NewUserID generates a fresh user id.
func NewUserID() string {
	return "user-" + uuid.NewString()
}

// Static always returns the same id.
type Static string

// UserID implements Provider.
func (s Static) UserID(context.Context) (string, error) {
	return string(s), nil
}

// Memory generates an id on first use and keeps it for the life of the
// process.
type Memory struct {
	once sync.Once
	id   string
}

// UserID implements Provider.
func (m *Memory) UserID(context.Context) (string, error) {
	m.once.Do(func() { m.id = NewUserID() })
	return m.id, nil
}

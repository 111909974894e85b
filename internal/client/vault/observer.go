package vault

import (
	"context"
	"time"

	"github.com/peng0105/password-xl/internal/client/models"
)

// Observer is told about lifecycle events that touch remembered login data.
// Errors are logged by the session and never fail the operation.
type Observer interface {
	OnUnlock(ctx context.Context, secret string, secretType models.MainPasswordType, setting models.Setting) error
	Rewrap(ctx context.Context, oldSecret, newSecret string, secretType models.MainPasswordType) error
	OnLogout(ctx context.Context) error
}

type Option func(*Session)

// WithObserver registers o for lifecycle events.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		s.observer = o
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

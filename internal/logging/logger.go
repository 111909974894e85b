// Package logging is the structured logger every password-xl component
// takes. The only implementation wraps log/slog.
//
// Secrets, ciphertexts and login forms are never passed as attributes.
package logging

import "context"

// Logger logs a message with key/value attributes:
//
//	logger.Info(ctx, "blob stored", "owner", owner, "key", key, "size", n)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a logger that adds args to every record.
	With(args ...any) Logger
}

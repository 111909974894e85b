package cli

import (
	"context"
	"time"

	"github.com/peng0105/password-xl/internal/client/vault"
)

const idleCheckInterval = 15 * time.Second

// StartIdleLockWatcher locks the vault once no command was entered for
// Setting.TimeoutLock minutes. A zero timeout disables the lock.
func (a *App) StartIdleLockWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.lockIfIdle(ctx, time.Now())

		case <-ctx.Done():
			return
		}
	}
}

// lockIfIdle reports whether it locked the vault.
func (a *App) lockIfIdle(ctx context.Context, now time.Time) bool {
	if a.session.State() != vault.Unlocked {
		return false
	}
	minutes := a.session.Setting().TimeoutLock
	if minutes <= 0 {
		return false
	}

	idle := now.Sub(time.UnixMilli(a.lastActivity.Load()))
	if idle < time.Duration(minutes)*time.Minute {
		return false
	}

	a.session.Lock(ctx)
	a.logger.Info(ctx, "vault locked after inactivity", "idle", idle.Round(time.Second).String())
	a.println("\nVault locked after inactivity.")
	return true
}

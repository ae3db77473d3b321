// Package bootstrap runs startup session restoration exactly once, racing it
// against a bounded wait so the client always reaches a decided session state
// even when the storage layer hangs.
package bootstrap

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/velora/storefront/internal/domain/session"
)

// DefaultTimeout is the ceiling on how long startup waits for restoration.
const DefaultTimeout = 3 * time.Second

// SessionStore is the slice of the session store the bootstrapper drives.
type SessionStore interface {
	Restore(ctx context.Context) session.Snapshot
	ForceAnonymous() session.Snapshot
}

// Bootstrapper restores the session at startup with a forced-progress timeout.
type Bootstrapper struct {
	sessions SessionStore
	timeout  time.Duration
	lg       *zap.Logger

	once   sync.Once
	result session.Snapshot
}

// New creates a Bootstrapper. A non-positive timeout falls back to
// DefaultTimeout.
func New(sessions SessionStore, timeout time.Duration, lg *zap.Logger) *Bootstrapper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Bootstrapper{sessions: sessions, timeout: timeout, lg: lg}
}

// Run restores the session, racing the restore against the timeout. Whichever
// finishes first decides the outcome; a timeout win forces the session to
// anonymous with initialization complete, and the restore resolving later is a
// no-op. Run executes at most once: subsequent calls return the first outcome.
//
// The timeout does not cancel the in-flight restore, it only stops waiting
// for it.
func (b *Bootstrapper) Run(ctx context.Context) session.Snapshot {
	b.once.Do(func() {
		done := make(chan session.Snapshot, 1)
		go func() {
			done <- b.sessions.Restore(ctx)
		}()

		timer := time.NewTimer(b.timeout)
		defer timer.Stop()

		select {
		case snap := <-done:
			b.result = snap
			b.lg.Info("Session restoration complete",
				zap.String("state", snap.State.String()),
			)
		case <-timer.C:
			b.lg.Warn("Session restoration timed out, proceeding anonymous",
				zap.Duration("timeout", b.timeout),
			)
			b.result = b.sessions.ForceAnonymous()
		case <-ctx.Done():
			b.lg.Warn("Startup cancelled during session restoration")
			b.result = b.sessions.ForceAnonymous()
		}
	})
	return b.result
}

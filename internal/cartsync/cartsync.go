// Package cartsync keeps the cart store consistent with session transitions.
//
// The reaction is level-triggered: it reads the current session snapshot and
// converges the cart toward it, rather than interpreting one-shot events.
// Re-applying in an unchanged state is harmless and expected, so the reaction
// is idempotent, and overlapping fetches collapse into a single in-flight call.
package cartsync

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/velora/storefront/internal/domain/session"
)

// SessionSource exposes the session facts the synchronizer reacts to.
type SessionSource interface {
	Snapshot() session.Snapshot
	Changes() <-chan struct{}
}

// CartStore is the slice of the cart store the synchronizer drives.
type CartStore interface {
	Fetch(ctx context.Context) error
	ClearLocal()
}

// Synchronizer converges the cart store toward the current session state.
type Synchronizer struct {
	sessions SessionSource
	cart     CartStore
	lg       *zap.Logger

	group     singleflight.Group
	reactions metric.Int64Counter
}

// New creates a Synchronizer. The meter may be a noop provider's meter.
func New(sessions SessionSource, cart CartStore, lg *zap.Logger, meter metric.Meter) *Synchronizer {
	if lg == nil {
		lg = zap.NewNop()
	}
	reactions, err := meter.Int64Counter("storefront_cart_sync_reactions_total",
		metric.WithDescription("Cart synchronizer reactions by action"),
	)
	if err != nil {
		lg.Warn("Failed to create sync counter", zap.Error(err))
	}
	return &Synchronizer{
		sessions:  sessions,
		cart:      cart,
		lg:        lg,
		reactions: reactions,
	}
}

// Apply runs the level-triggered reaction once against the current session
// snapshot. Before initialization completes it does nothing, preventing a
// spurious clear-then-fetch race during startup. Afterwards an authenticated
// session triggers a fetch (collapsed across concurrent callers) and an
// anonymous session clears the local cart.
func (s *Synchronizer) Apply(ctx context.Context) error {
	snap := s.sessions.Snapshot()
	if !snap.Initialized {
		return nil
	}

	if snap.Authenticated {
		s.count(ctx, "fetch")
		_, err, _ := s.group.Do("fetch", func() (any, error) {
			return nil, s.cart.Fetch(ctx)
		})
		if err != nil {
			return err
		}
		s.lg.Debug("Cart synced for authenticated session")
		return nil
	}

	s.count(ctx, "clear")
	s.cart.ClearLocal()
	s.lg.Debug("Cart cleared for anonymous session")
	return nil
}

// Watch applies the reaction once, then re-applies it on every session change
// until ctx is cancelled.
func (s *Synchronizer) Watch(ctx context.Context) error {
	if err := s.Apply(ctx); err != nil {
		s.lg.Warn("Initial cart sync failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.sessions.Changes():
			if err := s.Apply(ctx); err != nil {
				s.lg.Warn("Cart sync failed", zap.Error(err))
			}
		}
	}
}

func (s *Synchronizer) count(ctx context.Context, action string) {
	if s.reactions == nil {
		return
	}
	s.reactions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

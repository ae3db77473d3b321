// Package app wires the storefront runtime together: transport, stores,
// bootstrap, synchronizer, and checkout.
package app

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/velora/storefront/internal/api"
	"github.com/velora/storefront/internal/bootstrap"
	"github.com/velora/storefront/internal/cartsync"
	"github.com/velora/storefront/internal/domain/cart"
	"github.com/velora/storefront/internal/domain/catalog"
	"github.com/velora/storefront/internal/domain/checkout"
	"github.com/velora/storefront/internal/domain/payment"
	"github.com/velora/storefront/internal/domain/session"
	"github.com/velora/storefront/pkg/health"
	"github.com/velora/storefront/pkg/httpclient"
	"github.com/velora/storefront/pkg/keystore"
)

// Storefront is the assembled client runtime. Everything hangs off one shared
// HTTP client so auth, request IDs, logging, and tracing behave uniformly.
type Storefront struct {
	Sessions *session.Store
	Cart     *cart.Store
	Catalog  *catalog.Service
	Checkout *checkout.Orchestrator
	Health   *health.Monitor

	boot   *bootstrap.Bootstrapper
	syncer *cartsync.Synchronizer
	cfg    *Config
	lg     *zap.Logger
}

// New creates all dependencies. It is the single wiring point for the
// application.
func New(lg *zap.Logger, m *app.Metrics, cfg *Config) (*Storefront, error) {
	keys := keystore.Open(filepath.Join(cfg.StateDir, "session.json"))

	// The bearer middleware needs the session token, but the session store
	// needs the API client built on that same transport. The token source is a
	// closure evaluated per request, so declaring the store first and filling
	// it after breaks the cycle.
	var sessions *session.Store
	transport := httpclient.Wrap(
		otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
		httpclient.RequestID(),
		httpclient.BearerAuth(httpclient.TokenFunc(func() string {
			if sessions == nil {
				return ""
			}
			return sessions.Token()
		})),
		httpclient.LogRequests(),
	)
	hc := &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: transport,
	}

	client := api.New(cfg.APIBaseURL, hc)
	sessions = session.NewStore(client, keys, lg.Named("session"))

	carts := cart.NewStore(client, sessions, lg.Named("cart"))

	catalogSvc := catalog.NewService(client,
		filepath.Join(cfg.StateDir, "catalog.json.gz"),
		lg.Named("catalog"),
	)
	catalogSvc.LoadCache()

	orchestrator := checkout.NewOrchestrator(
		carts,
		catalogSvc,
		client,
		payment.NewMockGateway(),
		sessions,
		cfg.DeliveryFeeAmount(),
		lg.Named("checkout"),
	)

	monitor := health.New()
	monitor.AddCheck("backend", cfg.Health.Timeout, health.HTTPCheck(hc, cfg.APIBaseURL+"/products"))

	return &Storefront{
		Sessions: sessions,
		Cart:     carts,
		Catalog:  catalogSvc,
		Checkout: orchestrator,
		Health:   monitor,
		boot:     bootstrap.New(sessions, cfg.RestoreTimeout, lg.Named("bootstrap")),
		syncer:   cartsync.New(sessions, carts, lg.Named("cartsync"), m.MeterProvider().Meter("storefront")),
		cfg:      cfg,
		lg:       lg,
	}, nil
}

// Run starts the runtime: session bootstrap and catalog refresh run
// concurrently, then the cart synchronizer watches session transitions until
// the context is cancelled.
func (s *Storefront) Run(ctx context.Context) error {
	s.Health.Start(ctx, s.cfg.Health.Interval)
	defer s.Health.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap := s.boot.Run(gctx)
		s.lg.Info("Session bootstrap finished",
			zap.Stringer("state", snap.State),
			zap.Bool("authenticated", snap.Authenticated),
		)
		return nil
	})
	g.Go(func() error {
		// A cached catalog already serves lookups, so a failed refresh only
		// degrades freshness.
		if err := s.Catalog.Refresh(gctx); err != nil {
			s.lg.Warn("Catalog refresh failed", zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "startup")
	}

	if err := s.syncer.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "cart sync")
	}
	return nil
}

// Logout ends the authenticated session. The server cart is cleared first
// while the credential is still attached to outgoing requests; then the
// session drops to anonymous and the synchronizer's reaction clears the
// local cart.
func (s *Storefront) Logout(ctx context.Context) {
	s.Cart.ClearOnServer(ctx)
	s.Sessions.Logout()
}

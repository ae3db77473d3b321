// Package catalog holds the product catalog snapshot the client prices carts
// against. The snapshot is fetched from the backend and cached on disk so a
// restarted client can price its cart before the first refresh completes.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Sizes    []string        `json:"sizes,omitempty"`
}

// API is the slice of the backend contract the catalog depends on.
type API interface {
	ListProducts(ctx context.Context) ([]Product, error)
}

// Snapshot is an immutable view of the catalog at a point in time.
type Snapshot struct {
	products  []Product
	byID      map[string]Product
	fetchedAt time.Time
}

// NewSnapshot builds a snapshot from a product list. Later duplicates of an ID
// win, matching the backend's own upsert behaviour.
func NewSnapshot(products []Product, fetchedAt time.Time) *Snapshot {
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &Snapshot{products: products, byID: byID, fetchedAt: fetchedAt}
}

// Lookup returns the product with the given ID.
func (s *Snapshot) Lookup(id string) (Product, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// Price returns the unit price for the given product ID. It satisfies the
// cart's pricer interface.
func (s *Snapshot) Price(id string) (decimal.Decimal, bool) {
	p, ok := s.byID[id]
	if !ok {
		return decimal.Zero, false
	}
	return p.Price, true
}

// Products returns the product list in catalog order.
func (s *Snapshot) Products() []Product {
	return s.products
}

// Len returns the number of products in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.byID)
}

// Service maintains the current catalog snapshot.
type Service struct {
	api       API
	cachePath string
	lg        *zap.Logger

	mu   sync.RWMutex
	snap *Snapshot
}

// NewService creates a catalog service. cachePath may be empty to disable the
// disk cache.
func NewService(api API, cachePath string, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{
		api:       api,
		cachePath: cachePath,
		lg:        lg,
		snap:      NewSnapshot(nil, time.Time{}),
	}
}

// Refresh fetches the catalog from the backend, swaps the current snapshot,
// and rewrites the disk cache. Cache write failures are logged, not surfaced.
func (s *Service) Refresh(ctx context.Context) error {
	products, err := s.api.ListProducts(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}

	snap := NewSnapshot(products, time.Now())
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	s.lg.Info("Catalog refreshed", zap.Int("products", snap.Len()))

	if s.cachePath != "" {
		if err := writeCache(s.cachePath, products); err != nil {
			s.lg.Warn("Failed to write catalog cache", zap.Error(err))
		}
	}
	return nil
}

// LoadCache primes the snapshot from the disk cache. Missing or unreadable
// caches degrade silently to the empty snapshot.
func (s *Service) LoadCache() {
	if s.cachePath == "" {
		return
	}
	products, fetchedAt, err := readCache(s.cachePath)
	if err != nil {
		s.lg.Debug("No usable catalog cache", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.snap.Len() == 0 {
		s.snap = NewSnapshot(products, fetchedAt)
	}
	s.mu.Unlock()
	s.lg.Info("Catalog loaded from cache", zap.Int("products", len(products)))
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Price resolves a product ID against the current snapshot. It satisfies the
// cart's pricer interface.
func (s *Service) Price(id string) (decimal.Decimal, bool) {
	return s.Snapshot().Price(id)
}

// Lookup resolves a product ID against the current snapshot.
func (s *Service) Lookup(id string) (Product, bool) {
	return s.Snapshot().Lookup(id)
}

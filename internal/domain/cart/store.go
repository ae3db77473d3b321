package cart

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sentinel errors for cart mutations. All of them are validation or
// precondition failures surfaced to the user before any network call.
var (
	ErrNotAuthenticated = errors.New("please login to modify the cart")
	ErrSizeRequired     = errors.New("select a product size")
	ErrInvalidQuantity  = errors.New("quantity must not be negative")
)

// API is the slice of the backend contract the cart store depends on.
type API interface {
	FetchCart(ctx context.Context) ([]Line, error)
	AddCartItem(ctx context.Context, productID, size string, quantity int) error
	UpdateCartItem(ctx context.Context, productID, size string, quantity int) error
	RemoveCartItem(ctx context.Context, productID, size string) error
	ClearCart(ctx context.Context) error
}

// AuthState exposes the session facts the cart needs for gating decisions.
type AuthState interface {
	Authenticated() bool
}

// Pricer resolves a product ID to its unit price. Products missing from the
// catalog report ok == false and are skipped by derived reads.
type Pricer interface {
	Price(productID string) (decimal.Decimal, bool)
}

// Store holds the local cart mapping and keeps it consistent with the server.
// Mutations commit locally only after server acknowledgment, so a failed call
// leaves local state unchanged and no rollback is needed.
type Store struct {
	api  API
	auth AuthState
	lg   *zap.Logger

	mu          sync.RWMutex
	items       Items
	lastUpdated time.Time
}

// NewStore creates an empty cart store.
func NewStore(api API, auth AuthState, lg *zap.Logger) *Store {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Store{
		api:   api,
		auth:  auth,
		lg:    lg,
		items: make(Items),
	}
}

// Fetch replaces the local cart with the server cart. When unauthenticated it
// resolves to an empty cart, not an error. Server lines missing a product
// reference or size, or with a non-positive quantity, are dropped and counted
// but do not abort the fetch. Network failures on this read path degrade to an
// empty cart as well.
func (s *Store) Fetch(ctx context.Context) error {
	if !s.auth.Authenticated() {
		s.replace(make(Items))
		return nil
	}

	lines, err := s.api.FetchCart(ctx)
	if err != nil {
		s.lg.Warn("Cart fetch failed, using empty cart", zap.Error(err))
		s.replace(make(Items))
		return nil
	}

	items := make(Items)
	dropped := 0
	for _, l := range lines {
		if l.ProductID == "" || l.Size == "" || l.Quantity <= 0 {
			dropped++
			continue
		}
		items.Set(l.ProductID, l.Size, l.Quantity)
	}
	if dropped > 0 {
		s.lg.Warn("Dropped invalid cart items", zap.Int("count", dropped))
	}

	s.replace(items)
	s.lg.Debug("Cart fetched", zap.Int("lines", len(lines)-dropped))
	return nil
}

// Add increments the quantity for the (productID, size) pair. It requires an
// authenticated session and a non-empty size, and commits the local increment
// only after the server accepts the item.
func (s *Store) Add(ctx context.Context, productID, size string, quantity int) error {
	if !s.auth.Authenticated() {
		return ErrNotAuthenticated
	}
	if size == "" {
		return ErrSizeRequired
	}
	if quantity <= 0 {
		quantity = 1
	}

	if err := s.api.AddCartItem(ctx, productID, size, quantity); err != nil {
		return errors.Wrap(err, "add to cart")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Add(productID, size, quantity)
	s.lastUpdated = time.Now()
	return nil
}

// Update sets the quantity for the (productID, size) pair. A quantity of zero
// deletes the entry, pruning the product if no sizes remain. The local
// mutation commits only after server acknowledgment.
func (s *Store) Update(ctx context.Context, productID, size string, quantity int) error {
	if !s.auth.Authenticated() {
		return ErrNotAuthenticated
	}
	if quantity < 0 {
		return ErrInvalidQuantity
	}

	if err := s.api.UpdateCartItem(ctx, productID, size, quantity); err != nil {
		return errors.Wrap(err, "update cart")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Set(productID, size, quantity)
	s.lastUpdated = time.Now()
	return nil
}

// Remove deletes the (productID, size) entry on the server and locally.
func (s *Store) Remove(ctx context.Context, productID, size string) error {
	if !s.auth.Authenticated() {
		return ErrNotAuthenticated
	}

	if err := s.api.RemoveCartItem(ctx, productID, size); err != nil {
		return errors.Wrap(err, "remove from cart")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Set(productID, size, 0)
	s.lastUpdated = time.Now()
	return nil
}

// ClearLocal empties the local mapping without contacting the server. Used
// after logout and after an order settles immediately.
func (s *Store) ClearLocal() {
	s.replace(make(Items))
	s.lg.Debug("Local cart cleared")
}

// ClearOnServer asks the server to clear the cart. It is best effort: when
// unauthenticated it does nothing, and failures are logged, never surfaced,
// and never block the caller.
func (s *Store) ClearOnServer(ctx context.Context) {
	if !s.auth.Authenticated() {
		return
	}
	if err := s.api.ClearCart(ctx); err != nil {
		s.lg.Warn("Failed to clear cart on server", zap.Error(err))
	}
}

// Count sums all quantities in the cart.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Count()
}

// Amount sums quantity times unit price across the cart, skipping entries
// whose product is not found in the catalog.
func (s *Store) Amount(prices Pricer) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for p, sizes := range s.items {
		price, ok := prices.Price(p)
		if !ok {
			continue
		}
		for _, q := range sizes {
			total = total.Add(price.Mul(decimal.NewFromInt(int64(q))))
		}
	}
	return total
}

// Lines flattens the cart into order line items, dropping lines whose product
// is missing from the catalog. It returns the surviving lines and the number
// dropped.
func (s *Store) Lines(prices Pricer) ([]Line, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.items.Lines()
	lines := make([]Line, 0, len(all))
	dropped := 0
	for _, l := range all {
		if _, ok := prices.Price(l.ProductID); !ok {
			dropped++
			continue
		}
		lines = append(lines, l)
	}
	return lines, dropped
}

// Snapshot returns a deep copy of the current mapping.
func (s *Store) Snapshot() Items {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Clone()
}

// LastUpdated reports when the cart last changed. The zero time means no
// mutation or fetch has happened yet.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Empty reports whether the cart holds no items.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Empty()
}

// replace swaps the whole mapping.
func (s *Store) replace(items Items) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.lastUpdated = time.Now()
}

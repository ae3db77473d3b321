package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockAPI struct {
	fetchLines []Line
	fetchErr   error
	addErr     error
	updateErr  error
	removeErr  error
	clearErr   error

	fetchCalls  int
	clearCalls  int
	lastAdd     Line
	lastUpdate  Line
	lastRemoved Line
}

func (m *mockAPI) FetchCart(_ context.Context) ([]Line, error) {
	m.fetchCalls++
	return m.fetchLines, m.fetchErr
}

func (m *mockAPI) AddCartItem(_ context.Context, p, s string, q int) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.lastAdd = Line{ProductID: p, Size: s, Quantity: q}
	return nil
}

func (m *mockAPI) UpdateCartItem(_ context.Context, p, s string, q int) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.lastUpdate = Line{ProductID: p, Size: s, Quantity: q}
	return nil
}

func (m *mockAPI) RemoveCartItem(_ context.Context, p, s string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.lastRemoved = Line{ProductID: p, Size: s}
	return nil
}

func (m *mockAPI) ClearCart(_ context.Context) error {
	m.clearCalls++
	return m.clearErr
}

type staticAuth bool

func (a staticAuth) Authenticated() bool { return bool(a) }

type mapPricer map[string]decimal.Decimal

func (p mapPricer) Price(id string) (decimal.Decimal, bool) {
	d, ok := p[id]
	return d, ok
}

// --- Tests ---

func TestFetch_UnauthenticatedYieldsEmptyCart(t *testing.T) {
	api := &mockAPI{fetchLines: []Line{{ProductID: "P1", Size: "M", Quantity: 2}}}
	s := NewStore(api, staticAuth(false), nil)

	require.NoError(t, s.Fetch(context.Background()))

	assert.True(t, s.Empty())
	assert.Zero(t, api.fetchCalls, "no server call when unauthenticated")
}

func TestFetch_ConvertsLineItems(t *testing.T) {
	api := &mockAPI{fetchLines: []Line{
		{ProductID: "P1", Size: "M", Quantity: 2},
		{ProductID: "P1", Size: "L", Quantity: 1},
		{ProductID: "P2", Size: "S", Quantity: 4},
	}}
	s := NewStore(api, staticAuth(true), nil)

	require.NoError(t, s.Fetch(context.Background()))

	assert.Equal(t, Items{
		"P1": {"M": 2, "L": 1},
		"P2": {"S": 4},
	}, s.Snapshot())
}

func TestFetch_DropsInvalidLines(t *testing.T) {
	api := &mockAPI{fetchLines: []Line{
		{ProductID: "P1", Size: "M", Quantity: 2},
		{ProductID: "", Size: "M", Quantity: 1},
		{ProductID: "P2", Size: "", Quantity: 1},
		{ProductID: "P3", Size: "S", Quantity: 0},
		{ProductID: "P4", Size: "S", Quantity: -2},
	}}
	s := NewStore(api, staticAuth(true), nil)

	require.NoError(t, s.Fetch(context.Background()))

	assert.Equal(t, Items{"P1": {"M": 2}}, s.Snapshot())
}

func TestFetch_NetworkErrorDegradesToEmpty(t *testing.T) {
	api := &mockAPI{fetchErr: errors.New("connection refused")}
	s := NewStore(api, staticAuth(true), nil)
	seed(t, s, api, "P1", "M", 2)

	require.NoError(t, s.Fetch(context.Background()))
	assert.True(t, s.Empty())
}

func TestFetch_ReplacesWholesale(t *testing.T) {
	api := &mockAPI{fetchLines: []Line{{ProductID: "P9", Size: "XL", Quantity: 1}}}
	s := NewStore(api, staticAuth(true), nil)
	seed(t, s, api, "P1", "M", 2)

	require.NoError(t, s.Fetch(context.Background()))

	assert.Equal(t, Items{"P9": {"XL": 1}}, s.Snapshot())
}

func TestAdd_RequiresAuthentication(t *testing.T) {
	s := NewStore(&mockAPI{}, staticAuth(false), nil)

	err := s.Add(context.Background(), "P1", "M", 1)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.True(t, s.Empty())
}

func TestAdd_RequiresSize(t *testing.T) {
	s := NewStore(&mockAPI{}, staticAuth(true), nil)

	err := s.Add(context.Background(), "P1", "", 1)
	require.ErrorIs(t, err, ErrSizeRequired)
}

func TestAdd_IncrementsAfterServerAccept(t *testing.T) {
	api := &mockAPI{}
	s := NewStore(api, staticAuth(true), nil)

	require.NoError(t, s.Add(context.Background(), "P1", "M", 1))
	require.NoError(t, s.Add(context.Background(), "P1", "M", 2))

	assert.Equal(t, 3, s.Snapshot().Get("P1", "M"))
	assert.Equal(t, Line{ProductID: "P1", Size: "M", Quantity: 2}, api.lastAdd)
}

func TestAdd_DefaultsQuantityToOne(t *testing.T) {
	api := &mockAPI{}
	s := NewStore(api, staticAuth(true), nil)

	require.NoError(t, s.Add(context.Background(), "P1", "M", 0))
	assert.Equal(t, 1, s.Snapshot().Get("P1", "M"))
}

func TestAdd_ServerErrorLeavesLocalUnchanged(t *testing.T) {
	api := &mockAPI{addErr: errors.New("500")}
	s := NewStore(api, staticAuth(true), nil)

	err := s.Add(context.Background(), "P1", "M", 1)
	require.Error(t, err)
	assert.True(t, s.Empty())
}

func TestUpdate_SetsQuantity(t *testing.T) {
	api := &mockAPI{}
	s := NewStore(api, staticAuth(true), nil)
	seed(t, s, api, "P1", "M", 2)

	require.NoError(t, s.Update(context.Background(), "P1", "M", 5))
	assert.Equal(t, 5, s.Snapshot().Get("P1", "M"))
}

func TestUpdate_ZeroDeletesAndPrunes(t *testing.T) {
	api := &mockAPI{}
	s := NewStore(api, staticAuth(true), nil)
	seed(t, s, api, "P1", "M", 2)

	require.NoError(t, s.Update(context.Background(), "P1", "M", 0))

	assert.Equal(t, Items{}, s.Snapshot())
}

func TestUpdate_NegativeQuantityRejected(t *testing.T) {
	s := NewStore(&mockAPI{}, staticAuth(true), nil)

	err := s.Update(context.Background(), "P1", "M", -1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestUpdate_ServerErrorLeavesLocalUnchanged(t *testing.T) {
	api := &mockAPI{}
	s := NewStore(api, staticAuth(true), nil)
	seed(t, s, api, "P1", "M", 2)

	api.updateErr = errors.New("500")
	err := s.Update(context.Background(), "P1", "M", 7)

	require.Error(t, err)
	assert.Equal(t, 2, s.Snapshot().Get("P1", "M"))
}

func TestRemove(t *testing.T) {
	api := &mockAPI{}
	s := NewStore(api, staticAuth(true), nil)
	seed(t, s, api, "P1", "M", 2)

	require.NoError(t, s.Remove(context.Background(), "P1", "M"))

	assert.True(t, s.Empty())
	assert.Equal(t, "P1", api.lastRemoved.ProductID)
}

func TestClearOnServer_BestEffort(t *testing.T) {
	api := &mockAPI{clearErr: errors.New("503")}
	s := NewStore(api, staticAuth(true), nil)
	seed(t, s, api, "P1", "M", 2)

	// Failure is swallowed and local state is untouched.
	s.ClearOnServer(context.Background())

	assert.Equal(t, 1, api.clearCalls)
	assert.Equal(t, 2, s.Snapshot().Get("P1", "M"))
}

func TestClearOnServer_SkippedWhenAnonymous(t *testing.T) {
	api := &mockAPI{}
	s := NewStore(api, staticAuth(false), nil)

	s.ClearOnServer(context.Background())
	assert.Zero(t, api.clearCalls)
}

func TestAmount_SkipsUnknownProducts(t *testing.T) {
	api := &mockAPI{}
	s := NewStore(api, staticAuth(true), nil)
	seed(t, s, api, "P1", "M", 2)
	seed(t, s, api, "GONE", "S", 5)

	prices := mapPricer{"P1": decimal.NewFromInt(1000)}

	assert.True(t, decimal.NewFromInt(2000).Equal(s.Amount(prices)))
	assert.Equal(t, 7, s.Count())
}

func TestLines_DropsCatalogMissing(t *testing.T) {
	api := &mockAPI{}
	s := NewStore(api, staticAuth(true), nil)
	seed(t, s, api, "P1", "M", 2)
	seed(t, s, api, "GONE", "S", 5)

	lines, dropped := s.Lines(mapPricer{"P1": decimal.NewFromInt(10)})

	assert.Equal(t, []Line{{ProductID: "P1", Size: "M", Quantity: 2}}, lines)
	assert.Equal(t, 1, dropped)
}

func TestLastUpdated(t *testing.T) {
	api := &mockAPI{}
	s := NewStore(api, staticAuth(true), nil)
	assert.True(t, s.LastUpdated().IsZero())

	seed(t, s, api, "P1", "M", 1)
	first := s.LastUpdated()
	assert.False(t, first.IsZero())

	seed(t, s, api, "P1", "M", 1)
	assert.False(t, s.LastUpdated().Before(first))
}

// seed adds an item through the normal path so the store invariants hold.
func seed(t *testing.T, s *Store, api *mockAPI, p, size string, q int) {
	t.Helper()
	prevErr := api.addErr
	api.addErr = nil
	require.NoError(t, s.Add(context.Background(), p, size, q))
	api.addErr = prevErr
}

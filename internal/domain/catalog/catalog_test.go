package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	products []Product
	err      error
}

func (m *mockAPI) ListProducts(_ context.Context) ([]Product, error) {
	return m.products, m.err
}

func sampleProducts() []Product {
	return []Product{
		{ID: "P1", Name: "Tee", Price: decimal.NewFromInt(1000), Category: "tops", Sizes: []string{"S", "M", "L"}},
		{ID: "P2", Name: "Jeans", Price: decimal.RequireFromString("49.99"), Category: "bottoms"},
	}
}

func TestSnapshot_PriceAndLookup(t *testing.T) {
	snap := NewSnapshot(sampleProducts(), time.Now())

	price, ok := snap.Price("P1")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(1000).Equal(price))

	p, ok := snap.Lookup("P2")
	require.True(t, ok)
	assert.Equal(t, "Jeans", p.Name)

	_, ok = snap.Price("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, snap.Len())
}

func TestRefresh_SwapsSnapshot(t *testing.T) {
	api := &mockAPI{products: sampleProducts()}
	svc := NewService(api, "", nil)

	require.NoError(t, svc.Refresh(context.Background()))

	price, ok := svc.Price("P1")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(1000).Equal(price))
}

func TestRefresh_Error(t *testing.T) {
	svc := NewService(&mockAPI{err: errors.New("down")}, "", nil)

	err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Zero(t, svc.Snapshot().Len(), "snapshot unchanged on failure")
}

func TestCache_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json.gz")
	api := &mockAPI{products: sampleProducts()}

	svc := NewService(api, path, nil)
	require.NoError(t, svc.Refresh(context.Background()))

	// A fresh service primed from cache prices products without the network.
	svc2 := NewService(&mockAPI{err: errors.New("offline")}, path, nil)
	svc2.LoadCache()

	assert.Equal(t, 2, svc2.Snapshot().Len())
	price, ok := svc2.Price("P2")
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("49.99").Equal(price))
}

func TestLoadCache_MissingFileDegradesSilently(t *testing.T) {
	svc := NewService(&mockAPI{}, filepath.Join(t.TempDir(), "none.gz"), nil)
	svc.LoadCache()
	assert.Zero(t, svc.Snapshot().Len())
}

func TestLoadCache_CorruptFileDegradesSilently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o600))

	svc := NewService(&mockAPI{}, path, nil)
	svc.LoadCache()
	assert.Zero(t, svc.Snapshot().Len())
}

func TestLoadCache_DoesNotOverrideFresherSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json.gz")
	svc := NewService(&mockAPI{products: sampleProducts()}, path, nil)
	require.NoError(t, svc.Refresh(context.Background()))

	// Cache holds two products; the live snapshot already has them. LoadCache
	// after a successful refresh must not regress the snapshot.
	svc.LoadCache()
	assert.Equal(t, 2, svc.Snapshot().Len())
}

package cartsync

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/velora/storefront/internal/domain/session"
)

// --- Mock implementations ---

type mockSessions struct {
	mu      sync.Mutex
	snap    session.Snapshot
	changes chan struct{}
}

func newMockSessions(snap session.Snapshot) *mockSessions {
	return &mockSessions{snap: snap, changes: make(chan struct{}, 1)}
}

func (m *mockSessions) Snapshot() session.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *mockSessions) Changes() <-chan struct{} {
	return m.changes
}

func (m *mockSessions) transition(snap session.Snapshot) {
	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

type mockCart struct {
	fetchCalls atomic.Int32
	clearCalls atomic.Int32
	fetchGate  chan struct{} // when set, Fetch blocks until the gate closes
}

func (m *mockCart) Fetch(_ context.Context) error {
	m.fetchCalls.Add(1)
	if m.fetchGate != nil {
		<-m.fetchGate
	}
	return nil
}

func (m *mockCart) ClearLocal() {
	m.clearCalls.Add(1)
}

func anonymous(initialized bool) session.Snapshot {
	return session.Snapshot{State: session.StateAnonymous, Initialized: initialized}
}

func authenticated() session.Snapshot {
	return session.Snapshot{
		State:         session.StateAuthenticated,
		Initialized:   true,
		Authenticated: true,
		Token:         "tok-1",
	}
}

func newSync(sessions SessionSource, cart CartStore) *Synchronizer {
	return New(sessions, cart, nil, noop.NewMeterProvider().Meter("test"))
}

// --- Tests ---

func TestApply_NoActionBeforeInitialized(t *testing.T) {
	cart := &mockCart{}
	s := newSync(newMockSessions(session.Snapshot{State: session.StateRestoring}), cart)

	require.NoError(t, s.Apply(context.Background()))

	assert.Zero(t, cart.fetchCalls.Load())
	assert.Zero(t, cart.clearCalls.Load(), "no spurious clear during startup")
}

func TestApply_FetchWhenAuthenticated(t *testing.T) {
	cart := &mockCart{}
	s := newSync(newMockSessions(authenticated()), cart)

	require.NoError(t, s.Apply(context.Background()))

	assert.Equal(t, int32(1), cart.fetchCalls.Load())
	assert.Zero(t, cart.clearCalls.Load())
}

func TestApply_ClearWhenAnonymous(t *testing.T) {
	cart := &mockCart{}
	s := newSync(newMockSessions(anonymous(true)), cart)

	require.NoError(t, s.Apply(context.Background()))

	assert.Zero(t, cart.fetchCalls.Load())
	assert.Equal(t, int32(1), cart.clearCalls.Load())
}

func TestApply_Idempotent(t *testing.T) {
	cart := &mockCart{}
	s := newSync(newMockSessions(authenticated()), cart)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Apply(context.Background()))
	}

	// Sequential re-application re-fetches; each call is a harmless no-op in
	// steady state.
	assert.Equal(t, int32(3), cart.fetchCalls.Load())
}

func TestApply_ConcurrentFetchesCollapse(t *testing.T) {
	cart := &mockCart{fetchGate: make(chan struct{})}
	s := newSync(newMockSessions(authenticated()), cart)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Apply(context.Background())
		}()
	}

	// Give the goroutines time to pile up behind the single in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(cart.fetchGate)
	wg.Wait()

	assert.Equal(t, int32(1), cart.fetchCalls.Load(), "overlapping fetches must collapse")
}

func TestWatch_ReactsToTransitions(t *testing.T) {
	cart := &mockCart{}
	sessions := newMockSessions(anonymous(false))
	s := newSync(sessions, cart)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Watch(ctx)
	}()

	// Uninitialized: nothing happens.
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, cart.fetchCalls.Load())
	assert.Zero(t, cart.clearCalls.Load())

	// Login transition triggers a fetch.
	sessions.transition(authenticated())
	require.Eventually(t, func() bool {
		return cart.fetchCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// Logout transition triggers a clear.
	sessions.transition(anonymous(true))
	require.Eventually(t, func() bool {
		return cart.clearCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

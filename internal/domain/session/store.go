package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Fixed keys for the persisted session pair.
const (
	keyToken = "token"
	keyUser  = "user"
)

// ErrInvalidGrant is returned when the authentication endpoint responds
// without a usable token and user pair.
var ErrInvalidGrant = errors.New("auth response missing token or user")

// Store holds the current session state. All methods are safe for concurrent
// use. Mutations are restricted to Restore, Login, Register, Logout, and
// ForceAnonymous; everything else is a read.
type Store struct {
	auth AuthAPI
	keys Keystore
	lg   *zap.Logger

	mu          sync.RWMutex
	state       State
	initialized bool
	token       string
	user        User

	// changes carries a coalesced signal per state transition for the cart
	// synchronizer. Buffered with size 1: a pending signal already covers any
	// number of intermediate transitions, since reactions are level-triggered.
	changes chan struct{}
}

// NewStore creates a Store in the uninitialized state.
func NewStore(auth AuthAPI, keys Keystore, lg *zap.Logger) *Store {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Store{
		auth:    auth,
		keys:    keys,
		lg:      lg,
		state:   StateUninitialized,
		changes: make(chan struct{}, 1),
	}
}

// Changes returns a channel that receives a signal after every state
// transition. Signals coalesce; consumers should re-read Snapshot on each one.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// Snapshot returns an immutable view of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		State:         s.state,
		Initialized:   s.initialized,
		Authenticated: s.state == StateAuthenticated,
		Token:         s.token,
		User:          s.user,
	}
}

// Token returns the current bearer token, or "" when anonymous. It satisfies
// the transport layer's token source interface.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Initialized reports whether startup restoration has completed. It becomes
// true exactly once per process lifetime and never reverts.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Authenticated reports whether a token and user are currently held.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateAuthenticated
}

// Restore attempts to read the previously persisted session pair. It succeeds
// only if both token and user are present and the user record passes the shape
// check; on any failure the persisted pair is discarded and the session
// settles anonymous. Restore never fails its caller: whatever happens, the
// store ends up in a terminal state with Initialized set.
//
// If the bootstrapper's timeout already forced a terminal state, a late
// Restore completion is discarded.
func (s *Store) Restore(ctx context.Context) Snapshot {
	s.mu.Lock()
	if s.initialized {
		// Already decided (repeat call or forced timeout won earlier).
		s.mu.Unlock()
		return s.Snapshot()
	}
	s.state = StateRestoring
	s.mu.Unlock()

	token, user, err := s.readPersisted(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRestoring {
		// The timeout forced a decision while we were reading. Drop the result.
		s.lg.Debug("Discarding late restore result", zap.String("state", s.state.String()))
		return s.snapshotLocked()
	}

	if err != nil {
		s.lg.Info("No session restored", zap.Error(err))
		s.state = StateAnonymous
		s.token = ""
		s.user = User{}
		// Discard whatever was persisted so the next start is clean.
		if derr := s.keys.Delete(keyToken, keyUser); derr != nil {
			s.lg.Warn("Failed to clear persisted session", zap.Error(derr))
		}
	} else {
		s.lg.Info("Session restored",
			zap.String("user", user.Name),
			zap.String("role", string(user.Role)),
		)
		s.state = StateAuthenticated
		s.token = token
		s.user = user
	}
	s.initialized = true
	s.notifyLocked()
	return s.snapshotLocked()
}

// readPersisted loads and validates the persisted pair. Any missing piece or
// parse failure is an error; the caller treats all errors as "no session".
func (s *Store) readPersisted(_ context.Context) (string, User, error) {
	token, ok, err := s.keys.Get(keyToken)
	if err != nil {
		return "", User{}, errors.Wrap(err, "read token")
	}
	if !ok || token == "" {
		return "", User{}, errors.New("no stored token")
	}

	userData, ok, err := s.keys.Get(keyUser)
	if err != nil {
		return "", User{}, errors.Wrap(err, "read user")
	}
	if !ok {
		return "", User{}, errors.New("no stored user")
	}

	user, err := parseUser(userData)
	if err != nil {
		return "", User{}, err
	}
	return token, user, nil
}

// ForceAnonymous settles the session in the anonymous state with Initialized
// set, regardless of any in-flight restore. It is a one-way, idempotent
// decision used by the bootstrapper when the restore does not finish in time;
// a restore resolving afterwards is a no-op.
func (s *Store) ForceAnonymous() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return s.snapshotLocked()
	}
	s.state = StateAnonymous
	s.initialized = true
	s.token = ""
	s.user = User{}
	s.notifyLocked()
	return s.snapshotLocked()
}

// Login sends credentials to the authentication endpoint. On success the grant
// is persisted and the session becomes authenticated. On failure the session
// is left unchanged and the error is returned for the caller to surface.
func (s *Store) Login(ctx context.Context, creds Credentials) error {
	grant, err := s.auth.Login(ctx, creds)
	if err != nil {
		return errors.Wrap(err, "login")
	}
	return s.adopt(grant)
}

// Register creates an account via the registration endpoint. Same contract as
// Login.
func (s *Store) Register(ctx context.Context, profile Profile) error {
	grant, err := s.auth.Register(ctx, profile)
	if err != nil {
		return errors.Wrap(err, "register")
	}
	return s.adopt(grant)
}

// adopt persists and installs a grant, moving the session to authenticated.
func (s *Store) adopt(grant *Grant) error {
	if grant == nil || grant.Token == "" || !grant.User.Valid() {
		return ErrInvalidGrant
	}
	if grant.User.Role == "" {
		grant.User.Role = RoleCustomer
	}

	userData, err := json.Marshal(grant.User)
	if err != nil {
		return errors.Wrap(err, "marshal user")
	}
	if err := s.keys.Set(keyToken, grant.Token); err != nil {
		return errors.Wrap(err, "persist token")
	}
	if err := s.keys.Set(keyUser, string(userData)); err != nil {
		return errors.Wrap(err, "persist user")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAuthenticated
	s.initialized = true
	s.token = grant.Token
	s.user = grant.User
	s.lg.Info("Logged in", zap.String("user", grant.User.Name))
	s.notifyLocked()
	return nil
}

// Logout clears the session and erases the persisted pair. Initialized stays
// true. Keystore failures are logged, not surfaced: the in-memory session is
// already gone and the stale file will be discarded on the next restore.
func (s *Store) Logout() {
	s.mu.Lock()
	s.state = StateAnonymous
	s.initialized = true
	s.token = ""
	s.user = User{}
	s.notifyLocked()
	s.mu.Unlock()

	if err := s.keys.Delete(keyToken, keyUser); err != nil {
		s.lg.Warn("Failed to erase persisted session", zap.Error(err))
	}
	s.lg.Info("Logged out")
}

// snapshotLocked builds a Snapshot. Must be called with s.mu held.
func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		State:         s.state,
		Initialized:   s.initialized,
		Authenticated: s.state == StateAuthenticated,
		Token:         s.token,
		User:          s.user,
	}
}

// notifyLocked signals a state transition without blocking. Must be called
// with s.mu held.
func (s *Store) notifyLocked() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

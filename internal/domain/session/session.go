// Package session is the single source of truth for "who is logged in".
//
// The store moves through four states: it starts uninitialized, enters
// restoring while the persisted session is read back, and settles in either
// authenticated or anonymous. Once a terminal state is reached the store is
// initialized for the rest of the process lifetime; logout returns it to
// anonymous but never to uninitialized. Downstream consumers must gate
// authenticated decisions on Initialized, not on any in-flight indicator.
package session

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
)

// State identifies where the session is in its lifecycle.
type State int

const (
	// StateUninitialized is the initial state before restoration has started.
	StateUninitialized State = iota
	// StateRestoring means a restore from persisted storage is in progress.
	StateRestoring
	// StateAuthenticated means a valid token and user are held.
	StateAuthenticated
	// StateAnonymous means no session is held. Terminal alongside
	// StateAuthenticated: entering either sets Initialized.
	StateAnonymous
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRestoring:
		return "restoring"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Role distinguishes customer accounts from back-office accounts.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is the identity record attached to an authenticated session.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Valid reports whether the record passes the minimal shape check applied
// during restoration: id, name, and email must all be present. Role is
// optional and defaults to customer.
func (u User) Valid() bool {
	return u.ID != "" && u.Name != "" && u.Email != ""
}

// parseUser decodes a persisted user record and applies the shape check.
func parseUser(data string) (User, error) {
	var u User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return User{}, errors.Wrap(err, "parse user")
	}
	if !u.Valid() {
		return User{}, errors.New("user record missing id, name, or email")
	}
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	return u, nil
}

// Snapshot is an immutable view of the session at a point in time.
type Snapshot struct {
	State         State
	Initialized   bool
	Authenticated bool
	Token         string
	User          User
}

// Grant is the credential pair returned by the authentication endpoints.
type Grant struct {
	Token string
	User  User
}

// Credentials are the inputs to the login endpoint.
type Credentials struct {
	Email    string
	Password string
}

// Profile are the inputs to the registration endpoint.
type Profile struct {
	Name     string
	Email    string
	Password string
}

// AuthAPI is the slice of the backend contract the session store depends on.
type AuthAPI interface {
	Login(ctx context.Context, creds Credentials) (*Grant, error)
	Register(ctx context.Context, profile Profile) (*Grant, error)
}

// Keystore is the durable client-side storage holding the persisted session
// pair between runs.
type Keystore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(keys ...string) error
}

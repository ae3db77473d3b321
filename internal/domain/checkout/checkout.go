// Package checkout turns a non-empty cart plus shipping and payment selection
// into a server-side order and settles the cart according to the chosen
// payment method.
package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/velora/storefront/internal/domain/cart"
)

// Method enumerates the supported payment methods.
type Method string

const (
	// MethodCOD is cash on delivery: the order settles on delivery, so the
	// cart clears as soon as the order is confirmed.
	MethodCOD Method = "cod"
	// MethodCard is the mock card flow: the cart clears only after the card
	// payment reports success.
	MethodCard Method = "card"
	// MethodRedirect hands settlement to a hosted external payment page via a
	// signed form POST; the cart clears eagerly and the page's later callback
	// is out of scope.
	MethodRedirect Method = "redirect"
)

// Valid reports whether m is a known payment method.
func (m Method) Valid() bool {
	switch m {
	case MethodCOD, MethodCard, MethodRedirect:
		return true
	}
	return false
}

// Address holds the shipping address. All fields except State and Country are
// required.
type Address struct {
	FirstName string
	LastName  string
	Email     string
	Street    string
	City      string
	State     string
	Zipcode   string
	Country   string
	Phone     string
}

// MissingFieldError reports a required address field that was left empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required address field: " + e.Field
}

// Validate checks the required fields.
func (a Address) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", a.FirstName},
		{"lastName", a.LastName},
		{"email", a.Email},
		{"street", a.Street},
		{"city", a.City},
		{"zipcode", a.Zipcode},
		{"phone", a.Phone},
	}
	for _, f := range required {
		if f.value == "" {
			return &MissingFieldError{Field: f.name}
		}
	}
	return nil
}

// OrderRequest is the payload submitted to the orders endpoint.
type OrderRequest struct {
	Items   []cart.Line
	Address Address
	Method  Method
}

// Redirect carries the signed payload for an external hosted payment page:
// a target URL and the opaque fields to be form-POSTed to it.
type Redirect struct {
	URL    string
	Fields map[string]string
}

// Status describes where a checkout ended up.
type Status string

const (
	// StatusConfirmed means the order is placed and the cart is cleared.
	StatusConfirmed Status = "confirmed"
	// StatusAwaitingCard means the order exists server-side in a pending state
	// and the card collection flow must now run; the cart is untouched.
	StatusAwaitingCard Status = "awaiting_card"
	// StatusRedirect means the order exists and the caller must submit the
	// Redirect payload to the external page; the cart is already cleared.
	StatusRedirect Status = "redirect"
)

// Result is the outcome of a successful PlaceOrder call.
type Result struct {
	OrderID  string
	Total    decimal.Decimal
	Status   Status
	Redirect *Redirect // set only for MethodRedirect
}

// OrderAPI is the slice of the backend contract the orchestrator depends on.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req OrderRequest) (orderID string, err error)
	ProcessCOD(ctx context.Context, orderID string) error
	CreatePaymentSession(ctx context.Context, orderID string, amount decimal.Decimal) (*Redirect, error)
	ConfirmCardPayment(ctx context.Context, orderID string) error
}

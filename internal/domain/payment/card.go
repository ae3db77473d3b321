// Package payment implements the mock card payment flow. Card numbers are
// validated client-side with a Luhn check and charged against a simulated
// gateway that recognizes the usual test card numbers; no real payment network
// is ever contacted.
package payment

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validation and gateway errors. All are user-facing and surfaced verbatim.
var (
	ErrMissingFields     = errors.New("please fill in all required fields")
	ErrInvalidCardNumber = errors.New("please enter a valid card number")
	ErrInvalidExpiry     = errors.New("please enter a valid expiry date (MM/YY)")
	ErrInvalidCVC        = errors.New("please enter a valid CVC")

	ErrCardDeclined      = errors.New("your card was declined")
	ErrInsufficientFunds = errors.New("your card has insufficient funds")
	ErrCardExpired       = errors.New("your card has expired")
)

// Card holds the collected card details.
type Card struct {
	Number string // digits, spaces allowed
	Expiry string // MM/YY
	CVC    string
	Zip    string
}

// normalized returns the card number with spaces stripped.
func (c Card) normalized() string {
	return strings.ReplaceAll(c.Number, " ", "")
}

// Validate applies the client-side checks: presence, Luhn, expiry shape, and
// CVC length. It makes no network call.
func (c Card) Validate() error {
	if c.Number == "" || c.Expiry == "" || c.CVC == "" {
		return ErrMissingFields
	}
	if !Luhn(c.normalized()) {
		return ErrInvalidCardNumber
	}
	if len(c.Expiry) != 5 || c.Expiry[2] != '/' {
		return ErrInvalidExpiry
	}
	if len(c.CVC) < 3 {
		return ErrInvalidCVC
	}
	return nil
}

// Luhn reports whether number (digits only) passes the Luhn checksum and has
// a plausible card length.
func Luhn(number string) bool {
	if len(number) < 13 || len(number) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := number[i]
		if d < '0' || d > '9' {
			return false
		}
		digit := int(d - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}

// Gateway charges a card for an order.
type Gateway interface {
	Charge(ctx context.Context, card Card, orderID string, amount decimal.Decimal) error
}

// Test card numbers with fixed outcomes, mirroring the usual gateway test set.
const (
	TestCardDeclined          = "4000000000000002"
	TestCardInsufficientFunds = "4000000000009995"
	TestCardExpired           = "4000000000000069"
)

// MockGateway simulates a card processor. Known decline numbers fail with
// their designated reason; every other Luhn-valid card succeeds.
type MockGateway struct{}

// NewMockGateway returns a MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Charge validates the card and returns the simulated outcome.
func (g *MockGateway) Charge(ctx context.Context, card Card, _ string, _ decimal.Decimal) error {
	if err := card.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch card.normalized() {
	case TestCardDeclined:
		return ErrCardDeclined
	case TestCardInsufficientFunds:
		return ErrInsufficientFunds
	case TestCardExpired:
		return ErrCardExpired
	default:
		return nil
	}
}

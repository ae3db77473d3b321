package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/velora/storefront/internal/domain/cart"
	"github.com/velora/storefront/internal/domain/payment"
)

// Sentinel errors for checkout preconditions. All surface before the order is
// created, so they carry no side effects.
var (
	ErrNotAuthenticated = errors.New("please login to place an order")
	ErrEmptyCart        = errors.New("your cart is empty")
	ErrInvalidMethod    = errors.New("unknown payment method")
	ErrCardRequired     = errors.New("card details required")
)

// SettlementError reports a failure after the order was already created. The
// order is not retracted; the user resolves it from order history.
type SettlementError struct {
	OrderID string
	Err     error
}

func (e *SettlementError) Error() string {
	return "order " + e.OrderID + " created but settlement failed: " + e.Err.Error()
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}

// AuthState exposes the session fact the orchestrator gates on.
type AuthState interface {
	Authenticated() bool
}

// Orchestrator drives the checkout protocol.
type Orchestrator struct {
	cart        *cart.Store
	prices      cart.Pricer
	orders      OrderAPI
	gateway     payment.Gateway
	auth        AuthState
	deliveryFee decimal.Decimal
	lg          *zap.Logger
}

// NewOrchestrator creates an Orchestrator with the given collaborators.
func NewOrchestrator(
	cartStore *cart.Store,
	prices cart.Pricer,
	orders OrderAPI,
	gateway payment.Gateway,
	auth AuthState,
	deliveryFee decimal.Decimal,
	lg *zap.Logger,
) *Orchestrator {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Orchestrator{
		cart:        cartStore,
		prices:      prices,
		orders:      orders,
		gateway:     gateway,
		auth:        auth,
		deliveryFee: deliveryFee,
		lg:          lg,
	}
}

// PlaceOrder validates the cart and address, creates the server order, and
// settles according to the payment method:
//
//   - MethodCOD: the settlement call runs immediately, then the cart clears
//     (local and best-effort server). Result is StatusConfirmed.
//   - MethodCard: the order is created and returned as StatusAwaitingCard with
//     the cart untouched; the caller runs the card flow and calls
//     CompleteCardPayment on success. Abandoning the flow leaves the order
//     pending server-side, visible in order history.
//   - MethodRedirect: the signed payment payload is fetched, the cart clears
//     eagerly, and the Result carries the Redirect for the caller to submit.
//
// Any failure before order creation aborts with no side effects. A failure
// after the order exists is returned as a *SettlementError and does not
// retract the order.
func (o *Orchestrator) PlaceOrder(ctx context.Context, addr Address, method Method) (*Result, error) {
	if !o.auth.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	if !method.Valid() {
		return nil, ErrInvalidMethod
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	if o.cart.Empty() {
		return nil, ErrEmptyCart
	}

	// Cross-reference the catalog: lines whose product is gone are dropped,
	// and checkout is refused if nothing survives.
	lines, dropped := o.cart.Lines(o.prices)
	if dropped > 0 {
		o.lg.Warn("Dropped stale cart lines at checkout", zap.Int("count", dropped))
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	total := o.cart.Amount(o.prices).Add(o.deliveryFee)

	orderID, err := o.orders.CreateOrder(ctx, OrderRequest{
		Items:   lines,
		Address: addr,
		Method:  method,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	o.lg.Info("Order created",
		zap.String("order_id", orderID),
		zap.String("method", string(method)),
		zap.String("total", total.String()),
	)

	result := &Result{OrderID: orderID, Total: total}

	switch method {
	case MethodCOD:
		if err := o.orders.ProcessCOD(ctx, orderID); err != nil {
			return result, &SettlementError{OrderID: orderID, Err: err}
		}
		o.settle(ctx, orderID)
		result.Status = StatusConfirmed
		return result, nil

	case MethodCard:
		result.Status = StatusAwaitingCard
		return result, nil

	case MethodRedirect:
		redirect, err := o.orders.CreatePaymentSession(ctx, orderID, total)
		if err != nil {
			return result, &SettlementError{OrderID: orderID, Err: err}
		}
		// The cart clears before the external page confirms settlement. This
		// mirrors the shipped behaviour; see DESIGN.md for the policy note.
		o.settle(ctx, orderID)
		result.Status = StatusRedirect
		result.Redirect = redirect
		return result, nil
	}

	return nil, ErrInvalidMethod
}

// CompleteCardPayment runs the mock card charge for an order previously
// returned as StatusAwaitingCard. On success the backend is notified and the
// cart clears; on any failure the cart is left untouched and the order stays
// pending server-side.
func (o *Orchestrator) CompleteCardPayment(ctx context.Context, orderID string, amount decimal.Decimal, card payment.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}
	if err := o.gateway.Charge(ctx, card, orderID, amount); err != nil {
		return errors.Wrap(err, "charge card")
	}
	if err := o.orders.ConfirmCardPayment(ctx, orderID); err != nil {
		return &SettlementError{OrderID: orderID, Err: err}
	}

	o.settle(ctx, orderID)
	o.lg.Info("Card payment confirmed", zap.String("order_id", orderID))
	return nil
}

// settle clears the cart after an order reached a settled (or delegated)
// state: local immediately, server best effort.
func (o *Orchestrator) settle(ctx context.Context, orderID string) {
	o.cart.ClearOnServer(ctx)
	o.cart.ClearLocal()
	o.lg.Debug("Cart settled", zap.String("order_id", orderID))
}

package api

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/velora/storefront/internal/domain/checkout"
)

// CreateOrder registers a pending order for the current account and returns
// its identifier. Settlement happens in a second call depending on the
// payment method.
func (c *Client) CreateOrder(ctx context.Context, req checkout.OrderRequest) (string, error) {
	var e jx.Encoder
	e.ObjStart()

	e.FieldStart("items")
	e.ArrStart()
	for _, line := range req.Items {
		e.Obj(func(e *jx.Encoder) {
			e.FieldStart("productId")
			e.Str(line.ProductID)
			e.FieldStart("size")
			e.Str(line.Size)
			e.FieldStart("quantity")
			e.Int(line.Quantity)
		})
	}
	e.ArrEnd()

	e.FieldStart("shippingAddress")
	encodeAddress(&e, req.Address)

	e.FieldStart("paymentMethod")
	e.Str(string(req.Method))

	e.ObjEnd()

	data, err := c.do(ctx, http.MethodPost, "/orders", e.Bytes())
	if err != nil {
		return "", errors.Wrap(err, "create order")
	}

	var orderID string
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "id" {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		orderID = v
		return nil
	}); err != nil {
		return "", errors.Wrap(err, "decode order")
	}
	if orderID == "" {
		return "", errors.New("order response missing id")
	}
	return orderID, nil
}

// ProcessCOD marks an order as payable on delivery.
func (c *Client) ProcessCOD(ctx context.Context, orderID string) error {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(orderID)
	e.ObjEnd()

	if _, err := c.do(ctx, http.MethodPost, "/payments/cod/process", e.Bytes()); err != nil {
		return errors.Wrap(err, "process cod")
	}
	return nil
}

// CreatePaymentSession asks the backend to sign a hosted-page payment session
// for the order and returns the redirect payload.
func (c *Client) CreatePaymentSession(ctx context.Context, orderID string, amount decimal.Decimal) (*checkout.Redirect, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(orderID)
	e.FieldStart("amount")
	e.Num(jx.Num(amount.String()))
	e.ObjEnd()

	data, err := c.do(ctx, http.MethodPost, "/payments/redirect/session", e.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "create payment session")
	}

	redirect := &checkout.Redirect{Fields: make(map[string]string)}
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "paymentUrl":
			v, err := d.Str()
			if err != nil {
				return err
			}
			redirect.URL = v
			return nil
		case "paymentData":
			return d.Obj(func(d *jx.Decoder, field string) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				redirect.Fields[field] = v
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode payment session")
	}
	if redirect.URL == "" {
		return nil, errors.New("payment session missing url")
	}
	return redirect, nil
}

// ConfirmCardPayment reports a successful card charge for the order.
func (c *Client) ConfirmCardPayment(ctx context.Context, orderID string) error {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(orderID)
	e.ObjEnd()

	if _, err := c.do(ctx, http.MethodPost, "/payments/card/confirm", e.Bytes()); err != nil {
		return errors.Wrap(err, "confirm card payment")
	}
	return nil
}

func encodeAddress(e *jx.Encoder, a checkout.Address) {
	e.Obj(func(e *jx.Encoder) {
		e.FieldStart("firstName")
		e.Str(a.FirstName)
		e.FieldStart("lastName")
		e.Str(a.LastName)
		e.FieldStart("email")
		e.Str(a.Email)
		e.FieldStart("street")
		e.Str(a.Street)
		e.FieldStart("city")
		e.Str(a.City)
		e.FieldStart("state")
		e.Str(a.State)
		e.FieldStart("zipcode")
		e.Str(a.Zipcode)
		e.FieldStart("country")
		e.Str(a.Country)
		e.FieldStart("phone")
		e.Str(a.Phone)
	})
}

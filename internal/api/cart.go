package api

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/velora/storefront/internal/domain/cart"
)

// FetchCart returns the authoritative cart lines for the current account.
func (c *Client) FetchCart(ctx context.Context) ([]cart.Line, error) {
	data, err := c.do(ctx, http.MethodGet, "/cart", nil)
	if err != nil {
		return nil, errors.Wrap(err, "fetch cart")
	}

	var lines []cart.Line
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			line, err := decodeCartLine(d)
			if err != nil {
				return err
			}
			lines = append(lines, line)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return lines, nil
}

// AddCartItem adds quantity units of a product variant to the server cart.
func (c *Client) AddCartItem(ctx context.Context, productID, size string, quantity int) error {
	body := encodeCartLine(productID, size, quantity)
	if _, err := c.do(ctx, http.MethodPost, "/cart/add", body); err != nil {
		return errors.Wrap(err, "add cart item")
	}
	return nil
}

// UpdateCartItem sets the absolute quantity of a product variant. Zero removes
// the variant server-side.
func (c *Client) UpdateCartItem(ctx context.Context, productID, size string, quantity int) error {
	body := encodeCartLine(productID, size, quantity)
	if _, err := c.do(ctx, http.MethodPut, "/cart/update", body); err != nil {
		return errors.Wrap(err, "update cart item")
	}
	return nil
}

// RemoveCartItem drops a product variant from the server cart entirely.
func (c *Client) RemoveCartItem(ctx context.Context, productID, size string) error {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("productId")
	e.Str(productID)
	e.FieldStart("size")
	e.Str(size)
	e.ObjEnd()

	if _, err := c.do(ctx, http.MethodDelete, "/cart/remove", e.Bytes()); err != nil {
		return errors.Wrap(err, "remove cart item")
	}
	return nil
}

// ClearCart empties the server cart after a settled order.
func (c *Client) ClearCart(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodDelete, "/cart", nil); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

func encodeCartLine(productID, size string, quantity int) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("productId")
	e.Str(productID)
	e.FieldStart("size")
	e.Str(size)
	e.FieldStart("quantity")
	e.Int(quantity)
	e.ObjEnd()
	return e.Bytes()
}

func decodeCartLine(d *jx.Decoder) (cart.Line, error) {
	var line cart.Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			v, err := d.Str()
			if err != nil {
				return err
			}
			line.ProductID = v
			return nil
		case "size":
			v, err := d.Str()
			if err != nil {
				return err
			}
			line.Size = v
			return nil
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return err
			}
			line.Quantity = v
			return nil
		default:
			return d.Skip()
		}
	})
	return line, err
}

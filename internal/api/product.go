package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/velora/storefront/internal/domain/catalog"
)

// ListProducts fetches the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	data, err := c.do(ctx, http.MethodGet, "/products", nil)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	var products []catalog.Product
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "products" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			p, err := decodeProduct(d)
			if err != nil {
				return err
			}
			products = append(products, p)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

func decodeProduct(d *jx.Decoder) (catalog.Product, error) {
	var p catalog.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			p.ID = v
			return nil
		case "name":
			v, err := d.Str()
			if err != nil {
				return err
			}
			p.Name = v
			return nil
		case "price":
			n, err := d.Num()
			if err != nil {
				return err
			}
			// The backend serves prices as JSON numbers, but a string-quoted
			// number is accepted too.
			price, err := decimal.NewFromString(strings.Trim(string(n), `"`))
			if err != nil {
				return errors.Wrap(err, "parse price")
			}
			p.Price = price
			return nil
		case "category":
			v, err := d.Str()
			if err != nil {
				return err
			}
			p.Category = v
			return nil
		case "sizes":
			return d.Arr(func(d *jx.Decoder) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				p.Sizes = append(p.Sizes, v)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return p, err
}

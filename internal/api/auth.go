package api

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/velora/storefront/internal/domain/session"
)

// Login exchanges credentials for a token and user record.
func (c *Client) Login(ctx context.Context, creds session.Credentials) (*session.Grant, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("email")
	e.Str(creds.Email)
	e.FieldStart("password")
	e.Str(creds.Password)
	e.ObjEnd()

	data, err := c.do(ctx, http.MethodPost, "/auth/login", e.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "login")
	}
	return decodeGrant(data)
}

// Register creates a new account and returns its first grant.
func (c *Client) Register(ctx context.Context, profile session.Profile) (*session.Grant, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("name")
	e.Str(profile.Name)
	e.FieldStart("email")
	e.Str(profile.Email)
	e.FieldStart("password")
	e.Str(profile.Password)
	e.ObjEnd()

	data, err := c.do(ctx, http.MethodPost, "/auth/register", e.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "register")
	}
	return decodeGrant(data)
}

func decodeGrant(data []byte) (*session.Grant, error) {
	var grant session.Grant
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "token":
			v, err := d.Str()
			if err != nil {
				return err
			}
			grant.Token = v
			return nil
		case "user":
			u, err := decodeUser(d)
			if err != nil {
				return err
			}
			grant.User = u
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode grant")
	}
	return &grant, nil
}

func decodeUser(d *jx.Decoder) (session.User, error) {
	var u session.User
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			u.ID = v
			return nil
		case "name":
			v, err := d.Str()
			if err != nil {
				return err
			}
			u.Name = v
			return nil
		case "email":
			v, err := d.Str()
			if err != nil {
				return err
			}
			u.Email = v
			return nil
		case "role":
			v, err := d.Str()
			if err != nil {
				return err
			}
			u.Role = session.Role(v)
			return nil
		default:
			return d.Skip()
		}
	})
	return u, err
}

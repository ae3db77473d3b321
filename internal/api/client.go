// Package api implements the typed client for the storefront backend. The
// backend is an external collaborator: this package owns only the request and
// response shapes, never the server's behaviour.
//
// Authentication, request IDs, logging, and tracing are attached by the
// transport the client is constructed with (see pkg/httpclient), so methods
// here deal purely with paths and bodies.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// maxResponseSize bounds how much of a response body is read. The catalog is
// the largest expected payload and stays well under this.
const maxResponseSize = 8 << 20

// Client talks to the storefront backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the backend at baseURL (e.g.
// "https://api.example.com/api"). A nil http.Client falls back to the default.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// Error is a non-2xx response from the backend, flattened to the short
// message the UI surfaces.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server error: HTTP %d", e.Status)
}

// IsAuthError reports whether err is a backend rejection for a missing or
// expired credential.
func IsAuthError(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// do sends a request and returns the raw response body. Bodies are JSON both
// ways; non-2xx responses are converted to *Error.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(resp.StatusCode, data)
	}
	return data, nil
}

// parseError extracts the message field from a JSON error body. Bodies that
// are not JSON objects fall back to the status code alone.
func parseError(status int, data []byte) *Error {
	apiErr := &Error{Status: status}

	d := jx.DecodeBytes(data)
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "message" {
			return d.Skip()
		}
		msg, err := d.Str()
		if err != nil {
			return err
		}
		apiErr.Message = msg
		return nil
	})
	return apiErr
}

// Package httpclient provides composable http.RoundTripper middleware for the
// outgoing backend connection: request ID tagging, bearer token injection, and
// request logging.
package httpclient

import "net/http"

// Middleware wraps an http.RoundTripper with additional behaviour.
type Middleware func(http.RoundTripper) http.RoundTripper

// roundTripperFunc adapts a function to the http.RoundTripper interface.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Wrap applies middlewares to rt. The first middleware in the list is the
// outermost: Wrap(rt, a, b) produces a(b(rt)).
func Wrap(rt http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

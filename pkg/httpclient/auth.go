package httpclient

import "net/http"

// TokenSource supplies the current bearer token for authenticated requests.
// An empty token means the client is anonymous and no header is attached.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// BearerAuth returns a middleware that attaches an Authorization header with
// the token from src. The token is read per request, so requests issued after
// login or logout pick up the new session state without rebuilding the client.
func BearerAuth(src TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			tok := src.Token()
			if tok == "" || r.Header.Get("Authorization") != "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set("Authorization", "Bearer "+tok)
			return next.RoundTrip(r)
		})
	}
}

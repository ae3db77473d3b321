package checkout

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
)

// SubmitRedirect form-POSTs the signed payment fields to the hosted payment
// page. The provider responds with its own page; the body is discarded here
// since the caller only needs to know the handoff was accepted.
func SubmitRedirect(ctx context.Context, hc *http.Client, r *Redirect) error {
	if r == nil || r.URL == "" {
		return errors.New("redirect payload missing url")
	}

	form := url.Values{}
	for k, v := range r.Fields {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build redirect request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := hc.Do(req)
	if err != nil {
		return errors.Wrap(err, "submit redirect")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return errors.Errorf("payment page rejected handoff: HTTP %d", resp.StatusCode)
	}
	return nil
}

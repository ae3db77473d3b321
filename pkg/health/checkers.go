package health

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
)

// HTTPCheck returns a CheckFunc that performs a GET against url with the given
// client and reports unhealthy on connection errors or non-2xx responses.
// This is the standard check for the backend API's health endpoint.
func HTTPCheck(client *http.Client, url string) CheckFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrap(err, "build request")
		}

		resp, err := client.Do(req)
		if err != nil {
			return errors.Wrap(err, "backend unreachable")
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return errors.Errorf("backend returned status %d", resp.StatusCode)
		}
		return nil
	}
}

package target

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"membench/internal/harness"
)

// HTTPTarget measures a single HTTP endpoint.
type HTTPTarget struct {
	client *http.Client
	url    string
}

// NewHTTPTarget creates an HTTP target for the given URL. A zero timeout
// falls back to 30 seconds.
func NewHTTPTarget(url string, timeout time.Duration) *HTTPTarget {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTarget{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

// GetOp returns an operation that issues a GET and treats any non-2xx
// response as a failure. The body is drained so connections are reused.
func (t *HTTPTarget) GetOp() harness.Operation {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, t.url)
		}
		return nil
	}
}

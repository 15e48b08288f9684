package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ignite/lead-verifier/internal/pkg/httpretry"
)

// maxStatusBody bounds the status response; a real line is well under 1 KiB.
const maxStatusBody = 64 << 10

// StatusClient polls the provider status endpoint.
type StatusClient struct {
	statusURL  string
	secret     string
	httpClient httpretry.HTTPDoer
}

// NewStatusClient creates a status client on a plain http.Client. Status
// polls are never retried; the next tick polls again.
func NewStatusClient(statusURL, secret string, timeout time.Duration) *StatusClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StatusClient{
		statusURL:  statusURL,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *StatusClient) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// FetchStatus fetches and parses the status line for fileID. Every failure
// mode wraps ErrStatusUnavailable.
func (c *StatusClient) FetchStatus(ctx context.Context, fileID string) (*StatusDescriptor, error) {
	u, err := url.Parse(c.statusURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad status url: %v", ErrStatusUnavailable, err)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	q.Set("id", fileID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrStatusUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrStatusUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrStatusUnavailable, resp.StatusCode)
	}

	return ParseStatusLine(string(body))
}

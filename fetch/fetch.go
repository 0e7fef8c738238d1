// Package fetch retrieves raw HTML over HTTP for normalization.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 10 * time.Second

const defaultUserAgent = "pagesift/1.0 (structural page comparison)"

// Error describes a failed fetch, keeping the URL and whether the failure
// was a timeout so callers can report per-page failures precisely.
type Error struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	if e.Timeout {
		return fmt.Sprintf("fetching %s: timed out: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client fetches pages with a bounded timeout and a stable User-Agent.
// The zero value is usable, and a Client is safe for concurrent use once
// its fields are set.
type Client struct {
	Timeout   time.Duration
	UserAgent string

	initOnce   sync.Once
	httpClient *http.Client
}

// Fetch retrieves the raw HTML at url. Non-2xx responses are errors.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	c.initOnce.Do(func() {
		timeout := c.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}

	agent := c.UserAgent
	if agent == "" {
		agent = defaultUserAgent
	}
	req.Header.Set("User-Agent", agent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{URL: url, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{URL: url, Err: fmt.Errorf("HTTP error: %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: url, Err: fmt.Errorf("reading response body: %w", err)}
	}
	return string(body), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

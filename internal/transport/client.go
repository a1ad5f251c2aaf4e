// Package transport fetches the upstream buildings feed as a byte stream.
// The core pipeline only sees io.ReadCloser; whether the bytes came from a
// full request or a partial-range request is decided here.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrPreviewUnavailable is returned by FetchRange when the source does not
// honor byte-range requests. Callers treat it as "preview unavailable", not
// as a failure.
var ErrPreviewUnavailable = errors.New("source does not support range requests")

// Client issues requests against the buildings feed URL.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient creates a feed client. The timeout bounds connection
// establishment and response headers only; reading the streamed body is
// bounded by the caller's context, since a full feed can legitimately take
// longer than any fixed request timeout.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: timeout,
			},
		},
		url: url,
	}
}

// Fetch opens the primary stream over the whole feed. The returned body
// must be closed by the caller. A non-success status is a terminal
// transport error.
func (c *Client) Fetch(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("feed request failed with status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// FetchRange opens a speculative stream over the first limit bytes of the
// feed. If the source answers with anything but 206 Partial Content the
// preview is unavailable and ErrPreviewUnavailable is returned.
func (c *Client) FetchRange(ctx context.Context, limit int64) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build range request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", limit))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed range: %w", err)
	}
	if resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, ErrPreviewUnavailable
	}
	return resp.Body, nil
}

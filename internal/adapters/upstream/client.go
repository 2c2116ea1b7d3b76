// Package upstream talks to the WFS, REST and Overpass providers.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBody bounds a single upstream response.
const maxBody = 64 << 20

// Config holds upstream HTTP settings.
type Config struct {
	Timeout      time.Duration
	APIKey       string
	APIKeyHeader string
	UserAgent    string
	MaxPages     int
}

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Client implements ports.Upstream over net/http.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 30
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = "X-Api-Key"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// setHeaders applies the headers every upstream request carries.
func (c *Client) setHeaders(req *http.Request, useKey bool) {
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if useKey && c.cfg.APIKey != "" {
		req.Header.Set(c.cfg.APIKeyHeader, c.cfg.APIKey)
	}
}

// get fetches rawURL and returns the body and response headers.
func (c *Client) get(ctx context.Context, rawURL string, useKey bool) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req, useKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("get %s: %w", redact(rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, nil, &StatusError{URL: redact(rawURL), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", redact(rawURL), err)
	}
	return body, resp.Header, nil
}

// redact trims the query string so logs and diagnostics stay short.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

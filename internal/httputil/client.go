// Package httputil provides the JSON HTTP client shared by the engine's
// external collaborators (product catalog, order submission).
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a thin JSON client against one collaborator base URL. Transient
// upstream failures (502, 503, 504) are retried a bounded number of times.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// New creates a collaborator client. A zero Timeout defaults to 10s, a zero
// MaxRetries to 2.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: maxRetries,
	}
}

// Do executes a request with a JSON body (nil for none) and bounded retries
// on transient upstream statuses.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	return c.do(ctx, method, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, header http.Header) (*http.Response, error) {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = encoded
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for name, values := range header {
			for _, value := range values {
				req.Header.Add(name, value)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		if !transientStatus(resp.StatusCode) || attempt == c.maxRetries {
			return resp, nil
		}
		lastErr = fmt.Errorf("upstream returned status %d", resp.StatusCode)
		resp.Body.Close()
	}
	return nil, lastErr
}

func transientStatus(code int) bool {
	return code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// PostWithHeader performs a POST request with a JSON body and extra headers.
// Retries reuse the same header values, which matters for idempotency keys.
func (c *Client) PostWithHeader(ctx context.Context, path string, body interface{}, header http.Header) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body, header)
}

// DecodeResponse decodes a JSON response into target, treating any status of
// 400 or above as an error carrying a truncated copy of the body.
func DecodeResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, truncated, err := readAllWithLimit(resp.Body, 64<<10)
		if err != nil {
			return fmt.Errorf("read error response body: %w", err)
		}
		msg := strings.TrimSpace(string(body))
		if truncated {
			msg += "...(truncated)"
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, msg)
	}

	if target == nil {
		if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, 8<<20)); err != nil {
			return fmt.Errorf("discard response body: %w", err)
		}
		return nil
	}

	body, _, err := readAllWithLimit(resp.Body, 8<<20)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readAllWithLimit reads up to limit bytes and reports whether the body was
// truncated.
func readAllWithLimit(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

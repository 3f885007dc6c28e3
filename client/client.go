// Package client implements the PriceWatch resource client: a thin, typed
// transport shim over the backend REST API.
//
// Contract:
//   - Each method issues exactly one HTTP call and returns the parsed response
//     body, or one of the three error kinds from errors.go.
//   - No retries, no caching. Read-through caching and invalidation live in
//     querycache and products; the client stays a pure transport.
//   - Every request carries an X-Request-ID for correlation. The check-now
//     action additionally carries an Idempotency-Key so the backend can drop
//     duplicate checks from impatient callers.
//
// Design Notes:
//   - Outbound calls pass through a token-bucket limiter (golang.org/x/time/rate)
//     so a burst of cache misses cannot hammer the backend.
//   - Timeouts are owned by the injected http.Client and the caller's context.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Config holds client construction parameters. Zero values fall back to
// defaults via withDefaults.
type Config struct {
	// BaseURL of the backend API, e.g. "https://api.pricewatch.example".
	BaseURL string
	// Token returns the current bearer credential. Optional; when nil no
	// Authorization header is sent (the session layer owns auth).
	Token func() string
	// HTTPClient to issue requests with. Optional.
	HTTPClient *http.Client
	// RequestsPerSecond caps outbound request rate. Zero means default.
	RequestsPerSecond float64
	// Burst is the limiter bucket size. Zero means default.
	Burst int
}

const (
	defaultTimeout = 15 * time.Second
	defaultRPS     = 20
	defaultBurst   = 40
)

func (c Config) withDefaults() Config {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultRPS
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
	return c
}

// Client is the PriceWatch API client. Safe for concurrent use.
type Client struct {
	base     *url.URL
	http     *http.Client
	token    func() string
	limiter  *rate.Limiter
	validate *validator.Validate
}

// New creates a client for the given backend.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	cfg = cfg.withDefaults()

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("client: invalid BaseURL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: BaseURL must be absolute: %q", cfg.BaseURL)
	}

	return &Client{
		base:     base,
		http:     cfg.HTTPClient,
		token:    cfg.Token,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		validate: validator.New(),
	}, nil
}

// apiError is the backend's error body shape.
type apiError struct {
	Detail string `json:"detail"`
}

// do issues a single request and decodes a 2xx JSON body into out (out may be
// nil for empty responses). Extra headers, if any, are set verbatim.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, headers http.Header) error {
	op := method + " " + path

	if err := c.limiter.Wait(ctx); err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode %s: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("client: build %s: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serverErr := &ServerError{Op: op, Status: resp.StatusCode, RequestID: requestID}
		var apiErr apiError
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); readErr == nil {
			if json.Unmarshal(data, &apiErr) == nil {
				serverErr.Detail = apiErr.Detail
			}
		}
		return serverErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Package api is the typed client for the ShareYourSales REST backend.
// Every response has one explicit schema; there is no shape-sniffing of
// payloads. Reads go through the query cache, and each mutation declares the
// cache keys it invalidates on success.
package api

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

	"github.com/epitaphe360/shareyoursales-go/cache"
	interrors "github.com/epitaphe360/shareyoursales-go/internal/errors"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TokenSource supplies the bearer credential attached to every request.
// The session store implements it; an empty token sends no Authorization
// header.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource for tools and tests.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// ErrorResponse is the backend's error body.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// APIError carries the HTTP status and the server-provided message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client talks to the ShareYourSales backend. Reads are retried once on
// transport or 5xx failure; writes are never silently retried.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	cache   *cache.Cache
	logger  zerolog.Logger
}

// ClientOption modifies a Client at construction time.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTokenSource sets the bearer token source.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

func NewClient(baseURL string, queryCache *cache.Cache, logger zerolog.Logger, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, pkgerrors.New("[NewClient] baseURL is required")
	}
	if queryCache == nil {
		return nil, pkgerrors.New("[NewClient] queryCache is required")
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		cache:   queryCache,
		logger:  logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// SetTokenSource wires the session store in after construction. The session
// store itself needs the client for its auth calls, so this is set last.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// Cache exposes the query cache backing this client.
func (c *Client) Cache() *cache.Cache {
	return c.cache
}

// get performs a single GET and decodes the response into out. The one
// read retry lives in the cache layer, so direct callers like session
// verification degrade on first failure instead of retrying.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// post, put and delete are single-shot: a failed write is surfaced, never
// replayed.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return interrors.Wrapf(err, "api encode %s %s", method, path)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return interrors.Wrapf(err, "api request %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return interrors.Wrapf(interrors.ErrRequestFailed, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.errorFrom(resp, method, path)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error().Str("method", method).Str("path", path).Err(err).Msg("malformed response body")
		return interrors.Wrapf(interrors.ErrDecodeResponse, "%s %s: %v", method, path, err)
	}
	return nil
}

func (c *Client) errorFrom(resp *http.Response, method, path string) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Detail != "" {
		apiErr.Message = body.Detail
	}

	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Str("detail", apiErr.Message).Msg("api error")
	return apiErr
}

// invalidate applies a mutation's declared invalidation set. Prefix
// invalidation makes the set a superset of every narrower key.
func (c *Client) invalidate(keys ...cache.Key) {
	for _, key := range keys {
		c.cache.InvalidatePrefix(key)
	}
}

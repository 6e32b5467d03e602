// Package api is the HTTP client for the natours REST backend.
//
// Authenticated calls take an oauth2.TokenSource; the session manager is
// one. When a request that carried a bearer token is answered with 401 the
// client reports that token through the unauthorized handler, which is how
// an expired session gets cleared from any call site.
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
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/SmileSnow819/natours/pkg/autherr"
	"github.com/SmileSnow819/natours/pkg/logging"
)

// DefaultBaseURL is used when Config.BaseURL is empty.
const DefaultBaseURL = "http://localhost:8000/api/v1"

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 4 << 20

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration // per request; 0 means no client-side timeout
	UserAgent string
}

// UnauthorizedHandler receives the token of a request answered with 401.
type UnauthorizedHandler func(token string)

// Client talks to the natours backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     logging.Logger

	mu             sync.RWMutex
	onUnauthorized UnauthorizedHandler
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUnauthorizedHandler sets the handler invoked on 401 responses to
// authenticated requests.
func WithUnauthorizedHandler(fn UnauthorizedHandler) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// NewClient creates a client for cfg.
func NewClient(cfg Config, logger logging.Logger, opts ...Option) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "natours-cli"
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  userAgent,
		logger:     logger.WithModule("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetUnauthorizedHandler replaces the unauthorized handler. The session
// manager registers itself here once it has been created.
func (c *Client) SetUnauthorizedHandler(fn UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) unauthorized(token string) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn(token)
	}
}

// StaticToken returns a TokenSource for a fixed bearer token.
func StaticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

type authMode int

const (
	authNone     authMode = iota
	authOptional          // attach the token when the source has one
	authRequired          // fail without a token
)

// request describes one backend call.
type request struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	auth   authMode
	source oauth2.TokenSource
}

// do executes req and decodes a successful body into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return autherr.New(autherr.ErrValidationFailed, 0, "", fmt.Errorf("api: failed to encode request: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return autherr.Network(fmt.Errorf("api: failed to build request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	requestID := uuid.New().String()
	httpReq.Header.Set("X-Request-ID", requestID)

	sentToken, err := c.authorize(httpReq, req)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed", "method", req.method, "path", req.path, "request_id", requestID, "error", err)
		return autherr.Network(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return autherr.Network(fmt.Errorf("api: failed to read response: %w", err))
	}

	c.logger.Debug("request completed",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && sentToken != "" {
			c.unauthorized(sentToken)
		}
		return statusError(resp.StatusCode, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return autherr.New(autherr.ErrValidationFailed, resp.StatusCode, "", fmt.Errorf("api: malformed response: %w", err))
	}
	return nil
}

// authorize attaches the bearer token per req.auth and returns the token
// that was sent.
func (c *Client) authorize(httpReq *http.Request, req request) (string, error) {
	if req.auth == authNone {
		return "", nil
	}

	if req.source == nil {
		if req.auth == authRequired {
			return "", autherr.New(autherr.ErrAuthRejected, 0, "", fmt.Errorf("api: %s %s requires a token", req.method, req.path))
		}
		return "", nil
	}

	tok, err := req.source.Token()
	if err != nil || !tok.Valid() {
		if req.auth == authOptional {
			return "", nil
		}
		if err == nil {
			err = fmt.Errorf("api: token is missing or expired")
		}
		if autherr.KindOf(err) != nil {
			return "", err
		}
		return "", autherr.New(autherr.ErrAuthRejected, 0, "", err)
	}

	tok.SetAuthHeader(httpReq)
	return tok.AccessToken, nil
}

// statusError converts a non-2xx response into an *autherr.Error.
func statusError(status int, data []byte) error {
	var body errorBody
	_ = json.Unmarshal(data, &body)

	kind := autherr.ErrValidationFailed
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = autherr.ErrAuthRejected
	case status >= 500:
		kind = autherr.ErrNetwork
	}

	return autherr.New(kind, status, body.Message, fmt.Errorf("api: unexpected status %d", status))
}

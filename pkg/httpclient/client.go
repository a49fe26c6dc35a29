// Package httpclient is the shared HTTP client every backend call goes through.
// It attaches the session token, refreshes it once on 401 and turns non-2xx
// answers into typed errors.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/Dmitrij-bot/storefront/pkg/metrics"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	RefreshPath       = "/token/refresh"

	defaultTimeout = 10 * time.Second
	maxBodySize    = 8 << 20
)

type Config struct {
	BaseURL   string `json:"base_url" env:"STOREFRONT_API_URL"`
	TimeoutMS int    `json:"timeout_ms" env:"STOREFRONT_API_TIMEOUT_MS"`
}

// Request describes one backend call. Route is a low-cardinality name used for
// metrics and logs; Path is the concrete URL path.
type Request struct {
	Method string
	Route  string
	Path   string
	Body   interface{}
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenStore
	metrics    *metrics.ClientMetrics
	logger     *zap.Logger

	// refreshMu makes concurrent 401s wait for the same refresh.
	refreshMu sync.Mutex

	signOutMu sync.RWMutex
	onSignOut func()
}

func New(cfg Config, tokens TokenStore, m *metrics.ClientMetrics, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokens:     tokens,
		metrics:    m,
		logger:     logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// SetSignOutCallback registers the function fired when the session cannot be
// refreshed any more.
func (c *Client) SetSignOutCallback(fn func()) {
	c.signOutMu.Lock()
	defer c.signOutMu.Unlock()
	c.onSignOut = fn
}

// Do sends the request and returns the response body of a 2xx answer.
// Anything else comes back as *StatusError or *TransportError.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	var payload []byte
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	// The same key is reused when the request is replayed after a refresh.
	var idemKey string
	if req.Method != http.MethodGet {
		idemKey = uuid.NewString()
	}

	tokens, _ := c.tokens.Get()

	status, body, err := c.send(ctx, req, payload, idemKey, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && tokens.AccessToken != "" {
		access, err := c.refresh(ctx, tokens.AccessToken)
		if err != nil {
			c.logger.Warn("session refresh failed", zap.String("route", req.Route), zap.Error(err))
			if !sessionRejected(err) {
				return nil, err
			}
			c.signOut()
			return nil, newStatusError(req.Route, status, body)
		}

		status, body, err = c.send(ctx, req, payload, idemKey, access)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			c.signOut()
		}
	}

	if status < 200 || status >= 300 {
		return nil, newStatusError(req.Route, status, body)
	}

	return body, nil
}

func (c *Client) send(ctx context.Context, req Request, payload []byte, idemKey, accessToken string) (int, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idemKey != "" {
		httpReq.Header.Set(IdempotencyHeader, idemKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.Route, req.Method, 0, time.Since(start))
		return 0, nil, &TransportError{Route: req.Route, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.metrics.ObserveRequest(req.Route, req.Method, resp.StatusCode, time.Since(start))
	if err != nil {
		return 0, nil, &TransportError{Route: req.Route, Err: fmt.Errorf("read response body: %w", err)}
	}

	c.logger.Debug("backend request",
		zap.String("route", req.Route),
		zap.String("method", req.Method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	return resp.StatusCode, body, nil
}

// refresh exchanges the refresh token for a new access token. stale is the
// access token the failed request carried: if another caller already replaced
// it, the new one is returned without a second refresh.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	current, ok := c.tokens.Get()
	if !ok || current.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}
	if current.AccessToken != stale {
		return current.AccessToken, nil
	}

	req := Request{
		Method: http.MethodPost,
		Route:  "token.refresh",
		Path:   RefreshPath,
	}
	payload, err := json.Marshal(map[string]string{"refreshToken": current.RefreshToken})
	if err != nil {
		return "", fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	status, body, err := c.send(ctx, req, payload, "", "")
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", newStatusError(req.Route, status, body)
	}

	access := gjson.GetBytes(body, "accessToken").String()
	if access == "" {
		access = gjson.GetBytes(body, "token").String()
	}
	refresh := gjson.GetBytes(body, "refreshToken").String()
	if access == "" || refresh == "" {
		return "", ErrInvalidRefresh
	}

	c.tokens.Save(Tokens{AccessToken: access, RefreshToken: refresh})

	return access, nil
}

// sessionRejected reports whether a failed refresh means the session is gone.
// A cancelled or unreachable refresh keeps the tokens for the next attempt.
func sessionRejected(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) || errors.Is(err, ErrInvalidRefresh) || errors.Is(err, ErrNoRefreshToken)
}

func (c *Client) signOut() {
	c.tokens.Clear()

	c.signOutMu.RLock()
	fn := c.onSignOut
	c.signOutMu.RUnlock()

	if fn != nil {
		fn()
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/minimall/storefront/core"
	"github.com/minimall/storefront/pkg/telemetry"
)

// Default credential keys. They match the session keys the web layer uses.
const (
	DefaultTokenKey      = "authToken"
	DefaultUserDataKey   = "userData"
	DefaultSellerDataKey = "sellerData"
)

// DefaultTimeout bounds every backend call.
const DefaultTimeout = 30 * time.Second

const maxResponseBytes = 8 << 20

// CredentialStore is where the client reads the bearer token from and which
// keys it clears on a 401. Implementations resolve the current user from ctx.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Clear(ctx context.Context, keys ...string) error
}

// Recorder receives one data point per backend call. telemetry.APIMetrics
// implements it.
type Recorder interface {
	RecordCall(ctx context.Context, method, route, outcome string, status int, elapsed time.Duration)
	RecordBulkAdd(ctx context.Context, succeeded, failed int)
}

// Client is the single backend client shared by every page. It is safe for
// concurrent use; per-user state comes from the CredentialStore via ctx.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialStore
	tokenKey   string
	clearKeys  []string

	onUnauthenticated func(ctx context.Context)

	recorder  Recorder
	logger    core.Logger
	tracer    trace.Tracer
	bulkLimit int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithCredentials sets the token source. Without one, requests are sent
// anonymously.
func WithCredentials(store CredentialStore) Option {
	return func(c *Client) { c.creds = store }
}

// WithCredentialKeys overrides the token key and the keys cleared on 401.
func WithCredentialKeys(tokenKey string, clear ...string) Option {
	return func(c *Client) {
		c.tokenKey = tokenKey
		c.clearKeys = append([]string{tokenKey}, clear...)
	}
}

// WithUnauthenticatedHook registers the login-redirect trigger invoked after
// credentials are cleared on a 401.
func WithUnauthenticatedHook(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthenticated = fn }
}

// WithRecorder attaches call metrics.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBulkConcurrency sets how many add-to-cart requests BulkAdd may have in
// flight. 1 (the default) is strictly sequential.
func WithBulkConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.bulkLimit = n
		}
	}
}

// New creates a client for the backend at baseURL (scheme and host, without
// the /api prefix).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("backend url %q: %w", baseURL, core.ErrInvalidConfiguration)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: telemetry.NewTracedTransport(nil),
		},
		tokenKey:  DefaultTokenKey,
		clearKeys: []string{DefaultTokenKey, DefaultUserDataKey, DefaultSellerDataKey},
		logger:    &core.NoOpLogger{},
		tracer:    otel.Tracer("github.com/minimall/storefront/pkg/api"),
		bulkLimit: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// call describes one backend request.
type call struct {
	method string
	route  string // path template, used for spans and metrics
	path   string
	query  url.Values
	body   interface{}
	public bool // sent without a token
}

func (c *Client) get(ctx context.Context, route, path string, query url.Values, out interface{}) error {
	return c.do(ctx, call{method: http.MethodGet, route: route, path: path, query: query}, out)
}

func (c *Client) send(ctx context.Context, method, route, path string, body, out interface{}) error {
	return c.do(ctx, call{method: method, route: route, path: path, body: body}, out)
}

func (c *Client) do(ctx context.Context, r call, out interface{}) error {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "backend."+r.method+" "+r.route,
		trace.WithAttributes(
			attribute.String("http.method", r.method),
			attribute.String("http.route", r.route),
		),
	)
	defer span.End()

	status, err := c.roundTrip(ctx, r, out)
	outcome := outcomeOf(err)
	span.SetAttributes(attribute.Int("http.status_code", status), attribute.String("outcome", outcome))

	if c.recorder != nil {
		c.recorder.RecordCall(ctx, r.method, r.route, outcome, status, time.Since(start))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		fields := map[string]interface{}{
			"method":      r.method,
			"route":       r.route,
			"status":      status,
			"outcome":     outcome,
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       err.Error(),
		}
		switch outcome {
		case "network", "failed":
			c.logger.ErrorWithContext(ctx, "Backend call failed", fields)
		default:
			c.logger.WarnWithContext(ctx, "Backend call rejected", fields)
		}
		return err
	}

	span.SetStatus(codes.Ok, "")
	c.logger.DebugWithContext(ctx, "Backend call", map[string]interface{}{
		"method":      r.method,
		"route":       r.route,
		"status":      status,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func (c *Client) roundTrip(ctx context.Context, r call, out interface{}) (int, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return 0, fmt.Errorf("%s %s: encode body: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return 0, fmt.Errorf("%s %s: build request: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.public {
		if token := c.token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	telemetry.InjectCorrelationHeaders(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &Error{
			Method:  r.method,
			Path:    r.path,
			Message: msgUnreachable,
			Err:     ErrNetworkUnreachable,
			Cause:   err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, &Error{
			Method:  r.method,
			Path:    r.path,
			Status:  resp.StatusCode,
			Message: msgUnreachable,
			Err:     ErrNetworkUnreachable,
			Cause:   err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := statusError(r.method, r.path, resp.StatusCode, data)
		// A public call has no token to expire: its 401 means wrong
		// credentials, not a dead session.
		if resp.StatusCode == http.StatusUnauthorized && !r.public {
			c.unauthenticated(ctx)
		}
		return resp.StatusCode, apiErr
	}

	if err := decode(data, out); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			apiErr.Method, apiErr.Path, apiErr.Status = r.method, r.path, resp.StatusCode
			return resp.StatusCode, apiErr
		}
		return resp.StatusCode, &Error{
			Method:  r.method,
			Path:    r.path,
			Status:  resp.StatusCode,
			Message: msgUnexpected,
			Err:     ErrRequestFailed,
			Cause:   err,
		}
	}
	return resp.StatusCode, nil
}

// decode fills out from a 2xx body. Empty bodies are fine. An object
// envelope with success=false is a failure whatever the status said.
func decode(data []byte, out interface{}) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	if data[0] == '{' {
		var env envelope
		if err := json.Unmarshal(data, &env); err == nil && env.Success != nil && !*env.Success {
			msg := env.Message
			if msg == "" {
				msg, _ = parseErrorBody(data)
			}
			if msg == "" {
				msg = "Request failed"
			}
			return &Error{Message: msg, Err: ErrRequestFailed}
		}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *Client) token(ctx context.Context) string {
	if c.creds == nil {
		return ""
	}
	token, err := c.creds.Get(ctx, c.tokenKey)
	if err != nil {
		c.logger.WarnWithContext(ctx, "Failed to read session token", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}
	return token
}

// unauthenticated clears credentials and fires the redirect hook.
func (c *Client) unauthenticated(ctx context.Context) {
	if c.creds != nil {
		if err := c.creds.Clear(ctx, c.clearKeys...); err != nil {
			c.logger.ErrorWithContext(ctx, "Failed to clear credentials", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	if c.onUnauthenticated != nil {
		c.onUnauthenticated(ctx)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNetworkUnreachable):
		return "network"
	}
	return "failed"
}

func escape(segment string) string { return url.PathEscape(segment) }

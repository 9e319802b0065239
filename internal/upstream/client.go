package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/geoexplorer/internal/metrics"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response body is read into memory.
const maxBodyBytes = 64 << 20

// DefaultUserAgent identifies the explorer to public OSM services.
const DefaultUserAgent = "geoexplorer/1.0 (+https://github.com/MeKo-Tech/geoexplorer)"

// Config configures a Client.
type Config struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
	// Timeout applies when HTTPClient is nil (default: 60s)
	Timeout time.Duration
	// RequestsPerSecond enables client-side rate limiting when > 0
	RequestsPerSecond float64
	// Burst is the limiter burst size (default: 1)
	Burst int
}

// Client performs requests against one external service.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	service    string
	userAgent  string
}

// NewClient creates a client for the named service.
func NewClient(service string, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		limiter:    limiter,
		logger:     cfg.Logger.With("component", service),
		service:    service,
		userAgent:  cfg.UserAgent,
	}
}

// Service returns the service name used in errors and metrics.
func (c *Client) Service() string { return c.service }

// Do executes req and hands the body of a 2xx response to decode.
// Transport errors and non-2xx statuses become ErrUpstreamUnavailable,
// decode errors become ErrMalformedResponse.
func (c *Client) Do(ctx context.Context, op string, req *http.Request, decode func([]byte) error) error {
	return c.DoStatus(ctx, op, req, nil, func(_ int, body []byte) error { return decode(body) })
}

// DoStatus is Do for services that answer some failures with a non-2xx
// status and a meaningful body. Statuses for which accept returns true are
// read and decoded like a 2xx. A decode error that already is an *Error is
// returned as is.
func (c *Client) DoStatus(ctx context.Context, op string, req *http.Request, accept func(status int) bool, decode func(status int, body []byte) error) error {
	start := time.Now()
	err := c.do(ctx, op, req, accept, decode)
	metrics.ObserveUpstream(c.service, op, start, string(KindOf(err)))

	log := c.logger.With("op", op, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		log.Warn("upstream request failed", "error", err)
		return err
	}
	log.Debug("upstream request completed")
	return nil
}

func (c *Client) do(ctx context.Context, op string, req *http.Request, accept func(int) bool, decode func(int, []byte) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Unavailable(c.service, op, 0, fmt.Errorf("rate limiter: %w", err))
		}
	}

	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", c.userAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Unavailable(c.service, op, 0, fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if !ok && (accept == nil || !accept(resp.StatusCode)) {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Unavailable(c.service, op, resp.StatusCode, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Unavailable(c.service, op, resp.StatusCode, fmt.Errorf("reading body: %w", err))
	}

	if err := decode(resp.StatusCode, body); err != nil {
		var uerr *Error
		if errors.As(err, &uerr) {
			return uerr
		}
		return Malformed(c.service, op, err)
	}
	return nil
}

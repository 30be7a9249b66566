// Package transport sends finalized requests over HTTP.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/appcore/internal/ir"
)

// DefaultTimeout bounds a single round trip when no client is supplied.
const DefaultTimeout = 30 * time.Second

// HTTP is a net/http transport with an optional token-bucket throttle.
// It is safe for concurrent use.
type HTTP struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures an HTTP transport.
type Option func(*HTTP)

// WithClient replaces the underlying client.
func WithClient(c *http.Client) Option {
	return func(t *HTTP) {
		t.client = c
	}
}

// WithTimeout sets the client timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTP) {
		t.client.Timeout = d
	}
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
// A non-positive rps leaves the transport unthrottled.
func WithRateLimit(rps float64, burst int) Option {
	return func(t *HTTP) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger for per-request debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(t *HTTP) {
		t.logger = l
	}
}

// New creates a transport. Options apply in order.
func New(opts ...Option) *HTTP {
	t := &HTTP{
		client: &http.Client{Timeout: DefaultTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do sends req and reads the whole response body.
// Non-2xx statuses are not errors here; the middleware decides.
func (t *HTTP) Do(ctx context.Context, req *ir.Request) (*ir.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait for %s: %w", req.URL, err)
		}
	}

	body, err := bodyReader(req.Body)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	hreq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	t.logger.Debug("sending request", "method", method, "url", req.URL)
	start := time.Now()

	hresp, err := t.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer hresp.Body.Close()

	content, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	elapsed := time.Since(start)

	t.logger.Debug("received response", "status", hresp.StatusCode, "url", req.URL, "elapsed_ms", elapsed.Milliseconds())

	headers := make(map[string]string, len(hresp.Header))
	for k := range hresp.Header {
		headers[k] = hresp.Header.Get(k)
	}

	sent := req.Clone()
	sent.Method = method
	return &ir.Response{
		Status:  hresp.StatusCode,
		Headers: headers,
		Content: string(content),
		Request: sent,
		Elapsed: elapsed,
	}, nil
}

func bodyReader(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case string:
		if b == "" {
			return nil, nil
		}
		return strings.NewReader(b), nil
	case []byte:
		return strings.NewReader(string(b)), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("request body is not JSON serializable: %w", err)
		}
		return strings.NewReader(string(data)), nil
	}
}

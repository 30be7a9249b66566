package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/appcore/internal/ir"
)

// StubZ is an ir.Z for unit tests that do not need the engine. Requests are
// recorded and answered by Handler; without a Handler every request fails.
type StubZ struct {
	Handler func(ctx context.Context, req *ir.Request) (*ir.Response, error)
	Log     *slog.Logger

	mu       sync.Mutex
	requests []*ir.Request
}

// Request records req and delegates to Handler.
func (s *StubZ) Request(ctx context.Context, req *ir.Request) (*ir.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req.Clone())
	s.mu.Unlock()

	if s.Handler == nil {
		return nil, fmt.Errorf("no handler for %s %s", req.Method, req.URL)
	}
	return s.Handler(ctx, req)
}

// Requests returns copies of the requests seen so far.
func (s *StubZ) Requests() []*ir.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ir.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Dehydrate builds a plain method token.
func (s *StubZ) Dehydrate(method string, bundle map[string]any) ir.HydrateToken {
	return ir.NewHydrateToken(method, bundle)
}

// Hash delegates to ir.Digest.
func (s *StubZ) Hash(algorithm, text string) (string, error) {
	return ir.Digest(algorithm, text)
}

// Logger returns Log, or a logger that discards everything.
func (s *StubZ) Logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return DiscardLogger()
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// JSONResponse builds a response with a JSON body.
func JSONResponse(status int, body string) *ir.Response {
	return &ir.Response{
		Status:  status,
		Headers: map[string]string{"Content-Type": "application/json"},
		Content: body,
	}
}

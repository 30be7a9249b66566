package ir

import (
	"context"
	"log/slog"
)

// Z is the toolkit handed to perform functions and middleware.
// The engine provides the implementation; it is scoped to one invocation.
type Z interface {
	// Request sends req through the middleware pipeline and transport.
	Request(ctx context.Context, req *Request) (*Response, error)

	// Dehydrate returns a token pointing at a deferred re-invocation.
	Dehydrate(method string, bundle map[string]any) HydrateToken

	// Hash returns the hex digest of text ("md5", "sha1", "sha256", "sha512").
	Hash(algorithm, text string) (string, error)

	// Logger returns the invocation-scoped logger.
	Logger() *slog.Logger
}

// BeforeFunc rewrites an outgoing request.
type BeforeFunc func(ctx context.Context, req *Request, z Z, bundle *Bundle) (*Request, error)

// AfterFunc inspects, rewrites or rejects an incoming response.
type AfterFunc func(ctx context.Context, resp *Response, z Z, bundle *Bundle) (*Response, error)

// HydrateTypeMethod is the only hydrate token type.
const HydrateTypeMethod = "method"

// HydrateToken is a serializable pointer to a future re-invocation.
// Field order is part of the wire format: type, method, bundle.
type HydrateToken struct {
	Type   string         `json:"type"`
	Method string         `json:"method"`
	Bundle map[string]any `json:"bundle"`
}

// NewHydrateToken builds a method token.
func NewHydrateToken(method string, bundle map[string]any) HydrateToken {
	if bundle == nil {
		bundle = map[string]any{}
	}
	return HydrateToken{Type: HydrateTypeMethod, Method: method, Bundle: bundle}
}

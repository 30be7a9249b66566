package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/appcore/internal/ir"
	"github.com/roach88/appcore/internal/render"
	"github.com/roach88/appcore/internal/resolver"
)

// invocation is the per-Execute state. The bundle pointer is swapped only
// between attempts; the flags may be set from promise goroutines.
type invocation struct {
	engine  *Engine
	id      string
	command string
	method  string
	input   *ir.Bundle
	logger  *slog.Logger

	bundle     atomic.Pointer[ir.Bundle]
	authFailed atomic.Bool
	requests   atomic.Int64
	refreshed  bool
}

func (e *Engine) newInvocation(in Input) *invocation {
	id := e.ids.Generate()
	command := in.Command
	if command == "" {
		command = CommandExecute
	}
	inv := &invocation{
		engine:  e,
		id:      id,
		command: command,
		method:  in.Method,
		input:   in.Bundle.Clone(),
		logger:  e.logger.With("invocation_id", id, "method", in.Method),
	}
	inv.bundle.Store(inv.input.Clone())
	return inv
}

func (inv *invocation) currentBundle() *ir.Bundle {
	return inv.bundle.Load()
}

func (inv *invocation) bundleHash() string {
	h, err := ir.BundleHash(inv.method, inv.input)
	if err != nil {
		inv.logger.Debug("bundle not hashable", "error", err)
		return ""
	}
	return h
}

func (inv *invocation) run(ctx context.Context) (any, error) {
	switch inv.command {
	case CommandExecute:
		h, err := inv.engine.resolver.Resolve(inv.method)
		if err != nil {
			return nil, err
		}
		return inv.withRefresh(ctx, func(ctx context.Context) (any, error) {
			return inv.runHandle(ctx, h)
		})
	case CommandRequest:
		return inv.withRefresh(ctx, inv.rawRequest)
	default:
		return nil, &InputError{Message: fmt.Sprintf("unknown command %q", inv.command)}
	}
}

func (inv *invocation) runHandle(ctx context.Context, h resolver.Handle) (any, error) {
	z := &zImpl{inv: inv}
	bundle := inv.currentBundle()

	switch h := h.(type) {
	case resolver.PerformHandle:
		return Invoke(ctx, h.Perform, z, bundle).Await(ctx)
	case resolver.FieldsHandle:
		return inv.fields(ctx, h.Fields, z, bundle)
	case resolver.LiteralHandle:
		return ir.CloneValue(h.Value), nil
	case resolver.AuthorizeURLHandle:
		return render.AuthorizeURL(h.URL, bundle)
	default:
		return nil, fmt.Errorf("unsupported handle %T", h)
	}
}

// rawRequest sends bundle.request as is and returns the plain response.
func (inv *invocation) rawRequest(ctx context.Context) (any, error) {
	bundle := inv.currentBundle()
	if bundle.Request == nil || bundle.Request.URL == "" {
		return nil, &InputError{Message: "command request needs bundle.request.url"}
	}

	resp, err := (&zImpl{inv: inv}).Request(ctx, bundle.Request)
	if err != nil {
		return nil, err
	}
	headers := make(map[string]any, len(resp.Headers))
	for k, v := range resp.Headers {
		headers[k] = v
	}
	return map[string]any{
		"status":  resp.Status,
		"headers": headers,
		"content": resp.Content,
	}, nil
}

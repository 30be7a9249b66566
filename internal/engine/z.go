package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/appcore/internal/ir"
	"github.com/roach88/appcore/internal/middleware"
)

// zImpl is the ir.Z handed to performs and middleware of one invocation.
type zImpl struct {
	inv *invocation
}

// Request runs req through the before chain, the transport and the after
// chain. A 401 caught by the refresh middleware is remembered on the
// invocation even if the caller swallows the error.
func (z *zImpl) Request(ctx context.Context, req *ir.Request) (*ir.Response, error) {
	e := z.inv.engine
	bundle := z.inv.currentBundle()
	z.inv.requests.Add(1)

	prepared, err := e.pipeline.ApplyBefore(ctx, req, z, bundle)
	if err != nil {
		return nil, err
	}

	resp, err := e.transport.Do(ctx, prepared)
	if err != nil {
		return nil, err
	}
	if resp.Request == nil {
		resp.Request = prepared
	}

	out, err := e.pipeline.ApplyAfter(ctx, resp, z, bundle)
	if middleware.IsAuthFailure(err) {
		z.inv.authFailed.Store(true)
	}
	return out, err
}

func (z *zImpl) Dehydrate(method string, bundle map[string]any) ir.HydrateToken {
	return ir.NewHydrateToken(method, ir.CloneMap(bundle))
}

func (z *zImpl) Hash(algorithm, text string) (string, error) {
	return ir.Digest(algorithm, text)
}

func (z *zImpl) Logger() *slog.Logger {
	return z.inv.logger
}

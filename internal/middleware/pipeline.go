// Package middleware holds the request/response pipeline every outgoing
// request passes through.
//
// The chain layout is fixed:
//
//	before: PrepareRequest -> app beforeRequest... -> FinalizeRequest
//	after:  app afterResponse... -> RefreshOn401 (oauth2 + autoRefresh) -> ThrowForStatus
//
// Each stage receives the output of the previous one; the first error stops
// the fold and is returned unchanged.
package middleware

import (
	"context"

	"github.com/roach88/appcore/internal/ir"
)

// Pipeline folds requests and responses through ordered handler lists.
// A Pipeline is immutable and safe for concurrent use.
type Pipeline struct {
	before []ir.BeforeFunc
	after  []ir.AfterFunc
}

// New creates a pipeline from explicit handler lists. The slices are copied.
func New(before []ir.BeforeFunc, after []ir.AfterFunc) *Pipeline {
	return &Pipeline{
		before: append([]ir.BeforeFunc(nil), before...),
		after:  append([]ir.AfterFunc(nil), after...),
	}
}

// ForApp builds the standard chain around the app's own middleware.
func ForApp(app *ir.AppDefinition) *Pipeline {
	before := make([]ir.BeforeFunc, 0, len(app.BeforeRequest)+2)
	before = append(before, PrepareRequest)
	before = append(before, app.BeforeRequest...)
	before = append(before, FinalizeRequest)

	after := make([]ir.AfterFunc, 0, len(app.AfterResponse)+2)
	after = append(after, app.AfterResponse...)
	if app.Authentication.AutoRefreshes() {
		after = append(after, RefreshOn401)
	}
	after = append(after, ThrowForStatus)

	return &Pipeline{before: before, after: after}
}

// ApplyBefore runs req through the before chain.
func (p *Pipeline) ApplyBefore(ctx context.Context, req *ir.Request, z ir.Z, bundle *ir.Bundle) (*ir.Request, error) {
	var err error
	for _, fn := range p.before {
		if req, err = fn(ctx, req, z, bundle); err != nil {
			return nil, err
		}
		if req == nil {
			return nil, errNilRequest
		}
	}
	return req, nil
}

// ApplyAfter runs resp through the after chain.
func (p *Pipeline) ApplyAfter(ctx context.Context, resp *ir.Response, z ir.Z, bundle *ir.Bundle) (*ir.Response, error) {
	var err error
	for _, fn := range p.after {
		if resp, err = fn(ctx, resp, z, bundle); err != nil {
			return nil, err
		}
		if resp == nil {
			return nil, errNilResponse
		}
	}
	return resp, nil
}

package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/appcore/internal/ir"
)

// Future is the single result abstraction every perform is adapted to.
// It settles once; later settle attempts are ignored.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) settle(v any, err error) {
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
	})
}

// Await blocks until the future settles or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var (
	errNothingToPerform = errors.New("nothing to perform")
	errNoPromise        = errors.New("promise perform returned no channel")
	errPromiseClosed    = errors.New("promise perform closed without a result")
)

// Invoke adapts p to a Future. Shorthand requests go through z.Request and
// resolve to the decoded JSON body. Panics in user code become errors.
func Invoke(ctx context.Context, p ir.Perform, z ir.Z, bundle *ir.Bundle) *Future {
	f := newFuture()

	switch p := p.(type) {
	case nil:
		f.settle(nil, errNothingToPerform)

	case ir.StaticValue:
		f.settle(ir.CloneValue(p.Value), nil)

	case ir.SyncFunc:
		f.settle(callSync(ctx, p, z, bundle))

	case ir.PromiseFunc:
		ch, err := callPromise(ctx, p, z, bundle)
		if err != nil {
			f.settle(nil, err)
			break
		}
		go func() {
			select {
			case r, ok := <-ch:
				if !ok {
					f.settle(nil, errPromiseClosed)
					return
				}
				f.settle(r.Value, r.Err)
			case <-ctx.Done():
				f.settle(nil, ctx.Err())
			}
		}()

	case ir.CallbackFunc:
		func() {
			defer func() {
				if r := recover(); r != nil {
					f.settle(nil, recovered(r))
				}
			}()
			p(ctx, z, bundle, f.settle)
		}()

	case *ir.Request:
		f.settle(performRequest(ctx, p, z))
	}

	return f
}

func callSync(ctx context.Context, fn ir.SyncFunc, z ir.Z, bundle *ir.Bundle) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, recovered(r)
		}
	}()
	return fn(ctx, z, bundle)
}

func callPromise(ctx context.Context, fn ir.PromiseFunc, z ir.Z, bundle *ir.Bundle) (ch <-chan ir.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			ch, err = nil, recovered(r)
		}
	}()
	ch = fn(ctx, z, bundle)
	if ch == nil {
		return nil, errNoPromise
	}
	return ch, nil
}

func performRequest(ctx context.Context, req *ir.Request, z ir.Z) (any, error) {
	shorthand := req.Clone()
	shorthand.Shorthand = true

	resp, err := z.Request(ctx, shorthand)
	if err != nil {
		return nil, err
	}
	return resp.JSON()
}

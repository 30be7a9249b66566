package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/roach88/appcore/internal/ir"
)

// DefaultTimeout bounds a single script call.
const DefaultTimeout = 10 * time.Second

// MaxSourceSize is the largest accepted script source.
const MaxSourceSize = 256 * 1024

type options struct {
	name    string
	timeout time.Duration
}

// Option configures a compiled script.
type Option func(*options)

// WithTimeout overrides DefaultTimeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithName labels the script in errors and logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// Program is a compiled script function.
type Program struct {
	prog    *goja.Program
	name    string
	timeout time.Duration
}

// Compile parses src, which must be a single function expression.
func Compile(src string, opts ...Option) (*Program, error) {
	o := options{name: "script", timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if len(src) > MaxSourceSize {
		return nil, fmt.Errorf("script %s exceeds maximum size of %d bytes", o.name, MaxSourceSize)
	}

	prog, err := goja.Compile(o.name, "("+src+")", false)
	if err != nil {
		return nil, fmt.Errorf("compile script %s: %w", o.name, err)
	}
	return &Program{prog: prog, name: o.name, timeout: o.timeout}, nil
}

// Perform compiles src into a perform. The script may return a value or a
// promise; thrown errors and rejections surface as *ScriptError.
func Perform(src string, opts ...Option) (ir.PromiseFunc, error) {
	p, err := Compile(src, opts...)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, z ir.Z, bundle *ir.Bundle) <-chan ir.Result {
		ch := make(chan ir.Result, 1)
		go func() {
			defer close(ch)
			v, err := p.call(ctx, z, func(r *run) ([]goja.Value, error) {
				b, err := r.bundleValue(bundle)
				if err != nil {
					return nil, err
				}
				return []goja.Value{r.zObject(), b}, nil
			})
			ch <- ir.Result{Value: v, Err: err}
		}()
		return ch
	}, nil
}

// Before compiles src into before-middleware. The script receives the
// request as a plain object and returns the (possibly rewritten) request.
func Before(src string, opts ...Option) (ir.BeforeFunc, error) {
	p, err := Compile(src, opts...)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, req *ir.Request, z ir.Z, bundle *ir.Bundle) (*ir.Request, error) {
		v, err := p.call(ctx, z, func(r *run) ([]goja.Value, error) {
			reqVal, err := r.plainValue(req)
			if err != nil {
				return nil, err
			}
			b, err := r.bundleValue(bundle)
			if err != nil {
				return nil, err
			}
			return []goja.Value{reqVal, r.zObject(), b}, nil
		})
		if err != nil {
			return nil, err
		}
		if v == nil {
			return req, nil
		}

		out := &ir.Request{}
		if err := reshape(v, out); err != nil {
			return nil, fmt.Errorf("script %s returned an invalid request: %w", p.name, err)
		}
		out.Shorthand = req.Shorthand
		return out, nil
	}, nil
}

// After compiles src into after-middleware. The script receives the
// response as {status, headers, content} and returns it, possibly rewritten,
// or throws to reject it.
func After(src string, opts ...Option) (ir.AfterFunc, error) {
	p, err := Compile(src, opts...)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, resp *ir.Response, z ir.Z, bundle *ir.Bundle) (*ir.Response, error) {
		v, err := p.call(ctx, z, func(r *run) ([]goja.Value, error) {
			respVal, err := r.plainValue(resp)
			if err != nil {
				return nil, err
			}
			b, err := r.bundleValue(bundle)
			if err != nil {
				return nil, err
			}
			return []goja.Value{respVal, r.zObject(), b}, nil
		})
		if err != nil {
			return nil, err
		}
		if v == nil {
			return resp, nil
		}

		out := &ir.Response{}
		if err := reshape(v, out); err != nil {
			return nil, fmt.Errorf("script %s returned an invalid response: %w", p.name, err)
		}
		out.Request = resp.Request
		out.Elapsed = resp.Elapsed
		return out, nil
	}, nil
}

// call runs the program in a fresh runtime and settles returned promises.
func (p *Program) call(ctx context.Context, z ir.Z, args func(*run) ([]goja.Value, error)) (any, error) {
	r := newRun(ctx, z)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-time.After(p.timeout):
			r.vm.Interrupt(&TimeoutError{Name: p.name, Timeout: p.timeout.String()})
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	fnVal, err := r.vm.RunProgram(p.prog)
	if err != nil {
		return nil, r.convertError(err)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("script %s is not a function expression", p.name)
	}

	argv, err := args(r)
	if err != nil {
		return nil, err
	}

	res, err := fn(goja.Undefined(), argv...)
	if err != nil {
		return nil, r.convertError(err)
	}
	return r.settle(p.name, res)
}

// settle unwraps a returned promise. The job queue is drained when the
// outermost call returns, so anything still pending never settles.
func (r *run) settle(name string, v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	promise, ok := v.Export().(*goja.Promise)
	if !ok {
		return v.Export(), nil
	}

	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return r.settle(name, promise.Result())
	case goja.PromiseStateRejected:
		return nil, r.errorFromValue(promise.Result())
	default:
		return nil, fmt.Errorf("script %s returned a promise that never settled", name)
	}
}

// convertError maps goja failures to Go errors. Errors raised by Go bindings
// (z.request) come back unchanged so callers can match on them.
func (r *run) convertError(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if inner, ok := interrupted.Value().(error); ok {
			return inner
		}
		return err
	}

	var exc *goja.Exception
	if errors.As(err, &exc) {
		se := r.errorFromValue(exc.Value())
		if s, ok := se.(*ScriptError); ok {
			s.Stack = exc.String()
		}
		return se
	}
	return err
}

func (r *run) errorFromValue(v goja.Value) error {
	if obj, ok := v.(*goja.Object); ok {
		if goErr, found := r.goErrors[obj]; found {
			return goErr
		}
		name := obj.Get("name")
		msg := obj.Get("message")
		if name != nil && msg != nil && !goja.IsUndefined(msg) {
			return &ScriptError{Name: name.String(), Message: msg.String()}
		}
	}
	if v == nil || goja.IsUndefined(v) {
		return &ScriptError{Name: "Error", Message: "undefined"}
	}
	return &ScriptError{Name: "Error", Message: v.String()}
}

// reshape converts an exported JS value into a Go struct through JSON.
func reshape(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

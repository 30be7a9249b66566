package script

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"

	"github.com/roach88/appcore/internal/ir"
)

// run is the state of one script call: its runtime and the Go errors thrown
// into it, keyed by the JS object that carries them.
type run struct {
	ctx      context.Context
	vm       *goja.Runtime
	z        ir.Z
	goErrors map[*goja.Object]error
	parse    goja.Callable
}

func newRun(ctx context.Context, z ir.Z) *run {
	vm := goja.New()
	r := &run{
		ctx:      ctx,
		vm:       vm,
		z:        z,
		goErrors: make(map[*goja.Object]error),
	}
	parse, _ := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
	r.parse = parse
	return r
}

// plainValue turns a Go value into a native JS object via JSON.parse so
// scripts can mutate it freely.
func (r *run) plainValue(v any) (goja.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode script argument: %w", err)
	}
	return r.parse(goja.Undefined(), r.vm.ToValue(string(data)))
}

func (r *run) bundleValue(b *ir.Bundle) (goja.Value, error) {
	if b == nil {
		b = ir.NewBundle()
	}
	return r.plainValue(b)
}

// throw raises err inside the runtime and remembers it so convertError can
// hand the original error back.
func (r *run) throw(err error) {
	obj := r.vm.NewGoError(err)
	r.goErrors[obj] = err
	panic(obj)
}

func (r *run) zObject() goja.Value {
	z := r.vm.NewObject()
	_ = z.Set("request", r.request)
	_ = z.Set("dehydrate", r.dehydrate)
	_ = z.Set("hash", r.hash)

	console := r.vm.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		if r.z != nil {
			r.z.Logger().Info("script log", "args", args)
		}
		return goja.Undefined()
	})
	_ = z.Set("console", console)
	return z
}

// request accepts a URL string or a request object and blocks until the
// response (after middleware) is available.
func (r *run) request(call goja.FunctionCall) goja.Value {
	if r.z == nil {
		r.throw(fmt.Errorf("z.request is not available here"))
	}

	arg := call.Argument(0)
	req := &ir.Request{}
	if s, ok := arg.Export().(string); ok {
		req.URL = s
	} else if err := reshape(arg.Export(), req); err != nil {
		r.throw(fmt.Errorf("z.request: invalid request: %w", err))
	}
	if opts := call.Argument(1); !goja.IsUndefined(opts) {
		if err := reshape(opts.Export(), req); err != nil {
			r.throw(fmt.Errorf("z.request: invalid options: %w", err))
		}
	}

	resp, err := r.z.Request(r.ctx, req)
	if err != nil {
		r.throw(err)
	}

	out := map[string]any{
		"status":  resp.Status,
		"headers": resp.Headers,
		"content": resp.Content,
	}
	if parsed, err := resp.JSON(); err == nil {
		out["json"] = parsed
	}
	v, err := r.plainValue(out)
	if err != nil {
		r.throw(err)
	}
	return v
}

func (r *run) dehydrate(call goja.FunctionCall) goja.Value {
	if r.z == nil {
		r.throw(fmt.Errorf("z.dehydrate is not available here"))
	}
	method := call.Argument(0).String()
	var bundle map[string]any
	if b, ok := call.Argument(1).Export().(map[string]any); ok {
		bundle = b
	}
	return r.vm.ToValue(r.z.Dehydrate(method, bundle))
}

func (r *run) hash(call goja.FunctionCall) goja.Value {
	if r.z == nil {
		r.throw(fmt.Errorf("z.hash is not available here"))
	}
	digest, err := r.z.Hash(call.Argument(0).String(), call.Argument(1).String())
	if err != nil {
		r.throw(err)
	}
	return r.vm.ToValue(digest)
}

package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/appcore/internal/ir"
	"github.com/roach88/appcore/internal/script"
)

// Registry maps the names used by {handler: "name"} entries of a CUE app
// definition to Go implementations.
//
// Registries are built once at startup and are read-only afterwards.
type Registry struct {
	performs   map[string]ir.Perform
	before     map[string]ir.BeforeFunc
	after      map[string]ir.AfterFunc
	scriptOpts []script.Option
}

// NewRegistry creates an empty registry. opts apply to every {script: ...}
// entry loaded through it.
func NewRegistry(opts ...script.Option) *Registry {
	return &Registry{
		performs:   make(map[string]ir.Perform),
		before:     make(map[string]ir.BeforeFunc),
		after:      make(map[string]ir.AfterFunc),
		scriptOpts: opts,
	}
}

// Perform registers a perform (or dynamic fields function) under name.
func (r *Registry) Perform(name string, p ir.Perform) *Registry {
	r.performs[name] = p
	return r
}

// Before registers before-middleware under name.
func (r *Registry) Before(name string, fn ir.BeforeFunc) *Registry {
	r.before[name] = fn
	return r
}

// After registers after-middleware under name.
func (r *Registry) After(name string, fn ir.AfterFunc) *Registry {
	r.after[name] = fn
	return r
}

// LoadApp parses a CUE app value into an AppDefinition.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value should be the app struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`app: { key: "example", resources: { ... } }`)
//	app, err := LoadApp(v.LookupPath(cue.ParsePath("app")), registry)
//
// A perform is written as a shorthand request ({url, method, params,
// headers, body}), a registered Go function ({handler: "name"}) or a JavaScript
// function expression ({script: "..."}). Any other concrete value is a
// static literal.
func LoadApp(v cue.Value, reg *Registry) (*ir.AppDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if reg == nil {
		reg = NewRegistry()
	}
	l := &appLoader{reg: reg}

	app := &ir.AppDefinition{}
	var err error

	if app.Key, err = l.optionalString(v, "key"); err != nil {
		return nil, err
	}
	if app.Version, err = l.optionalString(v, "version"); err != nil {
		return nil, err
	}
	if app.Resources, err = l.resources(lookup(v, "resources")); err != nil {
		return nil, err
	}
	if app.Triggers, err = l.actions(lookup(v, "triggers"), "triggers"); err != nil {
		return nil, err
	}
	if app.Searches, err = l.actions(lookup(v, "searches"), "searches"); err != nil {
		return nil, err
	}
	if app.Creates, err = l.actions(lookup(v, "creates"), "creates"); err != nil {
		return nil, err
	}
	if app.Authentication, err = l.authentication(lookup(v, "authentication")); err != nil {
		return nil, err
	}
	if app.BeforeRequest, err = l.beforeList(lookup(v, "beforeRequest")); err != nil {
		return nil, err
	}
	if app.AfterResponse, err = l.afterList(lookup(v, "afterResponse")); err != nil {
		return nil, err
	}

	return app, nil
}

type appLoader struct {
	reg *Registry
}

// lookup selects a single field by name without parsing it as a CUE path.
func lookup(v cue.Value, name string) cue.Value {
	return v.LookupPath(cue.MakePath(cue.Str(name)))
}

func (l *appLoader) optionalString(v cue.Value, name string) (string, error) {
	f := lookup(v, name)
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func (l *appLoader) resources(v cue.Value) (map[string]ir.Resource, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := make(map[string]ir.Resource)
	for iter.Next() {
		key := iter.Label()
		rv := iter.Value()
		path := "resources." + key

		res := ir.Resource{Key: key}
		if k, err := l.optionalString(rv, "key"); err != nil {
			return nil, err
		} else if k != "" {
			res.Key = k
		}
		if res.Noun, err = l.optionalString(rv, "noun"); err != nil {
			return nil, err
		}

		for _, m := range []struct {
			name string
			dst  **ir.Method
		}{
			{"list", &res.List},
			{"get", &res.Get},
			{"hook", &res.Hook},
			{"search", &res.Search},
			{"create", &res.Create},
		} {
			mv := lookup(rv, m.name)
			if !mv.Exists() {
				continue
			}
			method, err := l.method(mv, path+"."+m.name)
			if err != nil {
				return nil, err
			}
			*m.dst = method
		}

		if res.Methods, err = l.namedMethods(rv, path); err != nil {
			return nil, err
		}

		if res.OutputFields, err = l.fields(lookup(rv, "outputFields"), path+".outputFields"); err != nil {
			return nil, err
		}
		if res.Sample, err = l.object(lookup(rv, "sample")); err != nil {
			return nil, err
		}
		out[key] = res
	}
	return out, nil
}

// resourceLabels are the resource fields that are not named methods.
var resourceLabels = map[string]bool{
	"key": true, "noun": true, "outputFields": true, "sample": true,
	"list": true, "get": true, "hook": true, "search": true, "create": true,
}

// namedMethods loads every other resource field that carries an operation.
func (l *appLoader) namedMethods(rv cue.Value, path string) (map[string]*ir.Method, error) {
	iter, err := rv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out map[string]*ir.Method
	for iter.Next() {
		name := iter.Label()
		if resourceLabels[name] || !lookup(iter.Value(), "operation").Exists() {
			continue
		}
		m, err := l.method(iter.Value(), path+"."+name)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make(map[string]*ir.Method)
		}
		out[name] = m
	}
	return out, nil
}

func (l *appLoader) method(v cue.Value, path string) (*ir.Method, error) {
	m := &ir.Method{}
	if dv := lookup(v, "display"); dv.Exists() {
		if err := dv.Decode(&m.Display); err != nil {
			return nil, formatCUEError(err)
		}
	}
	op, err := l.operation(lookup(v, "operation"), path+".operation")
	if err != nil {
		return nil, err
	}
	m.Operation = op
	return m, nil
}

func (l *appLoader) actions(v cue.Value, namespace string) (map[string]ir.Action, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := make(map[string]ir.Action)
	for iter.Next() {
		key := iter.Label()
		av := iter.Value()
		path := namespace + "." + key

		action := ir.Action{Key: key}
		if k, err := l.optionalString(av, "key"); err != nil {
			return nil, err
		} else if k != "" {
			action.Key = k
		}
		if action.Noun, err = l.optionalString(av, "noun"); err != nil {
			return nil, err
		}
		if dv := lookup(av, "display"); dv.Exists() {
			if err := dv.Decode(&action.Display); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if action.Operation, err = l.operation(lookup(av, "operation"), path+".operation"); err != nil {
			return nil, err
		}
		out[key] = action
	}
	return out, nil
}

func (l *appLoader) operation(v cue.Value, path string) (ir.Operation, error) {
	var op ir.Operation
	if !v.Exists() {
		return op, nil
	}

	var err error
	if op.Resource, err = l.optionalString(v, "resource"); err != nil {
		return op, err
	}
	if op.Type, err = l.optionalString(v, "type"); err != nil {
		return op, err
	}
	if op.Perform, err = l.perform(lookup(v, "perform"), path+".perform"); err != nil {
		return op, err
	}
	if op.PerformList, err = l.perform(lookup(v, "performList"), path+".performList"); err != nil {
		return op, err
	}
	if op.PerformGet, err = l.perform(lookup(v, "performGet"), path+".performGet"); err != nil {
		return op, err
	}
	if op.InputFields, err = l.fields(lookup(v, "inputFields"), path+".inputFields"); err != nil {
		return op, err
	}
	if op.OutputFields, err = l.fields(lookup(v, "outputFields"), path+".outputFields"); err != nil {
		return op, err
	}
	if op.Sample, err = l.object(lookup(v, "sample")); err != nil {
		return op, err
	}
	return op, nil
}

// perform decodes one perform entry. A missing value yields nil.
func (l *appLoader) perform(v cue.Value, path string) (ir.Perform, error) {
	if !v.Exists() {
		return nil, nil
	}
	if v.IncompleteKind() != cue.StructKind {
		var lit any
		if err := v.Decode(&lit); err != nil {
			return nil, formatCUEError(err)
		}
		return ir.StaticValue{Value: lit}, nil
	}

	if fv := lookup(v, "handler"); fv.Exists() {
		name, err := fv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		p, ok := l.reg.performs[name]
		if !ok {
			return nil, &CompileError{Field: path, Message: fmt.Sprintf("unknown function %q", name), Pos: fv.Pos()}
		}
		return p, nil
	}

	if sv := lookup(v, "script"); sv.Exists() {
		src, err := sv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		p, err := script.Perform(src, l.scriptOpts(path)...)
		if err != nil {
			return nil, &CompileError{Field: path, Message: err.Error(), Pos: sv.Pos()}
		}
		return p, nil
	}

	if lookup(v, "url").Exists() {
		req := &ir.Request{}
		if err := v.Decode(req); err != nil {
			return nil, formatCUEError(err)
		}
		req.Shorthand = true
		return req, nil
	}

	var lit any
	if err := v.Decode(&lit); err != nil {
		return nil, formatCUEError(err)
	}
	return ir.StaticValue{Value: lit}, nil
}

func (l *appLoader) scriptOpts(path string) []script.Option {
	opts := make([]script.Option, 0, len(l.reg.scriptOpts)+1)
	opts = append(opts, l.reg.scriptOpts...)
	return append(opts, script.WithName(path))
}

// fields decodes a fields list. Entries with a key are static fields; any
// other entry is a perform yielding fields. A non-list value is one dynamic
// source for the whole list.
func (l *appLoader) fields(v cue.Value, path string) (ir.Fields, error) {
	if !v.Exists() {
		return nil, nil
	}
	if v.IncompleteKind() != cue.ListKind {
		p, err := l.perform(v, path)
		if err != nil {
			return nil, err
		}
		return ir.Fields{ir.DynamicField(p)}, nil
	}

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := ir.Fields{}
	for i := 0; iter.Next(); i++ {
		elem := iter.Value()
		if lookup(elem, "key").Exists() {
			var f ir.Field
			if err := elem.Decode(&f); err != nil {
				return nil, formatCUEError(err)
			}
			out = append(out, ir.FieldSource{Static: &f})
			continue
		}
		p, err := l.perform(elem, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, ir.DynamicField(p))
	}
	return out, nil
}

func (l *appLoader) object(v cue.Value) (map[string]any, error) {
	if !v.Exists() {
		return nil, nil
	}
	var out map[string]any
	if err := v.Decode(&out); err != nil {
		return nil, formatCUEError(err)
	}
	return out, nil
}

func (l *appLoader) authentication(v cue.Value) (*ir.AuthSpec, error) {
	if !v.Exists() {
		return nil, nil
	}
	auth := &ir.AuthSpec{}
	var err error
	if auth.Type, err = l.optionalString(v, "type"); err != nil {
		return nil, err
	}
	if auth.ConnectionLabel, err = l.optionalString(v, "connectionLabel"); err != nil {
		return nil, err
	}
	if auth.Test, err = l.perform(lookup(v, "test"), "authentication.test"); err != nil {
		return nil, err
	}
	if auth.Fields, err = l.fields(lookup(v, "fields"), "authentication.fields"); err != nil {
		return nil, err
	}

	ov := lookup(v, "oauth2Config")
	if !ov.Exists() {
		return auth, nil
	}
	oc := &ir.OAuth2Config{}
	if uv := lookup(ov, "authorizeUrl"); uv.Exists() {
		au := &ir.AuthorizeURL{}
		if err := uv.Decode(au); err != nil {
			return nil, formatCUEError(err)
		}
		oc.AuthorizeURL = au
	}
	if oc.GetAccessToken, err = l.perform(lookup(ov, "getAccessToken"), "authentication.oauth2Config.getAccessToken"); err != nil {
		return nil, err
	}
	if oc.RefreshAccessToken, err = l.perform(lookup(ov, "refreshAccessToken"), "authentication.oauth2Config.refreshAccessToken"); err != nil {
		return nil, err
	}
	if oc.Scope, err = l.optionalString(ov, "scope"); err != nil {
		return nil, err
	}
	if av := lookup(ov, "autoRefresh"); av.Exists() {
		if oc.AutoRefresh, err = av.Bool(); err != nil {
			return nil, formatCUEError(err)
		}
	}
	auth.OAuth2Config = oc
	return auth, nil
}

func (l *appLoader) beforeList(v cue.Value) ([]ir.BeforeFunc, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ir.BeforeFunc
	for i := 0; iter.Next(); i++ {
		path := fmt.Sprintf("beforeRequest[%d]", i)
		elem := iter.Value()
		if fv := lookup(elem, "handler"); fv.Exists() {
			name, err := fv.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			fn, ok := l.reg.before[name]
			if !ok {
				return nil, &CompileError{Field: path, Message: fmt.Sprintf("unknown middleware %q", name), Pos: fv.Pos()}
			}
			out = append(out, fn)
			continue
		}
		src, err := lookup(elem, "script").String()
		if err != nil {
			return nil, &CompileError{Field: path, Message: "middleware must declare handler or script", Pos: elem.Pos()}
		}
		fn, err := script.Before(src, l.scriptOpts(path)...)
		if err != nil {
			return nil, &CompileError{Field: path, Message: err.Error(), Pos: elem.Pos()}
		}
		out = append(out, fn)
	}
	return out, nil
}

func (l *appLoader) afterList(v cue.Value) ([]ir.AfterFunc, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ir.AfterFunc
	for i := 0; iter.Next(); i++ {
		path := fmt.Sprintf("afterResponse[%d]", i)
		elem := iter.Value()
		if fv := lookup(elem, "handler"); fv.Exists() {
			name, err := fv.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			fn, ok := l.reg.after[name]
			if !ok {
				return nil, &CompileError{Field: path, Message: fmt.Sprintf("unknown middleware %q", name), Pos: fv.Pos()}
			}
			out = append(out, fn)
			continue
		}
		src, err := lookup(elem, "script").String()
		if err != nil {
			return nil, &CompileError{Field: path, Message: "middleware must declare handler or script", Pos: elem.Pos()}
		}
		fn, err := script.After(src, l.scriptOpts(path)...)
		if err != nil {
			return nil, &CompileError{Field: path, Message: err.Error(), Pos: elem.Pos()}
		}
		out = append(out, fn)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrorName identifies the error kind for reporting.
func (e *CompileError) ErrorName() string {
	return "CompileError"
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

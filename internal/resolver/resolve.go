package resolver

import (
	"fmt"

	"github.com/roach88/appcore/internal/ir"
)

// Handle is the resolved leaf of a path. The engine switches on its concrete
// type; only the types below implement it.
type Handle interface {
	handle() // Sealed
}

// PerformHandle is a callable perform or a shorthand request.
type PerformHandle struct {
	Perform ir.Perform
}

// FieldsHandle is an input/output fields list, possibly containing dynamic
// entries that still have to be invoked.
type FieldsHandle struct {
	Fields ir.Fields
}

// LiteralHandle is a plain value that resolves without invocation.
type LiteralHandle struct {
	Value any
}

// AuthorizeURLHandle is the OAuth2 authorize URL template.
type AuthorizeURLHandle struct {
	URL ir.AuthorizeURL
}

func (PerformHandle) handle()      {}
func (FieldsHandle) handle()       {}
func (LiteralHandle) handle()      {}
func (AuthorizeURLHandle) handle() {}

// Resolver resolves paths against one app and its compiled schema.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	app    *ir.AppDefinition
	schema *ir.CompiledSchema
}

// New creates a resolver. Both arguments are read, never written.
func New(app *ir.AppDefinition, schema *ir.CompiledSchema) *Resolver {
	return &Resolver{app: app, schema: schema}
}

// Resolve parses method and resolves it.
func (r *Resolver) Resolve(method string) (Handle, error) {
	p, err := ParsePath(method)
	if err != nil {
		return nil, err
	}
	return r.ResolvePath(p)
}

// ResolvePath resolves an already parsed path.
func (r *Resolver) ResolvePath(p Path) (Handle, error) {
	switch p := p.(type) {
	case ResourceOp:
		return r.resolveResource(p)
	case TriggerOp:
		return resolveAction(p, r.schema.Triggers, p.Key, p.Field)
	case SearchOp:
		return resolveAction(p, r.schema.Searches, p.Key, p.Field)
	case CreateOp:
		return resolveAction(p, r.schema.Creates, p.Key, p.Field)
	case AuthOp:
		return r.resolveAuth(p)
	default:
		return nil, notFound(fmt.Sprint(p), "unsupported path kind")
	}
}

func (r *Resolver) resolveResource(p ResourceOp) (Handle, error) {
	res, ok := r.app.Resources[p.ResourceKey]
	if !ok {
		return nil, notFound(p.String(), fmt.Sprintf("no resource %q", p.ResourceKey))
	}

	if p.Method == "" {
		switch p.Field {
		case "outputFields":
			return fieldsHandle(p, res.OutputFields)
		case "sample":
			return sampleHandle(p, res.Sample)
		case "key":
			return literalHandle(p, res.Key)
		case "noun":
			return literalHandle(p, res.Noun)
		}
		return nil, notFound(p.String(), fmt.Sprintf("no resource field %q", p.Field))
	}

	m := res.Method(p.Method)
	if m == nil {
		return nil, notFound(p.String(), fmt.Sprintf("resource %q has no %s method", p.ResourceKey, p.Method))
	}
	if p.Field == "display" {
		return LiteralHandle{Value: m.Display}, nil
	}
	return resolveOperation(p, m.Operation, p.Field)
}

func resolveAction(p Path, actions map[string]ir.Action, key, field string) (Handle, error) {
	action, ok := actions[key]
	if !ok {
		return nil, notFound(p.String(), fmt.Sprintf("no action %q", key))
	}
	switch field {
	case "display":
		return LiteralHandle{Value: action.Display}, nil
	case "key":
		return literalHandle(p, action.Key)
	case "noun":
		return literalHandle(p, action.Noun)
	}
	return resolveOperation(p, action.Operation, field)
}

func resolveOperation(p Path, op ir.Operation, field string) (Handle, error) {
	switch field {
	case "operation.perform":
		return performHandle(p, op.Perform)
	case "operation.performList":
		return performHandle(p, op.PerformList)
	case "operation.performGet":
		return performHandle(p, op.PerformGet)
	case "operation.inputFields":
		return fieldsHandle(p, op.InputFields)
	case "operation.outputFields":
		return fieldsHandle(p, op.OutputFields)
	case "operation.sample":
		return sampleHandle(p, op.Sample)
	case "operation.resource":
		return literalHandle(p, op.Resource)
	case "operation.type":
		return literalHandle(p, op.Type)
	}
	return nil, notFound(p.String(), fmt.Sprintf("no operation field %q", field))
}

func (r *Resolver) resolveAuth(p AuthOp) (Handle, error) {
	auth := r.app.Authentication
	if auth == nil {
		return nil, notFound(p.String(), "app has no authentication")
	}

	switch p.Field {
	case "test":
		return performHandle(p, auth.Test)
	case "fields":
		return fieldsHandle(p, auth.Fields)
	case "type":
		return literalHandle(p, auth.Type)
	case "connectionLabel":
		return literalHandle(p, auth.ConnectionLabel)
	}

	oc := auth.OAuth2Config
	if oc == nil {
		return nil, notFound(p.String(), "app has no oauth2Config")
	}
	switch p.Field {
	case "oauth2Config.authorizeUrl":
		if oc.AuthorizeURL == nil {
			break
		}
		return AuthorizeURLHandle{URL: *oc.AuthorizeURL}, nil
	case "oauth2Config.getAccessToken":
		return performHandle(p, oc.GetAccessToken)
	case "oauth2Config.refreshAccessToken":
		return performHandle(p, oc.RefreshAccessToken)
	case "oauth2Config.scope":
		return literalHandle(p, oc.Scope)
	case "oauth2Config.autoRefresh":
		return LiteralHandle{Value: oc.AutoRefresh}, nil
	}
	return nil, notFound(p.String(), fmt.Sprintf("no authentication field %q", p.Field))
}

func performHandle(p Path, perform ir.Perform) (Handle, error) {
	if perform == nil {
		return nil, notFound(p.String(), "nothing to perform")
	}
	if sv, ok := perform.(ir.StaticValue); ok {
		return LiteralHandle{Value: sv.Value}, nil
	}
	return PerformHandle{Perform: perform}, nil
}

func fieldsHandle(p Path, fields ir.Fields) (Handle, error) {
	if fields == nil {
		return nil, notFound(p.String(), "no fields defined")
	}
	return FieldsHandle{Fields: fields}, nil
}

func sampleHandle(p Path, sample map[string]any) (Handle, error) {
	if sample == nil {
		return nil, notFound(p.String(), "no sample defined")
	}
	return LiteralHandle{Value: sample}, nil
}

func literalHandle(p Path, v string) (Handle, error) {
	if v == "" {
		return nil, notFound(p.String(), "value is not defined")
	}
	return LiteralHandle{Value: v}, nil
}

package ir

import (
	"maps"
	"slices"
)

// CloneValue deep-copies JSON-shaped values (maps, slices, scalars).
// Other values, including functions, are returned as-is.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = CloneValue(elem)
		}
		return out
	case *Request:
		return val.Clone()
	default:
		return v
	}
}

// CloneMap deep-copies a JSON-shaped object. nil stays nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// ClonePerform copies shorthand requests; functions are immutable and shared.
func ClonePerform(p Perform) Perform {
	if req, ok := p.(*Request); ok {
		return req.Clone()
	}
	if s, ok := p.(StaticValue); ok {
		return StaticValue{Value: CloneValue(s.Value)}
	}
	return p
}

// Clone deep-copies the fields list.
func (fs Fields) Clone() Fields {
	if fs == nil {
		return nil
	}
	out := make(Fields, len(fs))
	for i, s := range fs {
		if s.Static != nil {
			f := *s.Static
			f.Choices = maps.Clone(s.Static.Choices)
			out[i] = FieldSource{Static: &f}
			continue
		}
		out[i] = FieldSource{Dynamic: ClonePerform(s.Dynamic)}
	}
	return out
}

// Clone deep-copies the operation.
func (o Operation) Clone() Operation {
	o.Perform = ClonePerform(o.Perform)
	o.PerformList = ClonePerform(o.PerformList)
	o.PerformGet = ClonePerform(o.PerformGet)
	o.InputFields = o.InputFields.Clone()
	o.OutputFields = o.OutputFields.Clone()
	o.Sample = CloneMap(o.Sample)
	return o
}

// Clone deep-copies the method. nil stays nil.
func (m *Method) Clone() *Method {
	if m == nil {
		return nil
	}
	return &Method{Display: m.Display, Operation: m.Operation.Clone()}
}

// Clone deep-copies the action.
func (a Action) Clone() Action {
	a.Operation = a.Operation.Clone()
	return a
}

// Clone deep-copies the resource.
func (r Resource) Clone() Resource {
	r.List = r.List.Clone()
	r.Get = r.Get.Clone()
	r.Hook = r.Hook.Clone()
	r.Search = r.Search.Clone()
	r.Create = r.Create.Clone()
	r.OutputFields = r.OutputFields.Clone()
	r.Sample = CloneMap(r.Sample)
	if r.Methods != nil {
		methods := make(map[string]*Method, len(r.Methods))
		for name, m := range r.Methods {
			methods[name] = m.Clone()
		}
		r.Methods = methods
	}
	return r
}

// Clone deep-copies the auth spec. nil stays nil.
func (a *AuthSpec) Clone() *AuthSpec {
	if a == nil {
		return nil
	}
	c := *a
	c.Test = ClonePerform(a.Test)
	c.Fields = a.Fields.Clone()
	if a.OAuth2Config != nil {
		oc := *a.OAuth2Config
		oc.GetAccessToken = ClonePerform(a.OAuth2Config.GetAccessToken)
		oc.RefreshAccessToken = ClonePerform(a.OAuth2Config.RefreshAccessToken)
		if a.OAuth2Config.AuthorizeURL != nil {
			au := *a.OAuth2Config.AuthorizeURL
			au.Params = maps.Clone(a.OAuth2Config.AuthorizeURL.Params)
			oc.AuthorizeURL = &au
		}
		c.OAuth2Config = &oc
	}
	return &c
}

// Clone returns a structural copy of the definition. Variants are built by
// cloning and then overriding fields on the copy.
func (app *AppDefinition) Clone() *AppDefinition {
	if app == nil {
		return nil
	}
	return &AppDefinition{
		Key:            app.Key,
		Version:        app.Version,
		Resources:      cloneResources(app.Resources),
		Triggers:       cloneActions(app.Triggers),
		Searches:       cloneActions(app.Searches),
		Creates:        cloneActions(app.Creates),
		Authentication: app.Authentication.Clone(),
		BeforeRequest:  slices.Clone(app.BeforeRequest),
		AfterResponse:  slices.Clone(app.AfterResponse),
	}
}

func cloneResources(in map[string]Resource) map[string]Resource {
	if in == nil {
		return nil
	}
	out := make(map[string]Resource, len(in))
	for k, r := range in {
		out[k] = r.Clone()
	}
	return out
}

func cloneActions(in map[string]Action) map[string]Action {
	if in == nil {
		return nil
	}
	out := make(map[string]Action, len(in))
	for k, a := range in {
		out[k] = a.Clone()
	}
	return out
}

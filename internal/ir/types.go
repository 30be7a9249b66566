package ir

import (
	"maps"
	"slices"
)

// AppDefinition is the declarative description of an integration app.
// Built once (by hand or by compiler.LoadApp) and shared read-only.
type AppDefinition struct {
	Key            string              `json:"key,omitempty"`
	Version        string              `json:"version,omitempty"`
	Resources      map[string]Resource `json:"resources,omitempty"`
	Triggers       map[string]Action   `json:"triggers,omitempty"`
	Searches       map[string]Action   `json:"searches,omitempty"`
	Creates        map[string]Action   `json:"creates,omitempty"`
	Authentication *AuthSpec           `json:"authentication,omitempty"`
	BeforeRequest  []BeforeFunc        `json:"-"`
	AfterResponse  []AfterFunc         `json:"-"`
}

// Resource bundles CRUD-like sub-operations for one entity.
type Resource struct {
	Key          string         `json:"key"`
	Noun         string         `json:"noun"`
	List         *Method        `json:"list,omitempty"`
	Get          *Method        `json:"get,omitempty"`
	Hook         *Method        `json:"hook,omitempty"`
	Search       *Method        `json:"search,omitempty"`
	Create       *Method        `json:"create,omitempty"`
	OutputFields Fields         `json:"outputFields,omitempty"`
	Sample       map[string]any `json:"sample,omitempty"`

	// Methods holds named methods beyond the standard five. They are callable
	// as resources.<key>.<name>.* but never compiled into actions.
	Methods map[string]*Method `json:"methods,omitempty"`
}

// NamedMethod pairs a resource method with the name it is addressed by.
type NamedMethod struct {
	Name   string
	Method *Method
}

// NamedMethods lists the methods present on r: the standard ones in fixed
// order, then the named ones sorted by name.
func (r Resource) NamedMethods() []NamedMethod {
	var out []NamedMethod
	for _, m := range []NamedMethod{
		{"list", r.List},
		{"get", r.Get},
		{"hook", r.Hook},
		{"search", r.Search},
		{"create", r.Create},
	} {
		if m.Method != nil {
			out = append(out, m)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(r.Methods)) {
		if m := r.Methods[name]; m != nil {
			out = append(out, NamedMethod{name, m})
		}
	}
	return out
}

// Method returns the method addressed by name, or nil.
func (r Resource) Method(name string) *Method {
	switch name {
	case "list":
		return r.List
	case "get":
		return r.Get
	case "hook":
		return r.Hook
	case "search":
		return r.Search
	case "create":
		return r.Create
	}
	return r.Methods[name]
}

// Method is a resource sub-definition (list, get, hook, search, create).
type Method struct {
	Display   Display   `json:"display"`
	Operation Operation `json:"operation"`
}

// Action is a trigger, search or create, authored directly or derived from a resource.
type Action struct {
	Key       string    `json:"key"`
	Noun      string    `json:"noun"`
	Display   Display   `json:"display"`
	Operation Operation `json:"operation"`
}

// Display carries user-facing labels.
type Display struct {
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Hidden      bool   `json:"hidden,omitempty"`
	Important   bool   `json:"important,omitempty"`
}

// Operation holds the callable parts of an action.
type Operation struct {
	Resource     string         `json:"resource,omitempty"` // back-reference into AppDefinition.Resources
	Type         string         `json:"type,omitempty"`     // "polling" or "hook" for triggers
	Perform      Perform        `json:"perform,omitempty"`
	PerformList  Perform        `json:"performList,omitempty"`
	PerformGet   Perform        `json:"performGet,omitempty"`
	InputFields  Fields         `json:"inputFields,omitempty"`
	OutputFields Fields         `json:"outputFields,omitempty"`
	Sample       map[string]any `json:"sample,omitempty"`
}

// IsEmpty reports whether the operation carries nothing at all (a blank stub).
func (o Operation) IsEmpty() bool {
	return o.Resource == "" && o.Type == "" &&
		o.Perform == nil && o.PerformList == nil && o.PerformGet == nil &&
		o.InputFields == nil && o.OutputFields == nil && o.Sample == nil
}

// CompiledSchema is the canonical, queryable view of an app's actions.
type CompiledSchema struct {
	Triggers map[string]Action `json:"triggers"`
	Searches map[string]Action `json:"searches"`
	Creates  map[string]Action `json:"creates"`
}

// Authentication types.
const (
	AuthTypeOAuth2  = "oauth2"
	AuthTypeBasic   = "basic"
	AuthTypeCustom  = "custom"
	AuthTypeSession = "session"
)

// AuthSpec describes how the app authenticates.
type AuthSpec struct {
	Type            string        `json:"type"`
	Test            Perform       `json:"test,omitempty"`
	Fields          Fields        `json:"fields,omitempty"`
	ConnectionLabel string        `json:"connectionLabel,omitempty"`
	OAuth2Config    *OAuth2Config `json:"oauth2Config,omitempty"`
}

// AutoRefreshes reports whether 401 responses should trigger a token refresh.
func (a *AuthSpec) AutoRefreshes() bool {
	return a != nil && a.Type == AuthTypeOAuth2 && a.OAuth2Config != nil && a.OAuth2Config.AutoRefresh
}

// OAuth2Config configures the OAuth2 dance.
type OAuth2Config struct {
	AuthorizeURL       *AuthorizeURL `json:"authorizeUrl,omitempty"`
	GetAccessToken     Perform       `json:"getAccessToken,omitempty"`
	RefreshAccessToken Perform       `json:"refreshAccessToken,omitempty"`
	Scope              string        `json:"scope,omitempty"`
	AutoRefresh        bool          `json:"autoRefresh"`
}

// AuthorizeURL is a templated URL plus templated query params.
type AuthorizeURL struct {
	URL    string            `json:"url"`
	Params map[string]string `json:"params,omitempty"`
}

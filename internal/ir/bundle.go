package ir

import (
	"encoding/json"
	"maps"
)

// Bundle is the per-invocation input bag.
//
// Extra carries any additional top-level keys of the invocation bundle (raw
// test fields and similar). It is flattened into the JSON form.
type Bundle struct {
	InputData map[string]any `json:"inputData"`
	AuthData  map[string]any `json:"authData"`
	Meta      map[string]any `json:"meta"`
	Request   *Request       `json:"request,omitempty"`
	Extra     map[string]any `json:"-"`
}

var bundleKeys = map[string]bool{
	"inputData": true,
	"authData":  true,
	"meta":      true,
	"request":   true,
}

// NewBundle returns a bundle with non-nil data maps.
func NewBundle() *Bundle {
	return &Bundle{
		InputData: map[string]any{},
		AuthData:  map[string]any{},
		Meta:      map[string]any{},
	}
}

// Clone returns a deep copy of b.
func (b *Bundle) Clone() *Bundle {
	if b == nil {
		return NewBundle()
	}
	return &Bundle{
		InputData: CloneMap(b.InputData),
		AuthData:  CloneMap(b.AuthData),
		Meta:      CloneMap(b.Meta),
		Request:   b.Request.Clone(),
		Extra:     CloneMap(b.Extra),
	}
}

// WithAuthData returns a copy of b whose authData has update merged over it.
func (b *Bundle) WithAuthData(update map[string]any) *Bundle {
	c := b.Clone()
	if c.AuthData == nil {
		c.AuthData = make(map[string]any, len(update))
	}
	maps.Copy(c.AuthData, CloneMap(update))
	return c
}

// Get returns an extra top-level value.
func (b *Bundle) Get(key string) (any, bool) {
	if b == nil || b.Extra == nil {
		return nil, false
	}
	v, ok := b.Extra[key]
	return v, ok
}

// TemplateData is the map that {{bundle.*}} templates are evaluated against.
func (b *Bundle) TemplateData() map[string]any {
	out := make(map[string]any, len(b.Extra)+4)
	for k, v := range b.Extra {
		out[k] = v
	}
	out["inputData"] = emptyIfNil(b.InputData)
	out["authData"] = emptyIfNil(b.AuthData)
	out["meta"] = emptyIfNil(b.Meta)
	return out
}

func emptyIfNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// MarshalJSON flattens Extra next to the well-known keys.
func (b Bundle) MarshalJSON() ([]byte, error) {
	out := b.TemplateData()
	if b.Request != nil {
		out["request"] = b.Request
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits well-known keys from the extras.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*b = *NewBundle()
	for k, v := range raw {
		var err error
		switch k {
		case "inputData":
			err = json.Unmarshal(v, &b.InputData)
		case "authData":
			err = json.Unmarshal(v, &b.AuthData)
		case "meta":
			err = json.Unmarshal(v, &b.Meta)
		case "request":
			b.Request = &Request{}
			err = json.Unmarshal(v, b.Request)
		default:
			var val any
			err = json.Unmarshal(v, &val)
			if b.Extra == nil {
				b.Extra = make(map[string]any)
			}
			b.Extra[k] = val
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// BundleFromMap builds a bundle from a decoded JSON/YAML object.
func BundleFromMap(m map[string]any) (*Bundle, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	b := NewBundle()
	if err := json.Unmarshal(data, b); err != nil {
		return nil, err
	}
	return b, nil
}

// IsBundleKey reports whether key is one of the well-known bundle keys.
func IsBundleKey(key string) bool {
	return bundleKeys[key]
}

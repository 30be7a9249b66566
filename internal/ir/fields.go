package ir

import "encoding/json"

// Field describes one input or output field.
type Field struct {
	Key                 string            `json:"key" yaml:"key"`
	Label               string            `json:"label,omitempty" yaml:"label,omitempty"`
	Type                string            `json:"type,omitempty" yaml:"type,omitempty"`
	Required            bool              `json:"required,omitempty" yaml:"required,omitempty"`
	List                bool              `json:"list,omitempty" yaml:"list,omitempty"`
	HelpText            string            `json:"helpText,omitempty" yaml:"helpText,omitempty"`
	Default             string            `json:"default,omitempty" yaml:"default,omitempty"`
	Dynamic             string            `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
	Choices             map[string]string `json:"choices,omitempty" yaml:"choices,omitempty"`
	Computed            bool              `json:"computed,omitempty" yaml:"computed,omitempty"`
	AltersDynamicFields bool              `json:"altersDynamicFields,omitempty" yaml:"altersDynamicFields,omitempty"`
}

// FieldSource is one entry of a fields list: either a static field or a
// perform that yields zero or more fields when invoked.
type FieldSource struct {
	Static  *Field
	Dynamic Perform
}

// MarshalJSON emits the static field or the dynamic perform marker.
func (s FieldSource) MarshalJSON() ([]byte, error) {
	if s.Static != nil {
		return json.Marshal(s.Static)
	}
	return json.Marshal(s.Dynamic)
}

// Fields is an ordered mix of static and dynamic field sources.
type Fields []FieldSource

// StaticFields builds a Fields list made only of static entries.
func StaticFields(fields ...Field) Fields {
	out := make(Fields, len(fields))
	for i := range fields {
		f := fields[i]
		out[i] = FieldSource{Static: &f}
	}
	return out
}

// DynamicField builds a single dynamic entry.
func DynamicField(p Perform) FieldSource {
	return FieldSource{Dynamic: p}
}

// IsStatic reports whether every entry is static.
func (fs Fields) IsStatic() bool {
	for _, s := range fs {
		if s.Static == nil {
			return false
		}
	}
	return true
}

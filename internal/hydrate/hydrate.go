// Package hydrate encodes deferred re-invocation tokens into their string
// wire format and parses them back.
//
// A marker looks like:
//
//	hydrate|||{"type":"method","method":"resources.x.get.operation.perform","bundle":{...}}|||hydrate
//
// Tokens are never resolved here. Whoever receives a marker decides whether
// and when to invoke the method it names.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/appcore/internal/ir"
)

const (
	Prefix = "hydrate|||"
	Suffix = "|||hydrate"
)

var (
	tokenType     = reflect.TypeFor[ir.HydrateToken]()
	marshalerType = reflect.TypeFor[json.Marshaler]()
)

// Encode walks v depth-first and replaces every ir.HydrateToken (or
// *ir.HydrateToken) with its marker string, at any depth. map[string]any and
// []any are always rebuilt. Other maps, slices, arrays, pointers and structs
// are rebuilt as map[string]any / []any only when a token was found inside
// them; otherwise they are returned as is. Types with their own MarshalJSON
// are opaque.
func Encode(v any) (any, error) {
	switch v := v.(type) {
	case nil, string, bool, float64, int, int64, json.Number:
		return v, nil
	case ir.HydrateToken:
		return Marker(v)
	case *ir.HydrateToken:
		if v == nil {
			return nil, nil
		}
		return Marker(*v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			enc, err := Encode(e)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			enc, err := Encode(e)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	}

	out, _, err := encodeValue(reflect.ValueOf(v))
	return out, err
}

// encodeValue reports whether a token was replaced somewhere below rv.
func encodeValue(rv reflect.Value) (any, bool, error) {
	if !rv.IsValid() {
		return nil, false, nil
	}
	t := rv.Type()
	if t == tokenType {
		m, err := Marker(rv.Interface().(ir.HydrateToken))
		return m, true, err
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return nil, false, nil
		}
		return encodeValue(rv.Elem())
	case reflect.Pointer:
		if rv.IsNil() {
			if t.Elem() == tokenType {
				return nil, true, nil
			}
			return rv.Interface(), false, nil
		}
		if t.Elem() == tokenType {
			return encodeValue(rv.Elem())
		}
	}

	if t.Implements(marshalerType) {
		return rv.Interface(), false, nil
	}

	switch rv.Kind() {
	case reflect.Pointer:
		out, changed, err := encodeValue(rv.Elem())
		if err != nil || !changed {
			return rv.Interface(), false, err
		}
		return out, true, nil
	case reflect.Map:
		return encodeMap(rv)
	case reflect.Slice:
		if rv.IsNil() || t.Elem().Kind() == reflect.Uint8 {
			return rv.Interface(), false, nil
		}
		return encodeList(rv)
	case reflect.Array:
		return encodeList(rv)
	case reflect.Struct:
		if reflect.PointerTo(t).Implements(marshalerType) {
			return rv.Interface(), false, nil
		}
		return encodeStruct(rv)
	default:
		return rv.Interface(), false, nil
	}
}

func encodeMap(rv reflect.Value) (any, bool, error) {
	if rv.IsNil() {
		return rv.Interface(), false, nil
	}
	out := make(map[string]any, rv.Len())
	changed := false
	iter := rv.MapRange()
	for iter.Next() {
		key, ok := mapKey(iter.Key())
		if !ok {
			// encoding/json cannot name this key either.
			return rv.Interface(), false, nil
		}
		e, c, err := encodeValue(iter.Value())
		if err != nil {
			return nil, false, err
		}
		out[key] = e
		changed = changed || c
	}
	if !changed {
		return rv.Interface(), false, nil
	}
	return out, true, nil
}

func mapKey(k reflect.Value) (string, bool) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), true
	default:
		return "", false
	}
}

func encodeList(rv reflect.Value) (any, bool, error) {
	out := make([]any, rv.Len())
	changed := false
	for i := range out {
		e, c, err := encodeValue(rv.Index(i))
		if err != nil {
			return nil, false, err
		}
		out[i] = e
		changed = changed || c
	}
	if !changed {
		return rv.Interface(), false, nil
	}
	return out, true, nil
}

// encodeStruct names fields the way encoding/json does: json tag names,
// "-" skipped, omitempty honored, untagged embedded structs flattened with
// outer fields taking precedence.
func encodeStruct(rv reflect.Value) (any, bool, error) {
	out, changed, err := structFields(rv)
	if err != nil || !changed {
		return rv.Interface(), false, err
	}
	return out, true, nil
}

func structFields(rv reflect.Value) (map[string]any, bool, error) {
	out := map[string]any{}
	promoted := map[string]any{}
	changed := false

	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}
		fv := rv.Field(i)

		if f.Anonymous && name == "" {
			inner := fv
			if inner.Kind() == reflect.Pointer {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct && !inner.Type().Implements(marshalerType) {
				fields, c, err := structFields(inner)
				if err != nil {
					return nil, false, err
				}
				maps.Copy(promoted, fields)
				changed = changed || c
				continue
			}
		}

		if slices.Contains(strings.Split(opts, ","), "omitempty") && isEmpty(fv) {
			continue
		}
		if name == "" {
			name = f.Name
		}
		e, c, err := encodeValue(fv)
		if err != nil {
			return nil, false, err
		}
		out[name] = e
		changed = changed || c
	}

	for k, v := range promoted {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out, changed, nil
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

// Marker renders a single token.
func Marker(tok ir.HydrateToken) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tok); err != nil {
		return "", fmt.Errorf("hydrate: token for %s is not serializable: %w", tok.Method, err)
	}
	return Prefix + strings.TrimSuffix(buf.String(), "\n") + Suffix, nil
}

// IsMarker reports whether s has the marker shape.
func IsMarker(s string) bool {
	return len(s) >= len(Prefix)+len(Suffix) && strings.HasPrefix(s, Prefix) && strings.HasSuffix(s, Suffix)
}

// Decode parses a marker back into its token.
func Decode(s string) (ir.HydrateToken, error) {
	if !IsMarker(s) {
		return ir.HydrateToken{}, fmt.Errorf("hydrate: not a marker: %q", s)
	}
	var tok ir.HydrateToken
	body := s[len(Prefix) : len(s)-len(Suffix)]
	if err := json.Unmarshal([]byte(body), &tok); err != nil {
		return ir.HydrateToken{}, fmt.Errorf("hydrate: bad marker payload: %w", err)
	}
	if tok.Type != ir.HydrateTypeMethod {
		return ir.HydrateToken{}, fmt.Errorf("hydrate: unsupported token type %q", tok.Type)
	}
	return tok, nil
}

// Package render evaluates {{bundle.*}} templates against an invocation bundle.
//
// Lookups run through gjson over the JSON form of {"bundle": <template data>},
// so nested objects, arrays (bundle.inputData.items.0) and numbers render the
// same way they would after a JSON round trip. Placeholders that do not start
// with "bundle." are left untouched; missing keys render as the empty string.
package render

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/roach88/appcore/internal/ir"
)

var placeholder = regexp.MustCompile(`\{\{\s*(bundle(?:\.[^{}\s.]+)+)\s*\}\}`)

// Renderer renders templates against one bundle snapshot.
type Renderer struct {
	doc string
}

// New snapshots b. Later changes to b are not seen by the renderer.
func New(b *ir.Bundle) (*Renderer, error) {
	if b == nil {
		b = ir.NewBundle()
	}
	data, err := json.Marshal(map[string]any{"bundle": b.TemplateData()})
	if err != nil {
		return nil, fmt.Errorf("render: bundle is not serializable: %w", err)
	}
	return &Renderer{doc: string(data)}, nil
}

// String replaces every {{bundle.*}} placeholder in tmpl.
func (r *Renderer) String(tmpl string) string {
	return r.substitute(tmpl, nil)
}

func (r *Renderer) substitute(tmpl string, escape func(string) string) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		path := placeholder.FindStringSubmatch(m)[1]
		res := gjson.Get(r.doc, gjsonPath(path))
		if !res.Exists() || res.Type == gjson.Null {
			return ""
		}
		if escape != nil {
			return escape(res.String())
		}
		return res.String()
	})
}

// Value renders every string inside v, rebuilding maps and slices.
func (r *Renderer) Value(v any) any {
	switch v := v.(type) {
	case string:
		return r.String(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = r.Value(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = r.Value(e)
		}
		return out
	case map[string]string:
		return r.Strings(v)
	default:
		return v
	}
}

// Strings renders each value of m into a new map.
func (r *Renderer) Strings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = r.String(v)
	}
	return out
}

// Request returns a copy of req with URL, params, headers and body rendered.
func (r *Renderer) Request(req *ir.Request) *ir.Request {
	c := req.Clone()
	c.URL = r.String(c.URL)
	c.Params = r.Strings(c.Params)
	c.Headers = r.Strings(c.Headers)
	c.Body = r.Value(c.Body)
	return c
}

// String renders a single template against b.
func String(tmpl string, b *ir.Bundle) (string, error) {
	r, err := New(b)
	if err != nil {
		return "", err
	}
	return r.String(tmpl), nil
}

// Request renders a shorthand request against b.
func Request(req *ir.Request, b *ir.Bundle) (*ir.Request, error) {
	r, err := New(b)
	if err != nil {
		return nil, err
	}
	return r.Request(req), nil
}

// AuthorizeURL renders an OAuth2 authorize URL. Params are rendered, then
// appended as a percent-encoded query in sorted key order. Placeholders in
// the query part of the url template itself are query-escaped.
func AuthorizeURL(au ir.AuthorizeURL, b *ir.Bundle) (string, error) {
	r, err := New(b)
	if err != nil {
		return "", err
	}

	var base string
	if path, query, ok := strings.Cut(au.URL, "?"); ok {
		base = r.String(path) + "?" + r.substitute(query, url.QueryEscape)
	} else {
		base = r.String(au.URL)
	}
	if len(au.Params) == 0 {
		return base, nil
	}

	keys := make([]string, 0, len(au.Params))
	for k := range au.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = url.QueryEscape(k) + "=" + url.QueryEscape(r.String(au.Params[k]))
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + strings.Join(pairs, "&"), nil
}

// gjsonPath escapes the characters gjson treats as path syntax inside each
// dotted segment.
func gjsonPath(path string) string {
	var sb strings.Builder
	for _, c := range path {
		switch c {
		case '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

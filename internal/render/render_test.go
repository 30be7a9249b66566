package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/appcore/internal/ir"
)

func testBundle() *ir.Bundle {
	b := ir.NewBundle()
	b.InputData = map[string]any{
		"id":     5,
		"name":   "Honker",
		"items":  []any{"a", "b"},
		"nested": map[string]any{"a": 1},
		"empty":  nil,
	}
	b.AuthData = map[string]any{"token": "secret", "domain": "my-sub"}
	b.Extra = map[string]any{"key1": "key 1"}
	return b
}

func TestString(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     string
		expected string
	}{
		{"no placeholders", "http://local.dev/items", "http://local.dev/items"},
		{"number", "http://local.dev/items/{{bundle.inputData.id}}", "http://local.dev/items/5"},
		{"string", "Hello {{bundle.inputData.name}}!", "Hello Honker!"},
		{"spaces inside braces", "Bearer {{ bundle.authData.token }}", "Bearer secret"},
		{"array index", "{{bundle.inputData.items.1}}", "b"},
		{"object renders as JSON", "{{bundle.inputData.nested}}", `{"a":1}`},
		{"extra top-level key", "{{bundle.key1}}", "key 1"},
		{"missing key", "x{{bundle.inputData.nope}}y", "xy"},
		{"null value", "x{{bundle.inputData.empty}}y", "xy"},
		{"non-bundle placeholder untouched", "{{inputData.id}}", "{{inputData.id}}"},
		{"several", "{{bundle.authData.domain}}/{{bundle.inputData.id}}", "my-sub/5"},
	}

	r, err := New(testBundle())
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.String(tt.tmpl))
		})
	}
}

func TestRequest(t *testing.T) {
	req := &ir.Request{
		Method:  "POST",
		URL:     "http://local.dev/items/{{bundle.inputData.id}}",
		Params:  map[string]string{"name": "{{bundle.inputData.name}}"},
		Headers: map[string]string{"Authorization": "Bearer {{bundle.authData.token}}"},
		Body: map[string]any{
			"title": "{{bundle.inputData.name}}",
			"tags":  []any{"{{bundle.key1}}", 3},
		},
		Shorthand: true,
	}

	out, err := Request(req, testBundle())
	require.NoError(t, err)

	assert.Equal(t, "http://local.dev/items/5", out.URL)
	assert.Equal(t, "Honker", out.Params["name"])
	assert.Equal(t, "Bearer secret", out.Headers["Authorization"])
	assert.Equal(t, map[string]any{"title": "Honker", "tags": []any{"key 1", 3}}, out.Body)
	assert.True(t, out.Shorthand)

	// The source request is left alone.
	assert.Equal(t, "http://local.dev/items/{{bundle.inputData.id}}", req.URL)
	assert.Equal(t, "{{bundle.inputData.name}}", req.Body.(map[string]any)["title"])
}

func TestAuthorizeURL(t *testing.T) {
	b := ir.NewBundle()
	b.AuthData = map[string]any{"domain": "my-sub"}
	b.InputData = map[string]any{"scope": "read,write", "state": "a b"}

	tests := []struct {
		name     string
		au       ir.AuthorizeURL
		expected string
	}{
		{
			name: "scope param",
			au: ir.AuthorizeURL{
				URL:    "http://{{bundle.authData.domain}}.example.com",
				Params: map[string]string{"scope": "{{bundle.inputData.scope}}"},
			},
			expected: "http://my-sub.example.com?scope=read%2Cwrite",
		},
		{
			name: "params sorted by key",
			au: ir.AuthorizeURL{
				URL: "http://example.com/auth",
				Params: map[string]string{
					"state":     "{{bundle.inputData.state}}",
					"client_id": "abc",
				},
			},
			expected: "http://example.com/auth?client_id=abc&state=a+b",
		},
		{
			name: "existing query",
			au: ir.AuthorizeURL{
				URL:    "http://example.com/auth?response_type=code",
				Params: map[string]string{"scope": "read"},
			},
			expected: "http://example.com/auth?response_type=code&scope=read",
		},
		{
			name:     "placeholder in url query",
			au:       ir.AuthorizeURL{URL: "http://{{bundle.authData.domain}}.example.com?scope={{bundle.inputData.scope}}"},
			expected: "http://my-sub.example.com?scope=read%2Cwrite",
		},
		{
			name: "placeholder in url query with params",
			au: ir.AuthorizeURL{
				URL:    "http://example.com/auth?state={{bundle.inputData.state}}",
				Params: map[string]string{"client_id": "abc"},
			},
			expected: "http://example.com/auth?state=a+b&client_id=abc",
		},
		{
			name:     "no params",
			au:       ir.AuthorizeURL{URL: "http://{{bundle.authData.domain}}.example.com"},
			expected: "http://my-sub.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AuthorizeURL(tt.au, b)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNew_NilBundle(t *testing.T) {
	got, err := String("x{{bundle.inputData.id}}", nil)
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestNew_UnserializableBundle(t *testing.T) {
	b := ir.NewBundle()
	b.InputData["fn"] = func() {}

	_, err := New(b)
	require.Error(t, err)
}

package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/appcore/internal/compiler"
	"github.com/roach88/appcore/internal/ir"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		method   string
		expected Path
	}{
		{"resources.foo.list.operation.perform", ResourceOp{ResourceKey: "foo", Method: "list", Field: "operation.perform"}},
		{"resources.foo.outputFields", ResourceOp{ResourceKey: "foo", Field: "outputFields"}},
		{"resources.contacterror.listWithError.operation.perform", ResourceOp{ResourceKey: "contacterror", Method: "listWithError", Field: "operation.perform"}},
		{"triggers.fooList.operation.perform", TriggerOp{Key: "fooList", Field: "operation.perform"}},
		{"searches.fooSearch.operation.performGet", SearchOp{Key: "fooSearch", Field: "operation.performGet"}},
		{"creates.fooCreate.operation.inputFields", CreateOp{Key: "fooCreate", Field: "operation.inputFields"}},
		{"authentication.oauth2Config.authorizeUrl", AuthOp{Field: "oauth2Config.authorizeUrl"}},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			p, err := ParsePath(tt.method)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
			assert.Equal(t, tt.method, p.String())
		})
	}
}

func TestParsePathRejects(t *testing.T) {
	for _, method := range []string{
		"",
		"resources",
		"resources.foo",
		"resources.foo.list",
		"triggers.fooList",
		"authentication",
		"workflows.foo.run",
		"triggers..operation.perform",
		"triggers.fooList.operation.perform.",
	} {
		t.Run(method, func(t *testing.T) {
			_, err := ParsePath(method)
			require.Error(t, err)
			assert.True(t, IsMethodNotFound(err))
		})
	}
}

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	list := ir.SyncFunc(func(context.Context, ir.Z, *ir.Bundle) (any, error) { return []any{}, nil })
	app := &ir.AppDefinition{
		Resources: map[string]ir.Resource{
			"foo": {
				Key:  "foo",
				Noun: "Foo",
				List: &ir.Method{
					Display: ir.Display{Label: "New Foo"},
					Operation: ir.Operation{
						Perform:     list,
						InputFields: ir.StaticFields(ir.Field{Key: "key 1"}),
					},
				},
				Get:          &ir.Method{Operation: ir.Operation{Perform: &ir.Request{URL: "http://local.dev/items/1"}}},
				Hook:         &ir.Method{},
				OutputFields: ir.StaticFields(ir.Field{Key: "id"}),
				Sample:       map[string]any{"id": 1},
				Methods: map[string]*ir.Method{
					"listWithError": {Operation: ir.Operation{Perform: &ir.Request{URL: "http://local.dev/fail"}}},
				},
			},
		},
		Creates: map[string]ir.Action{
			"staticFoo": {Operation: ir.Operation{Perform: ir.StaticValue{Value: map[string]any{"id": 9}}}},
		},
		Authentication: &ir.AuthSpec{
			Type: ir.AuthTypeOAuth2,
			OAuth2Config: &ir.OAuth2Config{
				AuthorizeURL:   &ir.AuthorizeURL{URL: "http://{{bundle.authData.domain}}.example.com"},
				GetAccessToken: &ir.Request{URL: "http://local.dev/token"},
				AutoRefresh:    true,
			},
		},
	}
	schema, err := compiler.CompileApp(app)
	require.NoError(t, err)
	return New(app, schema)
}

func TestResolveHandles(t *testing.T) {
	r := testResolver(t)

	tests := []struct {
		method string
		kind   Handle
	}{
		{"resources.foo.list.operation.perform", PerformHandle{}},
		{"triggers.fooList.operation.perform", PerformHandle{}},
		{"resources.foo.get.operation.perform", PerformHandle{}},
		{"resources.foo.listWithError.operation.perform", PerformHandle{}},
		{"triggers.fooHook.operation.performList", PerformHandle{}},
		{"resources.foo.list.operation.inputFields", FieldsHandle{}},
		{"triggers.fooList.operation.outputFields", FieldsHandle{}},
		{"resources.foo.outputFields", FieldsHandle{}},
		{"resources.foo.sample", LiteralHandle{}},
		{"triggers.fooList.operation.sample", LiteralHandle{}},
		{"resources.foo.list.display", LiteralHandle{}},
		{"creates.staticFoo.operation.perform", LiteralHandle{}},
		{"authentication.oauth2Config.authorizeUrl", AuthorizeURLHandle{}},
		{"authentication.oauth2Config.getAccessToken", PerformHandle{}},
		{"authentication.oauth2Config.autoRefresh", LiteralHandle{}},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			h, err := r.Resolve(tt.method)
			require.NoError(t, err)
			assert.IsType(t, tt.kind, h)
		})
	}
}

func TestResolveSamePerformViaResourceAndTrigger(t *testing.T) {
	r := testResolver(t)

	viaResource, err := r.Resolve("resources.foo.list.operation.perform")
	require.NoError(t, err)
	viaTrigger, err := r.Resolve("triggers.fooList.operation.perform")
	require.NoError(t, err)

	assert.IsType(t, ir.SyncFunc(nil), viaResource.(PerformHandle).Perform)
	assert.IsType(t, ir.SyncFunc(nil), viaTrigger.(PerformHandle).Perform)

	get, err := r.Resolve("resources.foo.get.operation.perform")
	require.NoError(t, err)
	assert.Equal(t, "http://local.dev/items/1", get.(PerformHandle).Perform.(*ir.Request).URL)
}

func TestResolveLiteralValues(t *testing.T) {
	r := testResolver(t)

	h, err := r.Resolve("creates.staticFoo.operation.perform")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 9}, h.(LiteralHandle).Value)

	h, err = r.Resolve("resources.foo.list.display")
	require.NoError(t, err)
	assert.Equal(t, ir.Display{Label: "New Foo"}, h.(LiteralHandle).Value)

	h, err = r.Resolve("authentication.oauth2Config.authorizeUrl")
	require.NoError(t, err)
	assert.Equal(t, "http://{{bundle.authData.domain}}.example.com", h.(AuthorizeURLHandle).URL.URL)
}

func TestResolveNotFound(t *testing.T) {
	r := testResolver(t)

	for _, method := range []string{
		"resources.bar.list.operation.perform",
		"resources.foo.search.operation.perform",
		"resources.foo.hook.operation.perform",
		"resources.foo.list.operation.nope",
		"resources.foo.nope",
		"resources.foo.nope.operation.perform",
		"resources.foo.listWithError.operation.nope",
		"triggers.nope.operation.perform",
		"triggers.fooHook.operation.perform",
		"searches.fooSearch.operation.perform",
		"authentication.oauth2Config.refreshAccessToken",
		"authentication.oauth2Config.nope",
		"authentication.test",
	} {
		t.Run(method, func(t *testing.T) {
			_, err := r.Resolve(method)
			require.Error(t, err)

			var mnf *MethodNotFoundError
			require.ErrorAs(t, err, &mnf)
			assert.Equal(t, method, mnf.Method)
			assert.Equal(t, "MethodNotFoundError", mnf.ErrorName())
		})
	}
}

func TestResolveWithoutAuthentication(t *testing.T) {
	app := &ir.AppDefinition{}
	r := New(app, compiler.MustCompileApp(app))

	_, err := r.Resolve("authentication.oauth2Config.authorizeUrl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app has no authentication")
}

func TestMethodNotFoundErrorMessage(t *testing.T) {
	err := &MethodNotFoundError{Method: "triggers.x.operation.perform"}
	assert.Equal(t, "could not find the method to call: triggers.x.operation.perform", err.Error())
}

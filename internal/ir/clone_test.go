package ir

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleApp() *AppDefinition {
	list := SyncFunc(func(context.Context, Z, *Bundle) (any, error) { return []any{}, nil })
	return &AppDefinition{
		Key: "sample",
		Resources: map[string]Resource{
			"foo": {
				Key:  "foo",
				Noun: "Foo",
				List: &Method{
					Display:   Display{Label: "New Foo"},
					Operation: Operation{Perform: list},
				},
				Get: &Method{
					Operation: Operation{Perform: &Request{URL: "http://local.dev/items/{{bundle.inputData.id}}", Shorthand: true}},
				},
				OutputFields: StaticFields(Field{Key: "id"}, Field{Key: "name", Choices: map[string]string{"a": "A"}}),
				Sample:       map[string]any{"id": 1, "tags": []any{"x"}},
			},
		},
		Authentication: &AuthSpec{
			Type: AuthTypeOAuth2,
			OAuth2Config: &OAuth2Config{
				AuthorizeURL: &AuthorizeURL{URL: "http://example.com", Params: map[string]string{"scope": "read"}},
				AutoRefresh:  true,
			},
		},
	}
}

func TestAppDefinitionCloneIsDeep(t *testing.T) {
	app := sampleApp()
	c := app.Clone()

	foo := c.Resources["foo"]
	foo.Noun = "Bar"
	foo.Sample["id"] = 2
	foo.Sample["tags"].([]any)[0] = "y"
	foo.OutputFields[1].Static.Choices["a"] = "B"
	foo.Get.Operation.Perform.(*Request).URL = "http://elsewhere"
	c.Resources["foo"] = foo
	c.Authentication.OAuth2Config.AuthorizeURL.Params["scope"] = "write"
	c.Authentication.OAuth2Config.AutoRefresh = false

	orig := app.Resources["foo"]
	assert.Equal(t, "Foo", orig.Noun)
	assert.Equal(t, 1, orig.Sample["id"])
	assert.Equal(t, "x", orig.Sample["tags"].([]any)[0])
	assert.Equal(t, "A", orig.OutputFields[1].Static.Choices["a"])
	assert.Equal(t, "http://local.dev/items/{{bundle.inputData.id}}", orig.Get.Operation.Perform.(*Request).URL)
	assert.Equal(t, "read", app.Authentication.OAuth2Config.AuthorizeURL.Params["scope"])
	assert.True(t, app.Authentication.AutoRefreshes())
}

func TestCloneNilStaysNil(t *testing.T) {
	var app *AppDefinition
	assert.Nil(t, app.Clone())

	var m *Method
	assert.Nil(t, m.Clone())

	var a *AuthSpec
	assert.Nil(t, a.Clone())
	assert.Nil(t, CloneMap(nil))
}

func TestOperationIsEmpty(t *testing.T) {
	assert.True(t, Operation{}.IsEmpty())
	assert.False(t, Operation{Sample: map[string]any{}}.IsEmpty())
	assert.False(t, Operation{Perform: StaticValue{Value: 1}}.IsEmpty())
}

func TestFieldsJSONMarksFunctions(t *testing.T) {
	fields := append(StaticFields(Field{Key: "key 1"}),
		DynamicField(SyncFunc(func(context.Context, Z, *Bundle) (any, error) { return nil, nil })),
		DynamicField(StaticValue{Value: []any{map[string]any{"key": "key 3"}}}),
	)
	assert.False(t, fields.IsStatic())

	data, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"key":"key 1"},"[function]",[{"key":"key 3"}]]`, string(data))
}

func TestResolved(t *testing.T) {
	ch := Resolved([]any{1}, nil)(context.Background(), nil, nil)
	res, ok := <-ch
	require.True(t, ok)
	assert.NoError(t, res.Err)
	assert.Equal(t, []any{1}, res.Value)

	_, ok = <-ch
	assert.False(t, ok)
}

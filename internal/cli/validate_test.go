package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/appcore/internal/compiler"
)

func TestValidate_Valid(t *testing.T) {
	stdout, _, err := execute(t, "validate", contactsApp)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ App definition is valid")
}

func TestValidate_ValidJSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "validate", contactsApp)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
}

const nounlessApp = `app: {
	key: "broken"
	resources: thing: list: {
		display: label: "Things"
		operation: perform: url: "https://api.example.com/things"
	}
}
`

func TestValidate_Invalid(t *testing.T) {
	dir := writeApp(t, nounlessApp)

	stdout, _, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with")
	assert.Contains(t, stdout, "✗ Validation failed")
	assert.Contains(t, stdout, compiler.ErrMissingNoun)
}

func TestValidate_InvalidJSON(t *testing.T) {
	dir := writeApp(t, nounlessApp)

	stdout, _, err := execute(t, "--format", "json", "validate", dir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	require.NotNil(t, resp.Error)
	assert.Equal(t, resp.Data.Errors[0].Code, resp.Error.Code)
}

func TestValidate_MissingDir(t *testing.T) {
	_, _, err := execute(t, "validate", "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

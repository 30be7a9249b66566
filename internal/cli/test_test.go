package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoScenarios = filepath.Join("..", "..", "testdata", "scenarios")

// writeScenario writes an authorizeUrl scenario against the contacts app.
// The step needs no HTTP traffic.
func writeScenario(t *testing.T, dir, name, wantURL string) string {
	t.Helper()
	app, err := filepath.Abs(contactsApp)
	require.NoError(t, err)

	path := filepath.Join(dir, name+".yaml")
	writeFile(t, path, strings.Join([]string{
		"name: " + name,
		"description: authorize url rendering",
		"app: " + app,
		"steps:",
		"  - method: authentication.oauth2Config.authorizeUrl",
		"    bundle:",
		"      inputData:",
		"        client_id: abc",
		"        state: xyz",
		"    expect:",
		"      results: " + wantURL,
		"",
	}, "\n"))
	return path
}

const authorizeURL = "https://api.example.com/authorize?client_id=abc&state=xyz"

func TestTest_RepositoryScenarios(t *testing.T) {
	stdout, _, err := execute(t, "test", repoScenarios)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "✓ contacts_refresh")
	assert.Contains(t, stdout, "✓ contacts_errors")
	assert.Contains(t, stdout, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTest_JSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "test", repoScenarios)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Passed)

	golden := map[string]string{}
	for _, sr := range resp.Data.Scenarios {
		golden[sr.Name] = sr.Golden
	}
	assert.Equal(t, map[string]string{"contacts_errors": "", "contacts_refresh": "matched"}, golden)
}

func TestTest_Filter(t *testing.T) {
	stdout, _, err := execute(t, "test", repoScenarios, "--filter", "*_errors")
	require.NoError(t, err)
	assert.Contains(t, stdout, "contacts_errors")
	assert.NotContains(t, stdout, "contacts_refresh")
	assert.Contains(t, stdout, "1 passed, 0 failed, 1 total")

	_, _, err = execute(t, "test", repoScenarios, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_UpdateThenMatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "authorize", authorizeURL)

	stdout, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ authorize (golden updated)")

	data, err := os.ReadFile(filepath.Join(dir, "golden", "authorize.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name": "authorize"`)
	assert.Contains(t, string(data), authorizeURL)

	stdout, _, err = execute(t, "--format", "json", "test", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"golden": "matched"`)
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "authorize", authorizeURL)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	writeFile(t, filepath.Join(dir, "golden", "authorize.golden"), "{}\n")

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ authorize")
	assert.Contains(t, stdout, "snapshot does not match golden file")
}

func TestTest_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong", "https://example.com/elsewhere")

	stdout, _, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTest_InvalidScenarioFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.yaml"), "name: broken\n")

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "✗ broken.yaml")
	assert.Contains(t, stdout, "failed to load scenario")
}

func TestTest_Empty(t *testing.T) {
	stdout, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", stdout)
}

func TestTest_MissingDir(t *testing.T) {
	stdout, _, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E005]")
}

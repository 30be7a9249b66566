package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/appcore/internal/engine"
	"github.com/roach88/appcore/internal/store"
)

func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	entries := []store.Entry{
		{ID: "inv-1", Seq: 1, Command: "execute", Method: "triggers.contactList.operation.perform", BundleHash: "h1", Outcome: engine.OutcomeSuccess, Requests: 1, StartedAt: started, Duration: 2 * time.Millisecond},
		{ID: "inv-2", Seq: 2, Command: "execute", Method: "triggers.contactList.operation.perform", BundleHash: "h2", Outcome: engine.OutcomeSuccess, Refreshed: true, Requests: 3, StartedAt: started, Duration: 5 * time.Millisecond},
		{ID: "inv-3", Seq: 3, Command: "execute", Method: "searches.findContact.operation.perform", BundleHash: "h1", Outcome: engine.OutcomeError, ErrorName: "ResponseError", ErrorMessage: "Got 500", Requests: 1, StartedAt: started, Duration: time.Millisecond},
	}
	for _, e := range entries {
		require.NoError(t, st.Append(context.Background(), e))
	}
	return path
}

func historyJSON(t *testing.T, args ...string) HistoryResult {
	t.Helper()
	stdout, _, err := execute(t, append([]string{"--format", "json", "history"}, args...)...)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestHistory_Text(t *testing.T) {
	path := seedJournal(t)

	stdout, _, err := execute(t, "history", "--journal", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "SEQ")
	assert.Contains(t, stdout, "inv-2")
	assert.Contains(t, stdout, "success [refreshed]")
	assert.Contains(t, stdout, "error (ResponseError)")
	assert.Contains(t, stdout, "3 invocation(s): 2 succeeded, 1 failed, 1 refreshed")
}

func TestHistory_Filters(t *testing.T) {
	path := seedJournal(t)

	t.Run("all", func(t *testing.T) {
		res := historyJSON(t, "--journal", path)
		require.Len(t, res.Entries, 3)
		assert.Equal(t, path, res.Journal)
		assert.Equal(t, HistoryStats{Total: 3, Succeeded: 2, Failed: 1, Refreshed: 1}, res.Stats)
		assert.Equal(t, 5*time.Millisecond, res.Entries[1].Duration)
	})

	t.Run("outcome", func(t *testing.T) {
		res := historyJSON(t, "--journal", path, "--outcome", "error")
		require.Len(t, res.Entries, 1)
		assert.Equal(t, "inv-3", res.Entries[0].ID)
		assert.Equal(t, "Got 500", res.Entries[0].ErrorMessage)
	})

	t.Run("method", func(t *testing.T) {
		res := historyJSON(t, "--journal", path, "--method", "triggers.contactList.operation.perform")
		assert.Len(t, res.Entries, 2)
	})

	t.Run("bundle hash", func(t *testing.T) {
		res := historyJSON(t, "--journal", path, "--bundle-hash", "h1")
		require.Len(t, res.Entries, 2)
		assert.Equal(t, "inv-1", res.Entries[0].ID)
		assert.Equal(t, "inv-3", res.Entries[1].ID)
	})

	t.Run("limit keeps newest", func(t *testing.T) {
		res := historyJSON(t, "--journal", path, "--limit", "1")
		require.Len(t, res.Entries, 1)
		assert.Equal(t, int64(3), res.Entries[0].Seq)
	})
}

func TestHistory_EmptyJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	stdout, _, err := execute(t, "history", "--journal", path)
	require.NoError(t, err)
	assert.Equal(t, "No invocations recorded.\n", stdout)
}

func TestHistory_Errors(t *testing.T) {
	path := seedJournal(t)
	missing := filepath.Join(t.TempDir(), "missing.db")

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"no journal configured", nil, ErrCodeJournal},
		{"missing journal", []string{"--journal", missing}, ErrCodeNotFound},
		{"invalid outcome", []string{"--journal", path, "--outcome", "maybe"}, ErrCodeInvalidInput},
		{"negative limit", []string{"--journal", path, "--limit", "-1"}, ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, append([]string{"history"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, "Error ["+tt.code+"]")
		})
	}

	// Reading never creates the journal.
	assert.NoFileExists(t, missing)
}

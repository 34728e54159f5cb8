package journal_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/context-engine/internal/journal"
)

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *journal.Store {
	t.Helper()
	s, err := journal.New(journal.DefaultConfig(t.TempDir()))
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { s.Close() })
	return s
}

// ─── New / Initialization ───────────────────────────────────────────────────

func TestNew_CreatesDBFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "journal")
	s, err := journal.New(journal.DefaultConfig(dir))
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "journal.db"))
	assert.NoError(t, err, "journal.db not created")
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s1, err := journal.New(journal.DefaultConfig(dir))
	require.NoError(t, err)
	_, err = s1.AddLogEntry(journal.AddLogEntryParams{Project: "/p", TaskID: "1", Status: "started", Summary: "persisted", LoggedAt: time.Now()})
	require.NoError(t, err)
	s1.Close()

	s2, err := journal.New(journal.DefaultConfig(dir))
	require.NoError(t, err, "second New()")
	defer s2.Close()

	got, err := s2.SearchLog("/p", "persisted", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// ─── Attempts ───────────────────────────────────────────────────────────────

func TestRecordAttempt_AndRecent(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	id1, err := s.RecordAttempt(journal.AddAttemptParams{
		Project: "/proj", TaskID: "1.1", Summary: "first try",
		FailedGate: "verify", Gates: []string{"verify"}, Detail: "FAIL",
		StartedAt: base, FinishedAt: base.Add(time.Second),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id1, "expected a generated id")

	_, err = s.RecordAttempt(journal.AddAttemptParams{
		Project: "/proj", TaskID: "1.1", Summary: "second try", Success: true,
		Gates:     []string{"verify", "collect_changes", "critique", "commit", "record"},
		CommitRef: "abc123", DiffBytes: 2048,
		StartedAt: base.Add(time.Minute), FinishedAt: base.Add(2 * time.Minute),
	})
	require.NoError(t, err)
	_, _ = s.RecordAttempt(journal.AddAttemptParams{Project: "/other", TaskID: "1.1", Summary: "elsewhere"})

	got, err := s.RecentAttempts("/proj", "", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "second try", got[0].Summary)
	assert.Equal(t, journal.OutcomeCompleted, got[0].Outcome)
	assert.Equal(t, "verify", got[1].FailedGate)
	assert.Equal(t, journal.OutcomeFailed, got[1].Outcome)
	assert.Equal(t, "verify,collect_changes,critique,commit,record", got[0].Gates)
}

func TestRecentAttempts_FilterByTask(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"1.1", "1.2", "1.2"} {
		_, err := s.RecordAttempt(journal.AddAttemptParams{Project: "/p", TaskID: id, Summary: "x"})
		require.NoError(t, err)
	}

	got, err := s.RecentAttempts("/p", "1.2", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRecordAttempt_TruncatesDetail(t *testing.T) {
	cfg := journal.DefaultConfig(t.TempDir())
	cfg.MaxDetailLength = 10
	s, err := journal.New(cfg)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.RecordAttempt(journal.AddAttemptParams{Project: "/p", TaskID: "1", Summary: "x", Detail: strings.Repeat("a", 100)})
	require.NoError(t, err)

	got, err := s.RecentAttempts("/p", "", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, strings.Repeat("a", 10)+"...", got[0].Detail)
}

// ─── Log search ─────────────────────────────────────────────────────────────

func TestSearchLog_FullText(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	entries := []journal.AddLogEntryParams{
		{Project: "/p", TaskID: "2.1", Status: "started", Summary: "wire the config loader", LoggedAt: now},
		{Project: "/p", TaskID: "2.2", Status: "blocked", Summary: "waiting on auth token", LoggedAt: now},
		{Project: "/q", TaskID: "9.9", Status: "started", Summary: "config elsewhere", LoggedAt: now},
	}
	for _, e := range entries {
		_, err := s.AddLogEntry(e)
		require.NoError(t, err)
	}

	got, err := s.SearchLog("/p", "config", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2.1", got[0].TaskID)
}

func TestSearchLog_QuotesSpecialCharacters(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddLogEntry(journal.AddLogEntryParams{Project: "/p", TaskID: "3.1", Status: "complete", Summary: "fix AND-gate bug", LoggedAt: time.Now()})
	require.NoError(t, err)

	_, err = s.SearchLog("/p", `AND-gate "bug`, 10)
	assert.NoError(t, err, "special characters should not break FTS")
}

func TestSearchLog_EmptyQueryReturnsRecent(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		_, err := s.AddLogEntry(journal.AddLogEntryParams{Project: "/p", TaskID: "1", Status: "implementing", Summary: "step", LoggedAt: time.Now()})
		require.NoError(t, err)
	}

	got, err := s.SearchLog("/p", "   ", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Greater(t, got[0].ID, got[1].ID, "recent entries should be newest first")
}

// ─── Stats ──────────────────────────────────────────────────────────────────

func TestStats(t *testing.T) {
	s := newTestStore(t)
	_, _ = s.RecordAttempt(journal.AddAttemptParams{Project: "/p", TaskID: "1", Summary: "a", Success: true})
	_, _ = s.RecordAttempt(journal.AddAttemptParams{Project: "/p", TaskID: "1", Summary: "b", FailedGate: "critique"})
	_, _ = s.AddLogEntry(journal.AddLogEntryParams{Project: "/p", TaskID: "1", Status: "complete", Summary: "c", LoggedAt: time.Now()})

	st, err := s.Stats("/p")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Attempts)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, 1, st.LogEntries)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", journal.Truncate("hello", 10))
	assert.Equal(t, "hello...", journal.Truncate("hello world", 5))
	assert.Equal(t, "hello", journal.Truncate("hello", 0), "zero disables truncation")
}

package worklog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/context-engine/internal/tasklist"
)

func pinTime(t *testing.T, ts time.Time) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return ts }
	t.Cleanup(func() { timeNow = orig })
}

type captureObserver struct {
	entries []Entry
}

func (c *captureObserver) OnLogEntry(e Entry) { c.entries = append(c.entries, e) }

type recordingSink struct {
	msgs []string
}

func (r *recordingSink) Warn(msg string, _ ...any) { r.msgs = append(r.msgs, msg) }

func TestAppend_CreatesLogWithHeader(t *testing.T) {
	pinTime(t, time.Date(2026, 3, 14, 9, 5, 42, 0, time.Local))
	path := filepath.Join(t.TempDir(), "WORK_LOG.md")

	out := New(path, nil).Append("1.1", tasklist.StatusStarted, "kick off")
	require.True(t, out.OK(), out.Warning)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Work Log\n\n**[2026-03-14 09:05]** 🚀 `1.1` (started): kick off\n", string(data))
}

func TestAppend_AppendsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WORK_LOG.md")
	s := New(path, nil)

	pinTime(t, time.Date(2026, 1, 1, 10, 0, 0, 0, time.Local))
	s.Append("2.1", tasklist.StatusImplementing, "first")
	pinTime(t, time.Date(2026, 1, 1, 11, 30, 0, 0, time.Local))
	s.Append("2.1", tasklist.StatusComplete, "second")

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(got, Header), "header should appear once")

	first := strings.Index(got, "first")
	second := strings.Index(got, "second")
	require.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, second, "entries out of order")
	assert.Contains(t, got, "**[2026-01-01 11:30]** ✓ `2.1` (complete): second")
}

func TestAppend_ExistingLogKeepsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WORK_LOG.md")
	require.NoError(t, os.WriteFile(path, []byte("# My Log\nhand-written notes\n"), 0o644))

	New(path, nil).Append("3.3", tasklist.StatusBlocked, "waiting on API key")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(data)
	assert.True(t, strings.HasPrefix(got, "# My Log\nhand-written notes\n"), "existing content was modified:\n%s", got)
	assert.NotContains(t, got, Header, "header must not be added to an existing log")
	assert.Contains(t, got, "🚧 `3.3` (blocked): waiting on API key")
}

func TestAppend_NotifiesObserver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WORK_LOG.md")
	s := New(path, nil)
	obs := &captureObserver{}
	s.SetObserver(obs)

	s.Append("4.2", tasklist.StatusVerified, "tests green")

	require.Len(t, obs.entries, 1)
	assert.Equal(t, "4.2", obs.entries[0].TaskID)
	assert.Equal(t, tasklist.StatusVerified, obs.entries[0].Status)
}

func TestAppend_FailureIsWarning(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be makes the open fail.
	path := filepath.Join(dir, "WORK_LOG.md")
	require.NoError(t, os.Mkdir(path, 0o755))

	sink := &recordingSink{}
	s := New(path, sink)
	obs := &captureObserver{}
	s.SetObserver(obs)

	out := s.Append("1.1", tasklist.StatusComplete, "x")
	require.False(t, out.OK(), "expected warning outcome")
	assert.Len(t, sink.msgs, 1)
	assert.Empty(t, obs.entries, "observer must not be notified on failure")
}

func TestEmoji(t *testing.T) {
	tests := []struct {
		status tasklist.Status
		want   string
	}{
		{tasklist.StatusStarted, "🚀"},
		{tasklist.StatusImplementing, "🔨"},
		{tasklist.StatusVerified, "✅"},
		{tasklist.StatusBlocked, "🚧"},
		{tasklist.StatusComplete, "✓"},
		{tasklist.Status("paused"), "•"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, Emoji(tt.status))
		})
	}
}

func TestRead_MissingLog(t *testing.T) {
	got, err := New(filepath.Join(t.TempDir(), "none.md"), nil).Read()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestObservers_FanOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WORK_LOG.md")
	a, b := &captureObserver{}, &captureObserver{}
	s := New(path, nil)
	s.SetObserver(Observers{a, nil, b})

	out := s.Append("1.1", tasklist.StatusStarted, "go")
	require.True(t, out.OK(), out.Warning)
	assert.Len(t, a.entries, 1)
	assert.Len(t, b.entries, 1)
}

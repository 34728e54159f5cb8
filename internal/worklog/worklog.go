// Package worklog appends timestamped progress entries to the project's
// work log document.
package worklog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/HendryAvila/context-engine/internal/diag"
	"github.com/HendryAvila/context-engine/internal/tasklist"
)

// timeNow is a package-level var so tests can pin timestamps.
var timeNow = time.Now

// Header starts every newly created work log.
const Header = "# Work Log\n"

// TimestampLayout renders local time to the minute.
const TimestampLayout = "2006-01-02 15:04"

var emoji = map[tasklist.Status]string{
	tasklist.StatusStarted:      "🚀",
	tasklist.StatusImplementing: "🔨",
	tasklist.StatusVerified:     "✅",
	tasklist.StatusBlocked:      "🚧",
	tasklist.StatusComplete:     "✓",
}

// Emoji returns the glyph shown for status.
func Emoji(status tasklist.Status) string {
	if e, ok := emoji[status]; ok {
		return e
	}
	return "•"
}

// Entry is one appended line of the work log.
type Entry struct {
	Time    time.Time
	TaskID  string
	Status  tasklist.Status
	Summary string
}

// Format renders e exactly as it is written to the log.
func (e Entry) Format() string {
	return fmt.Sprintf("\n**[%s]** %s `%s` (%s): %s\n",
		e.Time.Format(TimestampLayout), Emoji(e.Status), e.TaskID, e.Status, e.Summary)
}

// Observer is notified after an entry has been written.
// It's optional; the store works the same without one.
type Observer interface {
	OnLogEntry(e Entry)
}

// Observers fans one entry out to several observers in order.
type Observers []Observer

// OnLogEntry implements Observer.
func (obs Observers) OnLogEntry(e Entry) {
	for _, o := range obs {
		if o != nil {
			o.OnLogEntry(e)
		}
	}
}

// Store appends to a single work-log file.
type Store struct {
	path     string
	sink     diag.Sink
	observer Observer
	mu       sync.Mutex
}

// New creates a Store for the work log at path. sink may be nil.
func New(path string, sink diag.Sink) *Store {
	return &Store{path: path, sink: diag.OrDiscard(sink)}
}

// SetObserver attaches an observer. Passing nil detaches it.
func (s *Store) SetObserver(o Observer) {
	s.observer = o
}

// Path returns the work log location.
func (s *Store) Path() string { return s.path }

// Append writes one entry stamped with the current local time. The log is
// created with its header if missing. Failures come back as a warning
// Outcome; they are never fatal to the caller.
func (s *Store) Append(taskID string, status tasklist.Status, summary string) diag.Outcome {
	entry := Entry{Time: timeNow(), TaskID: taskID, Status: status, Summary: summary}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.appendEntry(entry); err != nil {
		return diag.Warnf(s.sink, "work log %s: %v", s.path, err)
	}

	if s.observer != nil {
		s.observer.OnLogEntry(entry)
	}
	return diag.Outcome{Changed: true}
}

func (s *Store) appendEntry(entry Entry) error {
	_, statErr := os.Stat(s.path)
	isNew := os.IsNotExist(statErr)

	if isNew {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer func() { _ = f.Close() }()

	text := entry.Format()
	if isNew {
		text = Header + text
	}
	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("appending: %w", err)
	}
	return nil
}

// Read returns the whole log, or "" when it does not exist yet.
func (s *Store) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading work log: %w", err)
	}
	return string(data), nil
}

// Package tasklist keeps the status markers in the project's task list in
// step with logged progress.
//
// A marker is a bracket pair directly in front of a task id:
//
//	- [ ] 1.2 Parse config      unmarked
//	- [/] 1.2 Parse config      in progress
//	- [x] 1.2 Parse config      complete
//	- [B] 1.2 Parse config      blocked
//
// Only the bracket span is ever rewritten. Mentions of an id without an
// adjacent marker are left alone.
package tasklist

import (
	"fmt"
	"os"
	"regexp"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/HendryAvila/context-engine/internal/diag"
)

// Status is a task lifecycle state as reported by the agent.
type Status string

const (
	StatusStarted      Status = "started"
	StatusImplementing Status = "implementing"
	StatusVerified     Status = "verified"
	StatusBlocked      Status = "blocked"
	StatusComplete     Status = "complete"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusStarted,
	StatusImplementing,
	StatusVerified,
	StatusBlocked,
	StatusComplete,
}

// markers holds the canonical marker for each persisted status. Statuses
// missing here are logged but never written to the task list.
var markers = map[Status]string{
	StatusStarted:  "[/]",
	StatusComplete: "[x]",
	StatusBlocked:  "[B]",
}

// Marker returns the canonical marker for s and whether s is persisted.
func Marker(s Status) (string, bool) {
	m, ok := markers[s]
	return m, ok
}

const markerPattern = `\[[ \t]*[xX/B ]?[ \t]*\]`

// Store reads and rewrites one task-list document.
type Store struct {
	path string
	sink diag.Sink
	mu   sync.Mutex
}

// New creates a Store for the task list at path. Warnings go to sink,
// which may be nil.
func New(path string, sink diag.Sink) *Store {
	return &Store{path: path, sink: diag.OrDiscard(sink)}
}

// Path returns the task list location.
func (s *Store) Path() string { return s.path }

// SetStatus rewrites every marker adjacent to taskID to the canonical marker
// for status. It never fails: a missing file or an unpersisted status is a
// no-op, and I/O errors come back as a warning Outcome.
func (s *Store) SetStatus(taskID string, status Status) diag.Outcome {
	marker, ok := markers[status]
	if !ok || taskID == "" {
		return diag.Outcome{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return diag.Outcome{}
	}
	if err != nil {
		return diag.Warnf(s.sink, "task list %s: %v", s.path, err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return diag.Warnf(s.sink, "reading task list %s: %v", s.path, err)
	}

	updated := ReplaceMarker(string(data), taskID, marker)
	if updated == string(data) {
		return diag.Outcome{}
	}

	if err := os.WriteFile(s.path, []byte(updated), info.Mode().Perm()); err != nil {
		return diag.Warnf(s.sink, "writing task list %s: %v", s.path, err)
	}
	return diag.Outcome{Changed: true}
}

// ReplaceMarker returns content with every marker that directly precedes
// taskID replaced by marker. The whitespace between marker and id is kept.
// An occurrence only counts when the id ends there: "1.2" does not match
// inside "1.2.3" or "1.20".
func ReplaceMarker(content, taskID, marker string) string {
	re := regexp.MustCompile(`(` + markerPattern + `)[ \t]*` + regexp.QuoteMeta(taskID))

	var out []byte
	last := 0
	for _, loc := range re.FindAllStringSubmatchIndex(content, -1) {
		end := loc[1]
		if !atIDBoundary(content, end) {
			continue
		}
		markStart, markEnd := loc[2], loc[3]
		out = append(out, content[last:markStart]...)
		out = append(out, marker...)
		last = markEnd
	}
	if out == nil {
		return content
	}
	out = append(out, content[last:]...)
	return string(out)
}

// atIDBoundary reports whether the task id that ends at i is complete.
// The id continues if the next rune is a word character, or a '.' or '-'
// followed by one.
func atIDBoundary(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, size := utf8.DecodeRuneInString(s[i:])
	if isWord(r) {
		return false
	}
	if r == '.' || r == '-' {
		if i+size < len(s) {
			next, _ := utf8.DecodeRuneInString(s[i+size:])
			if isWord(next) {
				return false
			}
		}
	}
	return true
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ─── Summary ─────────────────────────────────────────────────────────────────

// Summary counts task markers by state.
type Summary struct {
	Total      int    `json:"total"`
	Open       int    `json:"open"`
	InProgress int    `json:"in_progress"`
	Blocked    int    `json:"blocked"`
	Complete   int    `json:"complete"`
	Next       string `json:"next,omitempty"`
}

var summaryLine = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+]|\d+[.)])?[ \t]*\[[ \t]*([xX/B ]?)[ \t]*\][ \t]*(\S.*)$`)

// Summarize counts the markers in content. Next is the first in-progress
// task, or failing that the first open one.
func Summarize(content string) Summary {
	var sum Summary
	firstOpen := ""
	for _, m := range summaryLine.FindAllStringSubmatch(content, -1) {
		sum.Total++
		switch m[1] {
		case "x", "X":
			sum.Complete++
		case "/":
			sum.InProgress++
			if sum.Next == "" {
				sum.Next = m[2]
			}
		case "B":
			sum.Blocked++
		default:
			sum.Open++
			if firstOpen == "" {
				firstOpen = m[2]
			}
		}
	}
	if sum.Next == "" {
		sum.Next = firstOpen
	}
	return sum
}

// Summarize reads the task list and counts its markers. A missing file
// yields an empty Summary.
func (s *Store) Summarize() (Summary, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Summary{}, nil
	}
	if err != nil {
		return Summary{}, fmt.Errorf("reading task list: %w", err)
	}
	return Summarize(string(data)), nil
}

// Read returns the raw task list, or "" if it does not exist.
func (s *Store) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading task list: %w", err)
	}
	return string(data), nil
}

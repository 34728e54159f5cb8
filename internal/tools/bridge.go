package tools

import (
	"strings"
	"time"

	"github.com/HendryAvila/context-engine/internal/diag"
	"github.com/HendryAvila/context-engine/internal/gatekeeper"
	"github.com/HendryAvila/context-engine/internal/journal"
	"github.com/HendryAvila/context-engine/internal/worklog"
)

// JournalBridge mirrors completion attempts and work-log entries into the
// journal so they survive across sessions and can be searched.
//
// It is best-effort: journal failures are reported to the sink and never
// reach the agent, because the markdown documents stay the source of truth.
type JournalBridge struct {
	store   *journal.Store
	project string
	sink    diag.Sink
}

// NewJournalBridge creates a bridge for project. Returns nil if store is
// nil, so callers can assign the result straight to an observer slot.
func NewJournalBridge(store *journal.Store, project string, sink diag.Sink) *JournalBridge {
	if store == nil {
		return nil
	}
	return &JournalBridge{store: store, project: project, sink: diag.OrDiscard(sink)}
}

// OnAttempt records one gatekeeper run.
func (b *JournalBridge) OnAttempt(res *gatekeeper.Result) {
	if b == nil || res == nil {
		return
	}
	gates := make([]string, len(res.Gates))
	for i, g := range res.Gates {
		gates[i] = string(g)
	}
	_, err := b.store.RecordAttempt(journal.AddAttemptParams{
		Project:    b.project,
		TaskID:     res.TaskID,
		Summary:    res.Summary,
		Success:    res.Success,
		FailedGate: string(res.FailedGate),
		Gates:      gates,
		Detail:     res.Detail(),
		CommitRef:  commitRef(res.CommitOutput),
		DiffBytes:  res.DiffBytes,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	})
	if err != nil {
		b.sink.Warn("journal: record attempt", "task", res.TaskID, "err", err)
	}
}

// OnLogEntry mirrors one work-log entry.
func (b *JournalBridge) OnLogEntry(e worklog.Entry) {
	if b == nil {
		return
	}
	loggedAt := e.Time
	if loggedAt.IsZero() {
		loggedAt = time.Now()
	}
	_, err := b.store.AddLogEntry(journal.AddLogEntryParams{
		Project:  b.project,
		TaskID:   e.TaskID,
		Status:   string(e.Status),
		Summary:  e.Summary,
		LoggedAt: loggedAt,
	})
	if err != nil {
		b.sink.Warn("journal: mirror log entry", "task", e.TaskID, "err", err)
	}
}

// commitRef extracts the short hash, which CommitAll puts on the last line.
func commitRef(commitOutput string) string {
	out := strings.TrimSpace(commitOutput)
	if out == "" {
		return ""
	}
	if i := strings.LastIndexByte(out, '\n'); i >= 0 {
		out = out[i+1:]
	}
	out = strings.TrimSpace(out)
	if strings.ContainsAny(out, " \t") {
		return ""
	}
	return out
}

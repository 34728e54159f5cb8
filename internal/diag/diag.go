// Package diag carries best-effort outcomes and the warning sink that
// components report them to.
package diag

import "fmt"

// Sink receives warnings from best-effort operations. *slog.Logger
// satisfies it.
type Sink interface {
	Warn(msg string, args ...any)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Warn(string, ...any) {}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// Outcome is the result of an operation that never fails outright.
// A zero Outcome means success; Warning describes what was skipped.
type Outcome struct {
	Changed bool
	Warning string
}

// OK reports whether the operation finished without a warning.
func (o Outcome) OK() bool { return o.Warning == "" }

// Warnf builds a warning Outcome and reports it to sink.
func Warnf(sink Sink, format string, args ...any) Outcome {
	msg := fmt.Sprintf(format, args...)
	OrDiscard(sink).Warn(msg)
	return Outcome{Warning: msg}
}

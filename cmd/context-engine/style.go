package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/HendryAvila/context-engine/internal/gatekeeper"
	"github.com/HendryAvila/context-engine/internal/journal"
	"github.com/HendryAvila/context-engine/internal/tasklist"
)

var (
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// renderResult formats a gatekeeper result for the terminal.
func renderResult(res *gatekeeper.Result) string {
	var sb strings.Builder

	for _, g := range gatekeeper.Gates {
		sb.WriteString(gateLine(res, g))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if res.Success {
		fmt.Fprintf(&sb, "%s task %s committed (%s reviewed, %s)\n",
			okStyle.Render("✓"), res.TaskID, humanize.Bytes(uint64(res.DiffBytes)), res.Duration().Round(time.Millisecond))
		if ref := lastLine(res.CommitOutput); ref != "" {
			fmt.Fprintf(&sb, "  %s\n", dimStyle.Render(ref))
		}
	} else {
		fmt.Fprintf(&sb, "%s task %s stopped at %s\n", failStyle.Render("✗"), res.TaskID, res.FailedGate)
		if detail := strings.TrimSpace(res.Detail()); detail != "" {
			sb.WriteString(boxStyle.Render(detail))
			sb.WriteString("\n")
		}
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(&sb, "%s %s\n", warnStyle.Render("!"), w)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func gateLine(res *gatekeeper.Result, g gatekeeper.Gate) string {
	entered := false
	for _, e := range res.Gates {
		if e == g {
			entered = true
			break
		}
	}
	switch {
	case !entered:
		return dimStyle.Render("  · " + string(g))
	case res.FailedGate == g:
		return failStyle.Render("  ✗ " + string(g))
	default:
		return okStyle.Render("  ✓ ") + string(g)
	}
}

// renderStatus formats the task summary and, when available, journal stats.
func renderStatus(tasksPath string, sum tasklist.Summary, stats *journal.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", titleStyle.Render(tasksPath))

	if sum.Total == 0 {
		sb.WriteString(dimStyle.Render("No tasks with status markers found."))
		sb.WriteString("\n")
	} else {
		fmt.Fprintf(&sb, "  %s %d/%d complete\n", okStyle.Render("[x]"), sum.Complete, sum.Total)
		fmt.Fprintf(&sb, "  %s %d in progress\n", warnStyle.Render("[/]"), sum.InProgress)
		fmt.Fprintf(&sb, "  %s %d blocked\n", failStyle.Render("[B]"), sum.Blocked)
		fmt.Fprintf(&sb, "  [ ] %d open\n", sum.Open)
		if sum.Next != "" {
			fmt.Fprintf(&sb, "\nNext: %s\n", sum.Next)
		}
	}

	if stats != nil {
		fmt.Fprintf(&sb, "\n%s %d attempts, %d completed, %d failed, %d log entries\n",
			dimStyle.Render("journal:"), stats.Attempts, stats.Completed, stats.Failed, stats.LogEntries)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

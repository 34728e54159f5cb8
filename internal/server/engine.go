package server

import (
	"log/slog"

	"github.com/HendryAvila/context-engine/internal/config"
	"github.com/HendryAvila/context-engine/internal/docsync"
	"github.com/HendryAvila/context-engine/internal/gatekeeper"
	"github.com/HendryAvila/context-engine/internal/journal"
	"github.com/HendryAvila/context-engine/internal/metrics"
	"github.com/HendryAvila/context-engine/internal/runner"
	"github.com/HendryAvila/context-engine/internal/tasklist"
	"github.com/HendryAvila/context-engine/internal/tools"
	"github.com/HendryAvila/context-engine/internal/vcs"
	"github.com/HendryAvila/context-engine/internal/worklog"
)

// Engine holds the wired domain components for one project. Both the MCP
// server and the CLI's complete command are built on it.
type Engine struct {
	Config     *config.ProjectConfig
	Runner     *runner.Runner
	Tasks      *tasklist.Store
	Log        *worklog.Store
	Gatekeeper *gatekeeper.Gatekeeper
	Docs       *docsync.Advisor

	// Journal is nil when disabled or when it failed to open.
	Journal *journal.Store

	logger *slog.Logger
}

// NewEngine wires every component for cfg. m may be nil.
//
// The journal is an independent subsystem: if it fails to open, a warning
// is logged and everything else keeps working without it.
func NewEngine(cfg *config.ProjectConfig, logger *slog.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	run := runner.New(cfg)
	run.SetRecorder(m)

	tasks := tasklist.New(cfg.DocFile(config.RoleTasks), logger)
	log := worklog.New(cfg.DocFile(config.RoleLog), logger)

	gk := gatekeeper.New(gatekeeper.Deps{
		Config: cfg,
		Shell:  run,
		Model:  run,
		VCS:    vcs.New(cfg.Root, cfg.Review.Exclude, cfg.ShellTimeout()),
		Tasks:  tasks,
		Log:    log,
		Sink:   logger,
	})
	gk.SetRecorder(m)

	e := &Engine{
		Config:     cfg,
		Runner:     run,
		Tasks:      tasks,
		Log:        log,
		Gatekeeper: gk,
		Docs:       docsync.New(cfg, run, log, logger),
		logger:     logger,
	}

	logObservers := worklog.Observers{logMetrics{m}}
	if cfg.Journal.Enabled {
		store, err := journal.New(journal.DefaultConfig(cfg.Journal.DataDir))
		if err != nil {
			logger.Warn("journal disabled", "err", err)
		} else {
			e.Journal = store
			bridge := tools.NewJournalBridge(store, cfg.Root, logger)
			gk.SetObserver(bridge)
			logObservers = append(logObservers, bridge)
		}
	}
	log.SetObserver(logObservers)

	return e
}

// Close releases the journal database. Safe to call more than once.
func (e *Engine) Close() {
	if e.Journal == nil {
		return
	}
	if err := e.Journal.Close(); err != nil {
		e.logger.Warn("journal close", "err", err)
	}
	e.Journal = nil
}

// logMetrics counts work-log entries by status.
type logMetrics struct {
	m *metrics.Metrics
}

func (l logMetrics) OnLogEntry(e worklog.Entry) {
	l.m.ObserveLogEntry(string(e.Status))
}

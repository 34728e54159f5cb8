package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/context-engine/internal/config"
	"github.com/HendryAvila/context-engine/internal/journal"
	ceserver "github.com/HendryAvila/context-engine/internal/server"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show task-list progress and completion stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadProject(cmd)
			if err != nil {
				return err
			}

			engine := ceserver.NewEngine(cfg, logger, nil)
			defer engine.Close()

			sum, err := engine.Tasks.Summarize()
			if err != nil {
				return err
			}

			var stats *journal.Stats
			if engine.Journal != nil {
				if stats, err = engine.Journal.Stats(cfg.Root); err != nil {
					logger.Warn("journal stats", "err", err)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(cfg.GetDocPath(config.RoleTasks), sum, stats))
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/context-engine/internal/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write " + config.FileName + " with the current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			force, _ := cmd.Flags().GetBool("force")
			cfg, err := loadProject(cmd)
			if err != nil {
				return err
			}
			path, err := config.WriteSample(cfg, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", okStyle.Render("✓"), path)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	return cmd
}

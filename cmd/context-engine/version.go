package main

import (
	"fmt"

	"github.com/spf13/cobra"

	ceserver "github.com/HendryAvila/context-engine/internal/server"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "context-engine v%s\n", ceserver.Version)
		},
	}
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"geotimeline/internal/logging"
	"geotimeline/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var runID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log lines, optionally for one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			result, err := logs.Tail(path, logs.TailOptions{Limit: lines, RunID: runID})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range result {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines logged by this run ID")
	return cmd
}

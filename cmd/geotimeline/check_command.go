package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"geotimeline/internal/deps"
	"geotimeline/internal/preflight"
)

var errPreflightFailed = errors.New("preflight checks failed")

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [input]",
		Short: "Verify exiftool and directory access",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			input := ""
			if len(args) == 1 {
				input = args[0]
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			results := preflight.RunAll(cfg, input)

			lines := renderSectionHeader("Preflight", colorize)
			lines = append(lines, preflightLines(results, colorize)...)
			if version, verr := deps.ExiftoolVersion(cmd.Context(), cfg.ExiftoolBinary()); verr == nil {
				lines = append(lines, renderStatusLine("ExifTool version", statusInfo, version, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%w: %d of %d", errPreflightFailed, len(failed), len(results))
			}
			return nil
		},
	}
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		if r.Passed {
			message := "Ready"
			if r.Detail != "" {
				message = r.Detail
			}
			lines = append(lines, renderStatusLine(r.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(r.Detail)
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(r.Name, statusError, detail, colorize))
	}
	return lines
}

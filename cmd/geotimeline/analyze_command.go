package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"geotimeline/internal/analysis"
	"geotimeline/internal/config"
	"geotimeline/internal/evidence"
	"geotimeline/internal/export"
	"geotimeline/internal/extract"
	"geotimeline/internal/logging"
	"geotimeline/internal/policy"
	"geotimeline/internal/preflight"
	"geotimeline/internal/runlock"
)

type analyzeOptions struct {
	court           bool
	defaultTZ       string
	priorInference  bool
	requireComplete bool
	fromJSON        string
	outputDir       string
	sha256          bool
	jsonOutput      bool
}

type analyzeOutput struct {
	RunID     string           `json:"run_id"`
	Mode      string           `json:"mode"`
	Input     string           `json:"input"`
	OutputDir string           `json:"output_dir"`
	Summary   analysis.Summary `json:"summary"`
	Files     []string         `json:"files"`
}

func (o analyzeOutput) encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Build a geo-timeline from media files",
		Long: "Extract timestamp and GPS metadata from a file or directory tree, order the\n" +
			"records on a timeline, and write movement and gap reports. Use --from-json to\n" +
			"analyze previously captured `exiftool -n -json` output instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *base
			applyAnalyzeFlags(cmd, &cfg, opts)

			input := opts.fromJSON
			if input == "" {
				if len(args) != 1 {
					return errors.New("analyze: a path argument or --from-json is required")
				}
				input = args[0]
			}
			return runAnalyze(cmd, &cfg, input, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.court, "court", false, "Court mode: never assume a timezone; exclude uncertain records")
	flags.StringVar(&opts.defaultTZ, "default-tz", "", "Offset assumed for naive timestamps outside court mode (e.g. +02:00)")
	flags.BoolVar(&opts.priorInference, "prior-inference", false, "Borrow the offset of the nearest earlier record outside court mode")
	flags.BoolVar(&opts.requireComplete, "require-complete", false, "Fail a court mode run when any record lacks a timezone")
	flags.StringVar(&opts.fromJSON, "from-json", "", "Read exiftool JSON output instead of running exiftool")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "Output directory (overrides paths.output_dir)")
	flags.BoolVar(&opts.sha256, "sha256", false, "Hash every input file into evidence_manifest.csv")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

func applyAnalyzeFlags(cmd *cobra.Command, cfg *config.Config, opts analyzeOptions) {
	flags := cmd.Flags()
	if flags.Changed("court") {
		cfg.Analysis.CourtMode = opts.court
	}
	if flags.Changed("default-tz") {
		cfg.Analysis.DefaultTimezoneOffset = strings.TrimSpace(opts.defaultTZ)
	}
	if flags.Changed("prior-inference") {
		cfg.Analysis.PriorRecordInference = opts.priorInference
	}
	if flags.Changed("require-complete") {
		cfg.Analysis.RequireComplete = opts.requireComplete
	}
	if dir := strings.TrimSpace(opts.outputDir); dir != "" {
		cfg.Paths.OutputDir = dir
	}
	if opts.sha256 {
		cfg.Export.Manifest = true
	}
}

func runAnalyze(cmd *cobra.Command, cfg *config.Config, input string, opts analyzeOptions) error {
	p, err := policy.FromConfig(cfg)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock, err := runlock.Acquire(cfg.Paths.OutputDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	run := export.Run{ID: uuid.NewString(), StartedAt: time.Now().UTC(), Input: input}
	runCtx := logging.WithRunID(cmd.Context(), run.ID)
	logging.WithContext(runCtx, logger).Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("input", input),
		logging.String("output_dir", cfg.Paths.OutputDir),
	)

	bags, err := loadBags(runCtx, cfg, input, opts.fromJSON != "", logger)
	if err != nil {
		return err
	}

	res, err := analysis.Run(runCtx, bags, p, logger)
	if err != nil {
		return err
	}

	exporter := export.New(cfg.Paths.OutputDir, cfg.Export, p.Concurrency, logging.WithContext(runCtx, logger))
	report, err := exporter.Export(runCtx, run, res)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return analyzeOutput{
			RunID:     run.ID,
			Mode:      res.Mode(),
			Input:     input,
			OutputDir: cfg.Paths.OutputDir,
			Summary:   res.Summary,
			Files:     report.Files,
		}.encode(cmd.OutOrStdout())
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderSummaryTable(run.ID, res))
	for _, line := range summaryStatusLines(res, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "Reports written to %s (%d files)\n", cfg.Paths.OutputDir, len(report.Files))
	return nil
}

func loadBags(ctx context.Context, cfg *config.Config, input string, fromJSON bool, logger *slog.Logger) ([]evidence.RawBag, error) {
	if fromJSON {
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("read exiftool json: %w", err)
		}
		entries, err := extract.DecodeEntries(data)
		if err != nil {
			return nil, fmt.Errorf("decode exiftool json: %w", err)
		}
		return extract.BagsFromEntries(entries)
	}

	if failed := preflight.Failed(preflight.RunAll(cfg, input)); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, r := range failed {
			names = append(names, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
		return nil, fmt.Errorf("%w: %s", errPreflightFailed, strings.Join(names, "; "))
	}

	paths, err := extract.Discover(input)
	if err != nil {
		return nil, fmt.Errorf("discover media: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no supported media files under %s", input)
	}
	return extract.New(cfg, logging.WithContext(ctx, logger)).Extract(ctx, paths), nil
}

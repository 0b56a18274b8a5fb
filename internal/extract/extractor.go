package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"geotimeline/internal/config"
	"geotimeline/internal/evidence"
	"geotimeline/internal/logging"
)

// InspectFunc runs the metadata tool for one batch.
type InspectFunc func(ctx context.Context, binary string, paths []string) ([]Entry, error)

// Extractor splits paths into batches and runs them on a bounded number of
// concurrent exiftool processes.
type Extractor struct {
	binary      string
	batchSize   int
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
	inspect     InspectFunc
}

// New builds an extractor from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Extractor {
	e := &Extractor{
		binary:      cfg.ExiftoolBinary(),
		batchSize:   cfg.Extractor.BatchSize,
		concurrency: cfg.Extractor.Concurrency,
		timeout:     time.Duration(cfg.Extractor.TimeoutSeconds) * time.Second,
		logger:      logging.NewComponentLogger(logger, "extract"),
		inspect:     Inspect,
	}
	if e.batchSize <= 0 {
		e.batchSize = config.DefaultExtractorBatchSize
	}
	if e.concurrency <= 0 {
		e.concurrency = runtime.NumCPU()
	}
	return e
}

// Extract returns one bag per path in input order.
func (e *Extractor) Extract(ctx context.Context, paths []string) []evidence.RawBag {
	bags := make([]evidence.RawBag, len(paths))
	started := time.Now()

	var (
		mu       sync.Mutex
		failures int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for start := 0; start < len(paths); start += e.batchSize {
		end := min(start+e.batchSize, len(paths))
		g.Go(func() error {
			failed := e.runBatch(gctx, paths[start:end], bags[start:end])
			if failed > 0 {
				mu.Lock()
				failures += failed
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	e.logger.Info("metadata extraction complete",
		logging.Int("files", len(paths)),
		logging.Int("failed", failures),
		logging.Int("batch_size", e.batchSize),
		logging.Int("workers", e.concurrency),
		logging.Duration("elapsed", time.Since(started)),
	)
	return bags
}

// runBatch fills out (aligned with paths) and returns the number of files
// that could not be read.
func (e *Extractor) runBatch(ctx context.Context, paths []string, out []evidence.RawBag) int {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	entries, err := e.inspect(ctx, e.binary, paths)
	byPath := make(map[string]Entry, len(entries))
	for _, entry := range entries {
		byPath[entry.SourceFile()] = entry
	}

	failed := 0
	for i, path := range paths {
		entry, ok := byPath[safeArg(path)]
		if !ok {
			entry, ok = byPath[path]
		}
		if !ok {
			reason := "no metadata returned"
			if err != nil {
				reason = err.Error()
			}
			out[i] = evidence.RawBag{SourcePath: path, ExtractError: reason}
			failed++
			continue
		}
		bag := BagFromEntry(entry)
		bag.SourcePath = path
		if bag.ModTime.IsZero() {
			if info, statErr := os.Stat(path); statErr == nil {
				bag.ModTime = info.ModTime().UTC()
			}
		}
		if bag.ExtractError != "" {
			failed++
		}
		out[i] = bag
	}
	if err != nil {
		logging.WarnWithContext(e.logger, "exiftool batch reported errors", "extract_batch_failed",
			logging.Int("files", len(paths)),
			logging.Int("failed", failed),
			logging.Error(err),
			logging.String(logging.FieldImpact, "affected files are reported without metadata"),
		)
	}
	return failed
}

// BagsFromEntries converts saved exiftool output, preserving entry order.
func BagsFromEntries(entries []Entry) ([]evidence.RawBag, error) {
	bags := make([]evidence.RawBag, 0, len(entries))
	for i, entry := range entries {
		if entry.SourceFile() == "" {
			return nil, fmt.Errorf("entry %d: missing SourceFile", i)
		}
		bags = append(bags, BagFromEntry(entry))
	}
	return bags, nil
}

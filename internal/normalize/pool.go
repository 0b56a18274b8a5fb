package normalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"geotimeline/internal/evidence"
	"geotimeline/internal/logging"
	"geotimeline/internal/policy"
)

// Func converts one bag into a record.
type Func func(index int, bag evidence.RawBag) evidence.MediaRecord

// Pool normalizes bags concurrently with a fixed number of workers. Results
// are returned in input order regardless of completion order.
type Pool struct {
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
	normalize   Func
}

// NewPool builds a pool sized from the policy.
func NewPool(p policy.Policy, logger *slog.Logger) *Pool {
	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	timeout := p.NormalizeTimeout
	if timeout <= 0 {
		timeout = policy.DefaultNormalizeTimeout
	}
	return &Pool{
		concurrency: concurrency,
		timeout:     timeout,
		logger:      logging.NewComponentLogger(logger, stageName),
		normalize:   Record,
	}
}

type indexedRecord struct {
	index  int
	record evidence.MediaRecord
}

// Run normalizes every bag. It returns once all records are done or the pool
// timeout expires; records that did not finish in time are returned
// UNRESOLVED with a worker failure note. A hung worker never blocks Run.
func (p *Pool) Run(ctx context.Context, bags []evidence.RawBag) []evidence.MediaRecord {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out := make(chan indexedRecord, len(bags))
	go func() {
		var g errgroup.Group
		g.SetLimit(p.concurrency)
		for i := range bags {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				out <- indexedRecord{index: i, record: p.safeRecord(i, bags[i])}
				return nil
			})
		}
		_ = g.Wait()
		close(out)
	}()

	results := make([]evidence.MediaRecord, len(bags))
	done := make([]bool, len(bags))
	collect := func(r indexedRecord) {
		results[r.index] = r.record
		done[r.index] = true
	}

collectLoop:
	for {
		select {
		case r, ok := <-out:
			if !ok {
				break collectLoop
			}
			collect(r)
		case <-ctx.Done():
			for {
				select {
				case r, ok := <-out:
					if !ok {
						break collectLoop
					}
					collect(r)
				default:
					break collectLoop
				}
			}
		}
	}

	incomplete := 0
	for i := range bags {
		if done[i] {
			continue
		}
		incomplete++
		reason := "normalization timed out"
		if errors.Is(ctx.Err(), context.Canceled) {
			reason = "normalization cancelled"
		}
		err := evidence.Wrap(evidence.ErrWorkerFailure, stageName, NormalizePath(bags[i].SourcePath), reason, ctx.Err())
		results[i] = failedRecord(i, bags[i], err)
		logging.WarnWithContext(p.logger, "record not normalized", "normalize_incomplete",
			logging.String(logging.FieldSourcePath, results[i].SourcePath),
			logging.Int(logging.FieldRecordIndex, i),
			logging.String("reason", reason),
			logging.String(logging.FieldImpact, "record reported unresolved"),
		)
	}

	p.logger.Info("normalization complete",
		logging.Int("records", len(bags)),
		logging.Int("incomplete", incomplete),
		logging.Int("workers", p.concurrency),
		logging.Duration("elapsed", time.Since(started)),
	)
	return results
}

func (p *Pool) safeRecord(index int, bag evidence.RawBag) (rec evidence.MediaRecord) {
	defer func() {
		if r := recover(); r != nil {
			err := evidence.Wrap(evidence.ErrWorkerFailure, stageName, NormalizePath(bag.SourcePath), fmt.Sprintf("panic: %v", r), nil)
			rec = failedRecord(index, bag, err)
			logging.WarnWithContext(p.logger, "normalization worker failed", "normalize_panic",
				logging.String(logging.FieldSourcePath, rec.SourcePath),
				logging.Int(logging.FieldRecordIndex, index),
				logging.Error(err),
				logging.String(logging.FieldImpact, "record reported unresolved"),
			)
		}
	}()
	return p.normalize(index, bag)
}

func failedRecord(index int, bag evidence.RawBag, err error) evidence.MediaRecord {
	rec := evidence.MediaRecord{
		Index:      index,
		SourcePath: NormalizePath(bag.SourcePath),
		DiskPath:   bag.SourcePath,
		Basis:      -1,
		Resolved:   evidence.Unresolved(err.Error()),
		Info:       bag.Info,
	}
	if !bag.ModTime.IsZero() {
		rec.ModTime = bag.ModTime.UTC()
	}
	rec.AddNote(evidence.AuditWorkerFailure, err.Error())
	return rec
}

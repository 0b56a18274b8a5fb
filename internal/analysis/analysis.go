// Package analysis runs the full pipeline for one batch of extractor output:
// parallel normalization, then single-threaded timezone resolution, ordering,
// and segmentation. The returned Result is immutable by convention and holds
// no wall-clock data, so rerunning the same batch yields an identical value.
package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"geotimeline/internal/evidence"
	"geotimeline/internal/logging"
	"geotimeline/internal/normalize"
	"geotimeline/internal/policy"
	"geotimeline/internal/segment"
	"geotimeline/internal/timeline"
	"geotimeline/internal/timezone"
)

// Summary holds headline counts for reports.
type Summary struct {
	Files      int `json:"files"`
	Events     int `json:"events"`
	Known      int `json:"known"`
	Assumed    int `json:"assumed"`
	Unresolved int `json:"unresolved"`
	Segments   int `json:"segments"`
	Gaps       int `json:"gaps"`
	Excluded   int `json:"excluded"`
	Review     int `json:"review"`
}

// Result is the complete output of one run.
type Result struct {
	Policy   policy.Policy
	Records  []evidence.MediaRecord
	Timeline timeline.Timeline
	Overlays segment.Analysis
	Audit    []evidence.RecordAudit
	Summary  Summary
}

// Mode names the policy mode the result was produced under.
func (r *Result) Mode() string { return r.Policy.Mode() }

// Run validates the policy and processes every bag. Configuration errors
// abort before any record is touched; record-level failures only narrow the
// ordered dataset and are always visible in the audit trail.
func Run(ctx context.Context, bags []evidence.RawBag, p policy.Policy, logger *slog.Logger) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	root := logger
	logger = logging.NewComponentLogger(logging.WithContext(ctx, root), "analysis")
	logger.Info("analysis started",
		logging.String(logging.FieldMode, p.Mode()),
		logging.Int("files", len(bags)),
		logging.String("default_offset", p.DefaultOffset.String()),
		logging.Bool("prior_record_inference", p.AllowsPriorInference()),
	)

	stageLogger := func(stage string) *slog.Logger {
		return logging.WithContext(logging.WithStage(ctx, stage), root)
	}

	records := normalize.NewPool(p, stageLogger("normalize")).Run(ctx, bags)

	records, tz, err := timezone.Resolve(records, p, stageLogger("resolve"))
	if err != nil {
		return nil, err
	}

	tl := timeline.Build(records, timeline.OptionsFromPolicy(p))
	overlays := segment.Analyze(tl.Events, p)

	annotate(records, tl, overlays)
	for i := range tl.Events {
		tl.Events[i].Record = records[tl.Events[i].Record.Index].Clone()
	}
	for i := range tl.Unresolved {
		tl.Unresolved[i] = records[tl.Unresolved[i].Index].Clone()
	}

	audit := make([]evidence.RecordAudit, len(records))
	for i, rec := range records {
		audit[i] = rec.Audit()
	}

	res := &Result{
		Policy:   p,
		Records:  records,
		Timeline: tl,
		Overlays: overlays,
		Audit:    audit,
		Summary: Summary{
			Files:      len(bags),
			Events:     len(tl.Events),
			Known:      tz.Known,
			Assumed:    tz.Assumed,
			Unresolved: tz.Unresolved,
			Segments:   len(overlays.Segments),
			Gaps:       len(overlays.Gaps),
			Excluded:   len(overlays.Excluded),
			Review:     len(tl.Review) + countJumps(overlays),
		},
	}
	logger.Info("analysis complete",
		logging.Int("events", res.Summary.Events),
		logging.Int("segments", res.Summary.Segments),
		logging.Int("gaps", res.Summary.Gaps),
		logging.Int("unresolved", res.Summary.Unresolved),
		logging.Int("excluded", res.Summary.Excluded),
		logging.Int("review", res.Summary.Review),
	)
	return res, nil
}

// annotate copies timeline review markers, jump flags, and strict-analysis
// exclusions into the audit notes of the records they concern.
func annotate(records []evidence.MediaRecord, tl timeline.Timeline, overlays segment.Analysis) {
	recordAt := func(pos int) *evidence.MediaRecord {
		return &records[tl.Events[pos].Record.Index]
	}
	for _, marker := range tl.Review {
		for _, pos := range marker.Positions {
			recordAt(pos).AddNote(evidence.AuditReview, fmt.Sprintf("%s: %s", marker.Kind, marker.Message))
		}
	}
	for _, pair := range overlays.Pairs {
		if pair.Movement != segment.MovementJump {
			continue
		}
		msg := fmt.Sprintf("implausible travel from %s", tl.Events[pair.From].Record.SourcePath)
		if pair.SpeedKMH != nil {
			msg = fmt.Sprintf("%s at %.0f km/h", msg, *pair.SpeedKMH)
		}
		recordAt(pair.To).AddNote(evidence.AuditReview, msg)
	}
	for _, ex := range overlays.Excluded {
		recordAt(ex.Position).AddNote(evidence.AuditExclusion, "excluded from strict analysis: "+ex.Reason)
	}
}

func countJumps(overlays segment.Analysis) int {
	n := 0
	for _, pair := range overlays.Pairs {
		if pair.Movement == segment.MovementJump {
			n++
		}
	}
	return n
}

// Package policy holds the immutable mode policy consulted by every analysis
// stage. A Policy is built once per run, validated before any record is
// touched, and passed by value into each stage's entry point.
package policy

import (
	"fmt"
	"runtime"
	"time"

	"geotimeline/internal/config"
	"geotimeline/internal/evidence"
)

// DefaultNormalizeTimeout bounds the normalization worker pool.
const DefaultNormalizeTimeout = 10 * time.Minute

// Offset is an optional fixed UTC offset.
type Offset struct {
	Seconds    int
	Configured bool
}

// String renders the offset as an audit label or "none".
func (o Offset) String() string {
	if !o.Configured {
		return "none"
	}
	return evidence.OffsetLabel(o.Seconds)
}

// Policy is the run-wide analysis configuration.
type Policy struct {
	CourtMode            bool
	DefaultOffset        Offset
	PriorRecordInference bool
	RequireComplete      bool

	StopDistanceMeters float64
	JumpSpeedKMH       float64

	GapDuration         time.Duration
	MajorGapDuration    time.Duration
	CriticalGapDuration time.Duration

	Concurrency      int
	NormalizeTimeout time.Duration

	FSInversionTolerance    time.Duration
	DuplicateDistanceMeters float64
	DuplicateWindow         time.Duration
}

// Default returns the heuristic-mode policy with repository defaults.
func Default() Policy {
	cfg := config.Default()
	p, _ := FromConfig(&cfg)
	return p
}

// FromConfig builds a policy from loaded configuration. It does not validate
// threshold ordering; call Validate before processing.
func FromConfig(cfg *config.Config) (Policy, error) {
	if cfg == nil {
		return Policy{}, fmt.Errorf("policy: config is required")
	}
	p := Policy{
		CourtMode:               cfg.Analysis.CourtMode,
		PriorRecordInference:    cfg.Analysis.PriorRecordInference,
		RequireComplete:         cfg.Analysis.RequireComplete,
		StopDistanceMeters:      cfg.Analysis.StopDistanceMeters,
		JumpSpeedKMH:            cfg.Analysis.JumpSpeedKMH,
		GapDuration:             seconds(cfg.Gaps.GapSeconds),
		MajorGapDuration:        seconds(cfg.Gaps.MajorGapSeconds),
		CriticalGapDuration:     seconds(cfg.Gaps.CriticalGapSeconds),
		Concurrency:             cfg.Extractor.Concurrency,
		NormalizeTimeout:        seconds(cfg.Analysis.NormalizeTimeoutSeconds),
		FSInversionTolerance:    seconds(cfg.Review.FSInversionToleranceSeconds),
		DuplicateDistanceMeters: cfg.Review.DuplicateDistanceMeters,
		DuplicateWindow:         seconds(cfg.Review.DuplicateWindowSeconds),
	}
	if p.Concurrency <= 0 {
		p.Concurrency = runtime.NumCPU()
	}
	if p.NormalizeTimeout <= 0 {
		p.NormalizeTimeout = DefaultNormalizeTimeout
	}
	if cfg.Analysis.DefaultTimezoneOffset != "" {
		offset, err := evidence.ParseOffset(cfg.Analysis.DefaultTimezoneOffset)
		if err != nil {
			return Policy{}, fmt.Errorf("policy: default offset: %w", err)
		}
		p.DefaultOffset = Offset{Seconds: offset, Configured: true}
	}
	return p, nil
}

// Validate rejects thresholds that would invalidate every downstream
// classification.
func (p Policy) Validate() error {
	fail := func(msg string) error {
		return evidence.Wrap(evidence.ErrThresholdMisconfiguration, "policy", "validate", msg, nil)
	}
	switch {
	case p.StopDistanceMeters < 0:
		return fail("stop distance must be >= 0")
	case p.JumpSpeedKMH <= 0:
		return fail("jump speed threshold must be positive")
	case p.GapDuration <= 0:
		return fail("gap duration must be positive")
	case p.GapDuration >= p.MajorGapDuration:
		return fail(fmt.Sprintf("gap duration %s must be less than major gap duration %s", p.GapDuration, p.MajorGapDuration))
	case p.MajorGapDuration >= p.CriticalGapDuration:
		return fail(fmt.Sprintf("major gap duration %s must be less than critical gap duration %s", p.MajorGapDuration, p.CriticalGapDuration))
	case p.Concurrency <= 0:
		return fail("concurrency must be positive")
	case p.NormalizeTimeout <= 0:
		return fail("normalize timeout must be positive")
	case p.FSInversionTolerance < 0, p.DuplicateWindow < 0:
		return fail("review windows must be >= 0")
	case p.DuplicateDistanceMeters < 0:
		return fail("duplicate distance must be >= 0")
	}
	return nil
}

// Mode names the operating mode for logs and exports.
func (p Policy) Mode() string {
	if p.CourtMode {
		return "court"
	}
	return "heuristic"
}

// AllowsDefaultOffset reports whether the configured default may be applied.
func (p Policy) AllowsDefaultOffset() (int, bool) {
	if p.CourtMode || !p.DefaultOffset.Configured {
		return 0, false
	}
	return p.DefaultOffset.Seconds, true
}

// AllowsPriorInference reports whether prior-record inference may run.
func (p Policy) AllowsPriorInference() bool {
	return !p.CourtMode && p.PriorRecordInference
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}

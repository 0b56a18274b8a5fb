// Package timezone assigns every normalized record a tagged instant: KNOWN
// when the basis candidate carries an attributable offset, ASSUMED when the
// policy names a heuristic that supplied one, UNRESOLVED otherwise.
package timezone

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"geotimeline/internal/evidence"
	"geotimeline/internal/logging"
	"geotimeline/internal/policy"
)

const stageName = "resolve"

const (
	// FlagNoSource is recorded when a naive timestamp has nothing to anchor it.
	FlagNoSource = "no attributable timezone source"
	// FlagNoSourceCourt is the court-mode variant of FlagNoSource.
	FlagNoSourceCourt = FlagNoSource + ", court mode active"
)

// Summary counts records by outcome.
type Summary struct {
	Known      int `json:"known"`
	Assumed    int `json:"assumed"`
	Unresolved int `json:"unresolved"`
	// Ambiguous counts records that parsed but had no permitted offset source.
	Ambiguous int `json:"ambiguous"`
}

type anchor struct {
	civil  time.Time
	offset int
	index  int
	path   string
}

// Resolve returns new records with Resolved set. Records are never modified
// in place. In court mode with RequireComplete set, any record lacking an
// attributable offset fails the run with evidence.ErrTimezoneAmbiguous.
func Resolve(records []evidence.MediaRecord, p policy.Policy, logger *slog.Logger) ([]evidence.MediaRecord, Summary, error) {
	logger = logging.NewComponentLogger(logger, "timezone")
	out := make([]evidence.MediaRecord, len(records))
	for i := range records {
		out[i] = records[i].Clone()
	}

	var summary Summary
	var naive []int
	for i := range out {
		rec := &out[i]
		cand, ok := rec.BasisCandidate()
		if !ok {
			rec.Resolved = evidence.Unresolved(normalizeReason(rec))
			summary.Unresolved++
			continue
		}
		at, explicit := cand.Instant()
		if !explicit {
			naive = append(naive, i)
			continue
		}
		rec.Resolved = evidence.Known(at, cand.OffsetSeconds, cand.Kind, knownJustification(cand))
		summary.Known++
		logDecision(logger, rec)
	}

	anchors := collectAnchors(out)
	for _, i := range naive {
		rec := &out[i]
		cand, _ := rec.BasisCandidate()
		if resolveNaive(rec, cand, anchors, p) {
			summary.Assumed++
			logDecision(logger, rec)
			continue
		}
		summary.Unresolved++
		summary.Ambiguous++
		logging.WarnWithContext(logger, "record excluded: timezone ambiguous", "timezone_ambiguous",
			logging.String(logging.FieldSourcePath, rec.SourcePath),
			logging.Int(logging.FieldRecordIndex, rec.Index),
			logging.String(logging.FieldMode, p.Mode()),
			logging.String("reason", rec.Resolved.Justification()),
			logging.String(logging.FieldImpact, "record excluded from the ordered timeline"),
		)
	}

	logger.Info("timezone resolution complete",
		logging.String(logging.FieldMode, p.Mode()),
		logging.Int("known", summary.Known),
		logging.Int("assumed", summary.Assumed),
		logging.Int("unresolved", summary.Unresolved),
	)

	if err := CheckComparable(out, p); err != nil {
		return out, summary, err
	}
	if p.CourtMode && p.RequireComplete && summary.Ambiguous > 0 {
		return out, summary, evidence.Wrap(evidence.ErrTimezoneAmbiguous, stageName, "",
			fmt.Sprintf("%d record(s) lack an attributable timezone source and require_complete is set", summary.Ambiguous), nil)
	}
	return out, summary, nil
}

// resolveNaive applies the policy-permitted heuristics in order and reports
// whether the record ended up ASSUMED.
func resolveNaive(rec *evidence.MediaRecord, cand evidence.Candidate, anchors []anchor, p policy.Policy) bool {
	if p.AllowsPriorInference() {
		if a, ok := priorAnchor(anchors, cand.Civil); ok {
			flag := fmt.Sprintf("timezone assumed %s (prior record inference from %s)", evidence.OffsetLabel(a.offset), a.path)
			rec.Resolved = evidence.Assumed(cand.WithOffset(a.offset), a.offset, cand.Kind, flag)
			rec.AssumptionFlags = append(rec.AssumptionFlags, flag)
			return true
		}
	}
	if offset, ok := p.AllowsDefaultOffset(); ok {
		flag := fmt.Sprintf("timezone assumed %s (configured default)", evidence.OffsetLabel(offset))
		rec.Resolved = evidence.Assumed(cand.WithOffset(offset), offset, cand.Kind, flag)
		rec.AssumptionFlags = append(rec.AssumptionFlags, flag)
		return true
	}
	reason := FlagNoSource
	if p.CourtMode {
		reason = FlagNoSourceCourt
	}
	rec.Resolved = evidence.Unresolved(reason)
	rec.AddNote(evidence.AuditUnresolved, reason)
	return false
}

// collectAnchors returns KNOWN records whose basis is a device-local clock
// with an explicit offset, ordered by wall clock then input index. GPS and
// epoch clocks are UTC and say nothing about the local zone.
func collectAnchors(records []evidence.MediaRecord) []anchor {
	var anchors []anchor
	for _, rec := range records {
		if rec.Resolved.Status() != evidence.StatusKnown {
			continue
		}
		cand, ok := rec.BasisCandidate()
		if !ok || cand.Kind != evidence.SourceEXIFOriginal {
			continue
		}
		anchors = append(anchors, anchor{civil: cand.Civil, offset: cand.OffsetSeconds, index: rec.Index, path: rec.SourcePath})
	}
	slices.SortStableFunc(anchors, func(a, b anchor) int {
		if c := a.civil.Compare(b.civil); c != 0 {
			return c
		}
		return a.index - b.index
	})
	return anchors
}

// priorAnchor finds the latest anchor whose wall clock is not after civil.
func priorAnchor(anchors []anchor, civil time.Time) (anchor, bool) {
	idx := sort.Search(len(anchors), func(i int) bool {
		return anchors[i].civil.After(civil)
	})
	if idx == 0 {
		return anchor{}, false
	}
	return anchors[idx-1], true
}

func logDecision(logger *slog.Logger, rec *evidence.MediaRecord) {
	attrs := logging.DecisionAttrs("timezone", rec.Resolved.Status().String(), rec.Resolved.Justification())
	attrs = append(attrs, logging.String(logging.FieldSourcePath, rec.SourcePath))
	logger.Debug("timezone decision", logging.Args(attrs...)...)
}

func knownJustification(cand evidence.Candidate) string {
	if cand.Kind == evidence.SourceGPS {
		return fmt.Sprintf("GPS clock is UTC (%s)", cand.Tag)
	}
	return fmt.Sprintf("explicit offset %s (%s)", evidence.OffsetLabel(cand.OffsetSeconds), cand.Tag)
}

func normalizeReason(rec *evidence.MediaRecord) string {
	if reason := rec.Resolved.Justification(); reason != "" {
		return reason
	}
	return "no parseable timestamp candidate"
}

// CheckComparable verifies that every resolved instant carries a status that
// downstream stages can compare honestly: KNOWN or ASSUMED with a time, and
// KNOWN only in court mode.
func CheckComparable(records []evidence.MediaRecord, p policy.Policy) error {
	for _, rec := range records {
		at, status := rec.Resolved.Instant()
		switch status {
		case evidence.StatusUnresolved:
			continue
		case evidence.StatusAssumed:
			if p.CourtMode {
				return incomparable(rec, "is ASSUMED in court mode")
			}
		case evidence.StatusKnown:
		default:
			return incomparable(rec, fmt.Sprintf("has unknown status %d", int(status)))
		}
		if at.IsZero() {
			return incomparable(rec, fmt.Sprintf("is %s without an instant", status))
		}
	}
	return nil
}

func incomparable(rec evidence.MediaRecord, problem string) error {
	return evidence.Wrap(evidence.ErrTimezoneAmbiguous, stageName, "check_comparable",
		fmt.Sprintf("record %d (%s) %s", rec.Index, rec.SourcePath, problem), nil)
}

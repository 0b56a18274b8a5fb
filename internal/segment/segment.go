// Package segment classifies consecutive timeline events into two independent
// overlays: movement (STOP, MOVE, JUMP) and coverage gaps. A stationary device
// and missing data are different claims, so the overlays are never merged.
package segment

import (
	"fmt"
	"time"

	"geotimeline/internal/evidence"
	"geotimeline/internal/geo"
	"geotimeline/internal/policy"
	"geotimeline/internal/timeline"
)

// Movement labels a consecutive event pair.
type Movement string

const (
	MovementStop Movement = "STOP"
	MovementMove Movement = "MOVE"
	MovementJump Movement = "JUMP"
)

// GapClass labels a pair whose elapsed time reaches a gap threshold.
type GapClass string

const (
	GapNone     GapClass = ""
	GapGap      GapClass = "GAP"
	GapMajor    GapClass = "MAJOR_GAP"
	GapCritical GapClass = "CRITICAL_GAP"
)

// Pair is the measurement between two consecutive events. A pair carries
// exactly one movement label or is excluded; never both.
type Pair struct {
	From     int
	To       int
	Elapsed  time.Duration
	Distance *float64
	SpeedKMH *float64

	Movement Movement
	Gap      GapClass

	MixedConfidence bool
	Excluded        bool
	ExclusionReason string
}

// Segment is a maximal run of consecutive pairs with the same movement label.
type Segment struct {
	Movement   Movement
	StartEvent int
	EndEvent   int
	Pairs      int

	// DistanceMeters sums the pairs that had a distance.
	DistanceMeters  float64
	Duration        time.Duration
	AverageSpeedKMH *float64

	MixedConfidence bool
	// Review is set for JUMP segments: implausible speed suggests a timestamp
	// or GPS error.
	Review bool
}

// Gap is one pair whose elapsed time reached a gap threshold.
type Gap struct {
	Class           GapClass
	From            int
	To              int
	Start           time.Time
	End             time.Time
	Duration        time.Duration
	MixedConfidence bool
}

// Exclusion lists an event left out of strict analysis.
type Exclusion struct {
	Position   int
	SourcePath string
	Status     evidence.TimezoneStatus
	Reason     string
}

// Analysis holds both overlays for one timeline.
type Analysis struct {
	Pairs    []Pair
	Segments []Segment
	Gaps     []Gap
	Excluded []Exclusion
}

// Analyze classifies every consecutive pair of events. In court mode, events
// whose status is not KNOWN are excluded together with every pair touching
// them, and excluded pairs break segments.
func Analyze(events []timeline.Event, p policy.Policy) Analysis {
	var out Analysis
	excluded := make([]bool, len(events))
	if p.CourtMode {
		for i, ev := range events {
			if ev.Status == evidence.StatusKnown {
				continue
			}
			excluded[i] = true
			out.Excluded = append(out.Excluded, Exclusion{
				Position:   i,
				SourcePath: ev.Record.SourcePath,
				Status:     ev.Status,
				Reason:     fmt.Sprintf("timezone status %s is not admissible in court mode", ev.Status),
			})
		}
	}

	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		pair := Pair{
			From:            i - 1,
			To:              i,
			Elapsed:         cur.Elapsed,
			Distance:        cur.Distance,
			MixedConfidence: cur.MixedConfidence,
		}
		if cur.Distance != nil {
			if speed, ok := geo.SpeedKMH(*cur.Distance, cur.Elapsed); ok {
				pair.SpeedKMH = &speed
			}
		}

		if p.CourtMode && (excluded[i-1] || excluded[i] || pair.MixedConfidence) {
			pair.Excluded = true
			pair.ExclusionReason = pairExclusionReason(prev, cur, pair.MixedConfidence)
			out.Pairs = append(out.Pairs, pair)
			continue
		}

		pair.Movement = ClassifyMovement(cur.Distance, cur.Elapsed, p)
		pair.Gap = ClassifyGap(cur.Elapsed, p)
		out.Pairs = append(out.Pairs, pair)

		if pair.Gap != GapNone {
			out.Gaps = append(out.Gaps, Gap{
				Class:           pair.Gap,
				From:            pair.From,
				To:              pair.To,
				Start:           prev.Instant,
				End:             cur.Instant,
				Duration:        cur.Elapsed,
				MixedConfidence: pair.MixedConfidence,
			})
		}
	}

	out.Segments = mergeSegments(out.Pairs)
	return out
}

func pairExclusionReason(prev, cur timeline.Event, mixed bool) string {
	switch {
	case prev.Status != evidence.StatusKnown:
		return fmt.Sprintf("%s has timezone status %s", prev.Record.SourcePath, prev.Status)
	case cur.Status != evidence.StatusKnown:
		return fmt.Sprintf("%s has timezone status %s", cur.Record.SourcePath, cur.Status)
	case mixed:
		return "mixed-confidence pair"
	}
	return "excluded from strict analysis"
}

// ClassifyMovement labels one pair. Missing distance is STOP: absent
// coordinates never imply motion.
func ClassifyMovement(distance *float64, elapsed time.Duration, p policy.Policy) Movement {
	if distance == nil || *distance <= p.StopDistanceMeters {
		return MovementStop
	}
	speed, ok := geo.SpeedKMH(*distance, elapsed)
	if !ok {
		return MovementJump
	}
	if speed <= p.JumpSpeedKMH {
		return MovementMove
	}
	return MovementJump
}

// ClassifyGap labels elapsed time against the policy thresholds.
func ClassifyGap(elapsed time.Duration, p policy.Policy) GapClass {
	switch {
	case elapsed >= p.CriticalGapDuration:
		return GapCritical
	case elapsed >= p.MajorGapDuration:
		return GapMajor
	case elapsed >= p.GapDuration:
		return GapGap
	default:
		return GapNone
	}
}

func mergeSegments(pairs []Pair) []Segment {
	var segments []Segment
	var cur *Segment
	var withDistance time.Duration
	flush := func() {
		if cur == nil {
			return
		}
		if withDistance > 0 {
			if speed, ok := geo.SpeedKMH(cur.DistanceMeters, withDistance); ok {
				cur.AverageSpeedKMH = &speed
			}
		}
		segments = append(segments, *cur)
		cur = nil
		withDistance = 0
	}

	for _, pair := range pairs {
		if pair.Excluded {
			flush()
			continue
		}
		if cur == nil || cur.Movement != pair.Movement {
			flush()
			cur = &Segment{Movement: pair.Movement, StartEvent: pair.From, Review: pair.Movement == MovementJump}
		}
		cur.EndEvent = pair.To
		cur.Pairs++
		cur.Duration += pair.Elapsed
		if pair.Distance != nil {
			cur.DistanceMeters += *pair.Distance
			withDistance += pair.Elapsed
		}
		if pair.MixedConfidence {
			cur.MixedConfidence = true
		}
	}
	flush()
	return segments
}

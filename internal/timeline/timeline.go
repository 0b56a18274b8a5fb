// Package timeline orders resolved records into an arena of events linked by
// integer positions and flags everything an examiner should look at twice:
// ties, duplicate instants, near-duplicate captures, and disagreement with
// filesystem ordering. Nothing is corrected automatically.
package timeline

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"geotimeline/internal/evidence"
	"geotimeline/internal/geo"
	"geotimeline/internal/policy"
)

// ReviewKind classifies a review marker.
type ReviewKind string

const (
	ReviewDuplicateInstant ReviewKind = "duplicate_instant"
	ReviewNearDuplicate    ReviewKind = "near_duplicate"
	ReviewFSInversion      ReviewKind = "fs_order_inversion"
)

// Event is one record placed on the timeline. Prev and Next are positions in
// Timeline.Events, -1 at either end.
type Event struct {
	Position int
	Record   evidence.MediaRecord
	Instant  time.Time
	Status   evidence.TimezoneStatus

	Prev int
	Next int

	// Elapsed and Distance are measured from the previous event. Distance is
	// nil when either side lacks coordinates.
	Elapsed  time.Duration
	Distance *float64

	Tie bool
	// MixedConfidence is set when this event and its predecessor differ in
	// timezone status.
	MixedConfidence bool
	Review          []ReviewKind
}

// HasPrev reports whether the event has a predecessor.
func (e Event) HasPrev() bool { return e.Prev >= 0 }

// ReviewMarker groups events an examiner should inspect together.
type ReviewMarker struct {
	Kind      ReviewKind
	Positions []int
	Message   string
}

// Timeline is the ordered arena plus everything that could not be ordered.
type Timeline struct {
	Events     []Event
	Unresolved []evidence.MediaRecord
	Review     []ReviewMarker
}

// Options holds the review-marker thresholds.
type Options struct {
	FSInversionTolerance    time.Duration
	DuplicateDistanceMeters float64
	DuplicateWindow         time.Duration
}

// OptionsFromPolicy copies the review thresholds out of a policy.
func OptionsFromPolicy(p policy.Policy) Options {
	return Options{
		FSInversionTolerance:    p.FSInversionTolerance,
		DuplicateDistanceMeters: p.DuplicateDistanceMeters,
		DuplicateWindow:         p.DuplicateWindow,
	}
}

// Build orders records by resolved instant. Ties break on source path and then
// input index, so identical input always produces an identical arena.
func Build(records []evidence.MediaRecord, opts Options) Timeline {
	var tl Timeline
	resolved := make([]evidence.MediaRecord, 0, len(records))
	for _, rec := range records {
		if rec.Resolved.IsResolved() {
			resolved = append(resolved, rec.Clone())
			continue
		}
		tl.Unresolved = append(tl.Unresolved, rec.Clone())
	}

	slices.SortStableFunc(resolved, compareRecords)

	tl.Events = make([]Event, len(resolved))
	for i, rec := range resolved {
		at, status := rec.Resolved.Instant()
		ev := Event{
			Position: i,
			Record:   rec,
			Instant:  at,
			Status:   status,
			Prev:     i - 1,
			Next:     i + 1,
		}
		if i == len(resolved)-1 {
			ev.Next = -1
		}
		if i > 0 {
			prev := &tl.Events[i-1]
			ev.Elapsed = at.Sub(prev.Instant)
			if d, ok := geo.Distance(prev.Record.Coordinates, rec.Coordinates); ok {
				ev.Distance = &d
			}
			ev.MixedConfidence = prev.Status != status
			if at.Equal(prev.Instant) {
				ev.Tie = true
				prev.Tie = true
			}
		}
		tl.Events[i] = ev
	}

	tl.markDuplicateInstants()
	tl.markNearDuplicates(opts)
	tl.markFSInversions(opts)
	return tl
}

func compareRecords(a, b evidence.MediaRecord) int {
	at, _ := a.Resolved.Instant()
	bt, _ := b.Resolved.Instant()
	if c := at.Compare(bt); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SourcePath, b.SourcePath); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

func (tl *Timeline) addMarker(kind ReviewKind, positions []int, message string) {
	tl.Review = append(tl.Review, ReviewMarker{Kind: kind, Positions: positions, Message: message})
	for _, pos := range positions {
		ev := &tl.Events[pos]
		if !slices.Contains(ev.Review, kind) {
			ev.Review = append(ev.Review, kind)
		}
	}
}

func (tl *Timeline) markDuplicateInstants() {
	tl.forEachRun(func(prev, cur Event) bool { return cur.Instant.Equal(prev.Instant) }, func(positions []int) {
		at := tl.Events[positions[0]].Instant
		tl.addMarker(ReviewDuplicateInstant, positions,
			fmt.Sprintf("%d records share instant %s", len(positions), at.Format(time.RFC3339Nano)))
	})
}

func (tl *Timeline) markNearDuplicates(opts Options) {
	if opts.DuplicateWindow <= 0 {
		return
	}
	tl.forEachRun(func(prev, cur Event) bool {
		if cur.Distance == nil || cur.Instant.Equal(prev.Instant) {
			return false
		}
		return *cur.Distance <= opts.DuplicateDistanceMeters && cur.Elapsed <= opts.DuplicateWindow
	}, func(positions []int) {
		tl.addMarker(ReviewNearDuplicate, positions,
			fmt.Sprintf("%d records within %gm and %s of each other (possible duplicates)", len(positions), opts.DuplicateDistanceMeters, opts.DuplicateWindow))
	})
}

// markFSInversions flags consecutive events whose modification times run
// backwards by more than the tolerance relative to capture order.
func (tl *Timeline) markFSInversions(opts Options) {
	for i := 1; i < len(tl.Events); i++ {
		prev, cur := tl.Events[i-1], tl.Events[i]
		if !prev.Record.HasModTime() || !cur.Record.HasModTime() {
			continue
		}
		delta := cur.Record.ModTime.Sub(prev.Record.ModTime)
		if delta >= -opts.FSInversionTolerance {
			continue
		}
		tl.addMarker(ReviewFSInversion, []int{i - 1, i},
			fmt.Sprintf("filesystem modification time of %s precedes %s by %s", cur.Record.SourcePath, prev.Record.SourcePath, -delta))
	}
}

// forEachRun calls emit for every maximal run of two or more consecutive
// events where linked reports true for each adjacent pair.
func (tl *Timeline) forEachRun(linked func(prev, cur Event) bool, emit func(positions []int)) {
	start := 0
	for i := 1; i <= len(tl.Events); i++ {
		if i < len(tl.Events) && linked(tl.Events[i-1], tl.Events[i]) {
			continue
		}
		if i-start >= 2 {
			positions := make([]int, 0, i-start)
			for p := start; p < i; p++ {
				positions = append(positions, p)
			}
			emit(positions)
		}
		start = i
	}
}

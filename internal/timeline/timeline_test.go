package timeline_test

import (
	"reflect"
	"testing"
	"time"

	"geotimeline/internal/evidence"
	"geotimeline/internal/timeline"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func known(index int, path string, offset time.Duration, coords *evidence.Coordinates) evidence.MediaRecord {
	return evidence.MediaRecord{
		Index:       index,
		SourcePath:  path,
		Basis:       -1,
		Resolved:    evidence.Known(base.Add(offset), 0, evidence.SourceGPS, "GPS clock is UTC (GPSDateTime)"),
		Coordinates: coords,
	}
}

func at(lat, lon float64) *evidence.Coordinates {
	return &evidence.Coordinates{Latitude: lat, Longitude: lon}
}

func TestBuildOrdersAndLinks(t *testing.T) {
	records := []evidence.MediaRecord{
		known(0, "c.jpg", 20*time.Minute, nil),
		{Index: 1, SourcePath: "lost.jpg", Basis: -1, Resolved: evidence.Unresolved("no timestamp metadata")},
		known(2, "a.jpg", 0, at(52.5, 13.4)),
		known(3, "b.jpg", 10*time.Minute, at(52.5, 13.4)),
	}

	tl := timeline.Build(records, timeline.Options{})
	if len(tl.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(tl.Events))
	}
	wantPaths := []string{"a.jpg", "b.jpg", "c.jpg"}
	for i, ev := range tl.Events {
		if ev.Record.SourcePath != wantPaths[i] || ev.Position != i {
			t.Fatalf("event %d = %s", i, ev.Record.SourcePath)
		}
		if i > 0 && ev.Instant.Before(tl.Events[i-1].Instant) {
			t.Fatal("timeline must be non-decreasing")
		}
	}
	if tl.Events[0].Prev != -1 || tl.Events[0].Next != 1 || tl.Events[2].Next != -1 || tl.Events[2].Prev != 1 {
		t.Fatalf("unexpected links %+v", tl.Events)
	}
	if tl.Events[1].Elapsed != 10*time.Minute {
		t.Fatalf("elapsed = %s", tl.Events[1].Elapsed)
	}
	if tl.Events[1].Distance == nil || *tl.Events[1].Distance != 0 {
		t.Fatalf("expected zero distance, got %v", tl.Events[1].Distance)
	}
	if tl.Events[2].Distance != nil {
		t.Fatal("distance must be absent without coordinates")
	}
	if len(tl.Unresolved) != 1 || tl.Unresolved[0].SourcePath != "lost.jpg" {
		t.Fatalf("unexpected unresolved %+v", tl.Unresolved)
	}
}

func TestBuildTiesBreakOnPathAndFlagBoth(t *testing.T) {
	records := []evidence.MediaRecord{
		known(0, "b.jpg", 0, nil),
		known(1, "a.jpg", 0, nil),
		known(2, "z.jpg", time.Minute, nil),
	}
	tl := timeline.Build(records, timeline.Options{})
	if tl.Events[0].Record.SourcePath != "a.jpg" || tl.Events[1].Record.SourcePath != "b.jpg" {
		t.Fatalf("tie not broken by path: %s, %s", tl.Events[0].Record.SourcePath, tl.Events[1].Record.SourcePath)
	}
	if !tl.Events[0].Tie || !tl.Events[1].Tie || tl.Events[2].Tie {
		t.Fatal("tie flags must be set on both tied events only")
	}
	if len(tl.Review) != 1 || tl.Review[0].Kind != timeline.ReviewDuplicateInstant {
		t.Fatalf("unexpected review markers %+v", tl.Review)
	}
	if !reflect.DeepEqual(tl.Review[0].Positions, []int{0, 1}) {
		t.Fatalf("positions = %v", tl.Review[0].Positions)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	records := []evidence.MediaRecord{
		known(0, "same.jpg", 0, at(1, 1)),
		known(1, "same.jpg", 0, at(1, 1)),
		known(2, "other.jpg", 5*time.Second, at(1, 1)),
		known(3, "x.jpg", time.Hour, at(2, 2)),
	}
	opts := timeline.Options{DuplicateDistanceMeters: 5, DuplicateWindow: 10 * time.Second}
	first := timeline.Build(records, opts)
	second := timeline.Build(records, opts)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("Build must be deterministic")
	}
	if first.Events[0].Record.Index != 0 || first.Events[1].Record.Index != 1 {
		t.Fatal("identical instant and path must fall back to input index")
	}
}

func TestBuildMarksMixedConfidence(t *testing.T) {
	assumed := known(1, "b.jpg", time.Minute, nil)
	assumed.Resolved = evidence.Assumed(base.Add(time.Minute), 7200, evidence.SourceEXIFOriginal, "timezone assumed UTC+02:00 (configured default)")
	tl := timeline.Build([]evidence.MediaRecord{known(0, "a.jpg", 0, nil), assumed}, timeline.Options{})
	if tl.Events[0].MixedConfidence || !tl.Events[1].MixedConfidence {
		t.Fatalf("unexpected mixed flags %v %v", tl.Events[0].MixedConfidence, tl.Events[1].MixedConfidence)
	}
	if tl.Events[1].Status != evidence.StatusAssumed {
		t.Fatalf("status = %v", tl.Events[1].Status)
	}
}

func TestBuildFlagsFilesystemInversions(t *testing.T) {
	first := known(0, "a.jpg", 0, nil)
	first.ModTime = base.Add(3 * time.Hour)
	second := known(1, "b.jpg", time.Minute, nil)
	second.ModTime = base.Add(time.Hour)
	third := known(2, "c.jpg", 2*time.Minute, nil)
	third.ModTime = base.Add(90 * time.Minute)

	tl := timeline.Build([]evidence.MediaRecord{first, second, third}, timeline.Options{FSInversionTolerance: time.Hour})
	if len(tl.Review) != 1 || tl.Review[0].Kind != timeline.ReviewFSInversion {
		t.Fatalf("unexpected markers %+v", tl.Review)
	}
	if !reflect.DeepEqual(tl.Review[0].Positions, []int{0, 1}) {
		t.Fatalf("positions = %v", tl.Review[0].Positions)
	}
	if len(tl.Events[2].Review) != 0 {
		t.Fatal("within tolerance must not be flagged")
	}
}

func TestBuildFlagsNearDuplicates(t *testing.T) {
	records := []evidence.MediaRecord{
		known(0, "a.jpg", 0, at(48.0, 11.0)),
		known(1, "b.jpg", 3*time.Second, at(48.0, 11.0)),
		known(2, "c.jpg", 6*time.Second, at(48.0, 11.00001)),
		known(3, "d.jpg", 10*time.Minute, at(48.0, 11.0)),
	}
	tl := timeline.Build(records, timeline.Options{DuplicateDistanceMeters: 5, DuplicateWindow: 10 * time.Second})
	if len(tl.Review) != 1 || tl.Review[0].Kind != timeline.ReviewNearDuplicate {
		t.Fatalf("unexpected markers %+v", tl.Review)
	}
	if !reflect.DeepEqual(tl.Review[0].Positions, []int{0, 1, 2}) {
		t.Fatalf("positions = %v", tl.Review[0].Positions)
	}
}

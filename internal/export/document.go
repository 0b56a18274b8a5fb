package export

import (
	"fmt"
	"time"

	"geotimeline/internal/analysis"
	"geotimeline/internal/evidence"
	"geotimeline/internal/segment"
	"geotimeline/internal/timeline"
)

const timeLayout = time.RFC3339Nano

// Settings echoes the policy a result was produced under.
type Settings struct {
	Mode                    string  `json:"mode"`
	DefaultOffset           string  `json:"default_offset"`
	PriorRecordInference    bool    `json:"prior_record_inference"`
	RequireComplete         bool    `json:"require_complete"`
	StopDistanceMeters      float64 `json:"stop_distance_meters"`
	JumpSpeedKMH            float64 `json:"jump_speed_kmh"`
	GapSeconds              float64 `json:"gap_seconds"`
	MajorGapSeconds         float64 `json:"major_gap_seconds"`
	CriticalGapSeconds      float64 `json:"critical_gap_seconds"`
	DuplicateDistanceMeters float64 `json:"duplicate_distance_meters"`
	DuplicateWindowSeconds  float64 `json:"duplicate_window_seconds"`
}

// RecordRow is one input record, placed on the timeline or not.
type RecordRow struct {
	Index           int      `json:"index"`
	SourcePath      string   `json:"source_path"`
	Status          string   `json:"tz_status"`
	InstantUTC      string   `json:"instant_utc,omitempty"`
	Local           string   `json:"local,omitempty"`
	Offset          string   `json:"offset,omitempty"`
	Source          string   `json:"time_source,omitempty"`
	Tag             string   `json:"tag,omitempty"`
	Raw             string   `json:"raw,omitempty"`
	Confidence      string   `json:"confidence,omitempty"`
	Justification   string   `json:"justification"`
	Latitude        *float64 `json:"lat,omitempty"`
	Longitude       *float64 `json:"lon,omitempty"`
	Altitude        string   `json:"altitude,omitempty"`
	Make            string   `json:"make,omitempty"`
	Model           string   `json:"model,omitempty"`
	FileType        string   `json:"filetype,omitempty"`
	MIMEType        string   `json:"mimetype,omitempty"`
	MapsURL         string   `json:"maps_url,omitempty"`
	AssumptionFlags []string `json:"assumption_flags,omitempty"`
}

// EventRow is one timeline event flattened for reports.
type EventRow struct {
	Position        int      `json:"position"`
	Index           int      `json:"index"`
	SourcePath      string   `json:"source_path"`
	InstantUTC      string   `json:"instant_utc"`
	Local           string   `json:"local"`
	Offset          string   `json:"offset"`
	Status          string   `json:"status"`
	Source          string   `json:"source"`
	Tag             string   `json:"tag"`
	Raw             string   `json:"raw"`
	Confidence      string   `json:"confidence"`
	Justification   string   `json:"justification"`
	Latitude        *float64 `json:"lat,omitempty"`
	Longitude       *float64 `json:"lon,omitempty"`
	Altitude        string   `json:"altitude,omitempty"`
	ElapsedSeconds  float64  `json:"elapsed_seconds"`
	DistanceMeters  *float64 `json:"distance_m,omitempty"`
	Tie             bool     `json:"tie"`
	MixedConfidence bool     `json:"mixed_confidence"`
	Review          []string `json:"review,omitempty"`
	AssumptionFlags []string `json:"assumption_flags,omitempty"`
	Make            string   `json:"make,omitempty"`
	Model           string   `json:"model,omitempty"`
}

// PairRow is the measurement between two consecutive events.
type PairRow struct {
	From            int      `json:"from"`
	To              int      `json:"to"`
	FromPath        string   `json:"from_path"`
	ToPath          string   `json:"to_path"`
	ElapsedSeconds  float64  `json:"elapsed_seconds"`
	DistanceMeters  *float64 `json:"distance_m,omitempty"`
	SpeedKMH        *float64 `json:"speed_kmh,omitempty"`
	Movement        string   `json:"movement,omitempty"`
	Gap             string   `json:"gap,omitempty"`
	MixedConfidence bool     `json:"mixed_confidence"`
	Excluded        bool     `json:"excluded"`
	ExclusionReason string   `json:"exclusion_reason,omitempty"`
}

// SegmentRow is one movement segment.
type SegmentRow struct {
	Movement        string   `json:"movement"`
	StartEvent      int      `json:"start_event"`
	EndEvent        int      `json:"end_event"`
	StartUTC        string   `json:"start_utc"`
	EndUTC          string   `json:"end_utc"`
	Pairs           int      `json:"pairs"`
	DistanceMeters  float64  `json:"distance_m"`
	DurationSeconds float64  `json:"duration_seconds"`
	AverageSpeedKMH *float64 `json:"average_speed_kmh,omitempty"`
	MixedConfidence bool     `json:"mixed_confidence"`
	Review          bool     `json:"review"`
}

// GapRow is one coverage gap.
type GapRow struct {
	Class           string  `json:"class"`
	From            int     `json:"from"`
	To              int     `json:"to"`
	FromPath        string  `json:"from_path"`
	ToPath          string  `json:"to_path"`
	StartUTC        string  `json:"start_utc"`
	EndUTC          string  `json:"end_utc"`
	DurationSeconds float64 `json:"duration_seconds"`
	MixedConfidence bool    `json:"mixed_confidence"`
}

// ExclusionRow lists an event left out of strict analysis.
type ExclusionRow struct {
	Position   int    `json:"position"`
	SourcePath string `json:"source_path"`
	Status     string `json:"status"`
	Reason     string `json:"reason"`
}

// UnresolvedRow lists a record that could not be placed on the timeline.
type UnresolvedRow struct {
	Index      int    `json:"index"`
	SourcePath string `json:"source_path"`
	Reason     string `json:"reason"`
}

// ReviewRow is one review marker.
type ReviewRow struct {
	Kind        string   `json:"kind"`
	Positions   []int    `json:"positions"`
	SourcePaths []string `json:"source_paths"`
	Message     string   `json:"message"`
}

// Document is the report-ready view of a result. It contains no run-specific
// data, so identical results render identical documents.
type Document struct {
	Settings   Settings               `json:"settings"`
	Summary    analysis.Summary       `json:"summary"`
	Records    []RecordRow            `json:"records"`
	Events     []EventRow             `json:"events"`
	Pairs      []PairRow              `json:"pairs"`
	Segments   []SegmentRow           `json:"segments"`
	Gaps       []GapRow               `json:"gaps"`
	Excluded   []ExclusionRow         `json:"excluded"`
	Unresolved []UnresolvedRow        `json:"unresolved"`
	Review     []ReviewRow            `json:"review"`
	Audit      []evidence.RecordAudit `json:"audit"`
}

// NewDocument flattens a result.
func NewDocument(res *analysis.Result) Document {
	p := res.Policy
	doc := Document{
		Settings: Settings{
			Mode:                    p.Mode(),
			DefaultOffset:           p.DefaultOffset.String(),
			PriorRecordInference:    p.PriorRecordInference,
			RequireComplete:         p.RequireComplete,
			StopDistanceMeters:      p.StopDistanceMeters,
			JumpSpeedKMH:            p.JumpSpeedKMH,
			GapSeconds:              p.GapDuration.Seconds(),
			MajorGapSeconds:         p.MajorGapDuration.Seconds(),
			CriticalGapSeconds:      p.CriticalGapDuration.Seconds(),
			DuplicateDistanceMeters: p.DuplicateDistanceMeters,
			DuplicateWindowSeconds:  p.DuplicateWindow.Seconds(),
		},
		Summary:    res.Summary,
		Records:    make([]RecordRow, 0, len(res.Records)),
		Events:     make([]EventRow, 0, len(res.Timeline.Events)),
		Pairs:      make([]PairRow, 0, len(res.Overlays.Pairs)),
		Segments:   make([]SegmentRow, 0, len(res.Overlays.Segments)),
		Gaps:       make([]GapRow, 0, len(res.Overlays.Gaps)),
		Excluded:   make([]ExclusionRow, 0, len(res.Overlays.Excluded)),
		Unresolved: make([]UnresolvedRow, 0, len(res.Timeline.Unresolved)),
		Review:     make([]ReviewRow, 0, len(res.Timeline.Review)),
		Audit:      res.Audit,
	}

	events := res.Timeline.Events
	pathAt := func(pos int) string { return events[pos].Record.SourcePath }

	for _, rec := range res.Records {
		doc.Records = append(doc.Records, recordRow(rec))
	}
	for _, ev := range events {
		doc.Events = append(doc.Events, eventRow(ev))
	}
	for _, pair := range res.Overlays.Pairs {
		doc.Pairs = append(doc.Pairs, PairRow{
			From:            pair.From,
			To:              pair.To,
			FromPath:        pathAt(pair.From),
			ToPath:          pathAt(pair.To),
			ElapsedSeconds:  pair.Elapsed.Seconds(),
			DistanceMeters:  pair.Distance,
			SpeedKMH:        pair.SpeedKMH,
			Movement:        string(pair.Movement),
			Gap:             string(pair.Gap),
			MixedConfidence: pair.MixedConfidence,
			Excluded:        pair.Excluded,
			ExclusionReason: pair.ExclusionReason,
		})
	}
	for _, seg := range res.Overlays.Segments {
		doc.Segments = append(doc.Segments, segmentRow(seg, events))
	}
	for _, gap := range res.Overlays.Gaps {
		doc.Gaps = append(doc.Gaps, GapRow{
			Class:           string(gap.Class),
			From:            gap.From,
			To:              gap.To,
			FromPath:        pathAt(gap.From),
			ToPath:          pathAt(gap.To),
			StartUTC:        gap.Start.UTC().Format(timeLayout),
			EndUTC:          gap.End.UTC().Format(timeLayout),
			DurationSeconds: gap.Duration.Seconds(),
			MixedConfidence: gap.MixedConfidence,
		})
	}
	for _, ex := range res.Overlays.Excluded {
		doc.Excluded = append(doc.Excluded, ExclusionRow{
			Position:   ex.Position,
			SourcePath: ex.SourcePath,
			Status:     ex.Status.String(),
			Reason:     ex.Reason,
		})
	}
	for _, rec := range res.Timeline.Unresolved {
		doc.Unresolved = append(doc.Unresolved, UnresolvedRow{
			Index:      rec.Index,
			SourcePath: rec.SourcePath,
			Reason:     rec.Resolved.Justification(),
		})
	}
	for _, marker := range res.Timeline.Review {
		row := ReviewRow{Kind: string(marker.Kind), Positions: marker.Positions, Message: marker.Message}
		for _, pos := range marker.Positions {
			row.SourcePaths = append(row.SourcePaths, pathAt(pos))
		}
		doc.Review = append(doc.Review, row)
	}
	return doc
}

func recordRow(rec evidence.MediaRecord) RecordRow {
	row := RecordRow{
		Index:           rec.Index,
		SourcePath:      rec.SourcePath,
		Status:          rec.Resolved.Status().String(),
		Justification:   rec.Resolved.Justification(),
		Altitude:        rec.Info.Altitude,
		Make:            rec.Info.Make,
		Model:           rec.Info.Model,
		FileType:        rec.Info.FileType,
		MIMEType:        rec.Info.MIMEType,
		AssumptionFlags: rec.AssumptionFlags,
	}
	if rec.Resolved.IsResolved() {
		at, _ := rec.Resolved.Instant()
		row.InstantUTC = at.UTC().Format(timeLayout)
		local, _ := rec.Resolved.Local()
		row.Local = local.Format(timeLayout)
		row.Offset = evidence.FormatOffset(rec.Resolved.Offset())
		row.Source = string(rec.Resolved.Source())
	}
	if cand, ok := rec.BasisCandidate(); ok {
		row.Tag = cand.Tag
		row.Raw = cand.Raw
		row.Confidence = string(cand.Confidence)
	}
	if rec.Coordinates != nil {
		lat, lon := rec.Coordinates.Latitude, rec.Coordinates.Longitude
		row.Latitude = &lat
		row.Longitude = &lon
		row.MapsURL = MapsURL(lat, lon)
	}
	return row
}

// MapsURL links a coordinate pair to a web map.
func MapsURL(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%.7f,%.7f", lat, lon)
}

func eventRow(ev timeline.Event) EventRow {
	rec := ev.Record
	row := EventRow{
		Position:        ev.Position,
		Index:           rec.Index,
		SourcePath:      rec.SourcePath,
		InstantUTC:      ev.Instant.UTC().Format(timeLayout),
		Offset:          evidence.FormatOffset(rec.Resolved.Offset()),
		Status:          ev.Status.String(),
		Source:          string(rec.Resolved.Source()),
		Justification:   rec.Resolved.Justification(),
		Altitude:        rec.Info.Altitude,
		ElapsedSeconds:  ev.Elapsed.Seconds(),
		DistanceMeters:  ev.Distance,
		Tie:             ev.Tie,
		MixedConfidence: ev.MixedConfidence,
		AssumptionFlags: rec.AssumptionFlags,
		Make:            rec.Info.Make,
		Model:           rec.Info.Model,
	}
	if local, ok := rec.Resolved.Local(); ok {
		row.Local = local.Format(timeLayout)
	}
	if cand, ok := rec.BasisCandidate(); ok {
		row.Tag = cand.Tag
		row.Raw = cand.Raw
		row.Confidence = string(cand.Confidence)
	}
	if rec.Coordinates != nil {
		lat, lon := rec.Coordinates.Latitude, rec.Coordinates.Longitude
		row.Latitude = &lat
		row.Longitude = &lon
	}
	for _, kind := range ev.Review {
		row.Review = append(row.Review, string(kind))
	}
	return row
}

func segmentRow(seg segment.Segment, events []timeline.Event) SegmentRow {
	return SegmentRow{
		Movement:        string(seg.Movement),
		StartEvent:      seg.StartEvent,
		EndEvent:        seg.EndEvent,
		StartUTC:        events[seg.StartEvent].Instant.UTC().Format(timeLayout),
		EndUTC:          events[seg.EndEvent].Instant.UTC().Format(timeLayout),
		Pairs:           seg.Pairs,
		DistanceMeters:  seg.DistanceMeters,
		DurationSeconds: seg.Duration.Seconds(),
		AverageSpeedKMH: seg.AverageSpeedKMH,
		MixedConfidence: seg.MixedConfidence,
		Review:          seg.Review,
	}
}

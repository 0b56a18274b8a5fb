// Package normalize turns extractor output into media records with a
// priority-ordered list of timestamp candidates, validated coordinates, and
// an audit trail of everything that could not be read.
package normalize

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"geotimeline/internal/evidence"
)

const stageName = "normalize"

// Audit messages shared with downstream reporting.
const (
	NoteNoCandidates     = "no timestamp metadata"
	NoteNoParseable      = "no parseable timestamp candidate"
	NotePlaceholderCoord = "coordinates at 0,0 (possible placeholder)"
	NoteEpochMillis      = "epoch value read as milliseconds"
	NoteOffsetConflict   = "embedded offset disagrees with offset tag"
)

var exifOffsetTags = []string{"OffsetTimeOriginal", "OffsetTime", "TimeZone", "TimeZoneOffset"}

var mediaCreateTags = []string{"MediaCreateDate", "TrackCreateDate", "CreateDate"}

// Record converts one extractor bag into a media record. It never fails; every
// problem is recorded on the returned record.
func Record(index int, bag evidence.RawBag) evidence.MediaRecord {
	rec := evidence.MediaRecord{
		Index:      index,
		SourcePath: NormalizePath(bag.SourcePath),
		DiskPath:   bag.SourcePath,
		Basis:      -1,
		Info:       bag.Info,
	}
	if !bag.ModTime.IsZero() {
		rec.ModTime = bag.ModTime.UTC()
	}
	if msg := strings.TrimSpace(bag.ExtractError); msg != "" {
		err := evidence.Wrap(evidence.ErrWorkerFailure, "extract", rec.SourcePath, msg, nil)
		rec.AddNote(evidence.AuditWorkerFailure, err.Error())
	}

	rec.Candidates = append(rec.Candidates, gpsCandidates(bag)...)
	rec.Candidates = append(rec.Candidates, exifCandidates(bag, &rec)...)
	rec.Candidates = append(rec.Candidates, mediaCreateCandidates(bag, &rec)...)

	for i, cand := range rec.Candidates {
		if !cand.Parsed {
			err := evidence.Wrap(evidence.ErrParseFailure, stageName, cand.Tag, fmt.Sprintf("unparseable value %q", cand.Raw), nil)
			rec.AddNote(evidence.AuditParseFailure, fmt.Sprintf("%s (%s)", err.Error(), cand.ParseError))
			continue
		}
		if rec.Basis < 0 {
			rec.Basis = i
		}
	}

	if rec.Basis < 0 {
		reason := NoteNoParseable
		if len(rec.Candidates) == 0 {
			reason = NoteNoCandidates
		}
		rec.Resolved = evidence.Unresolved(reason)
		err := evidence.Wrap(evidence.ErrUnresolvedTimestamp, stageName, "", reason, nil)
		rec.AddNote(evidence.AuditUnresolved, err.Error())
	}

	applyCoordinates(bag, &rec)
	return rec
}

// NormalizePath returns the Unicode NFC form of a source path so that the same
// name decomposed differently by two filesystems sorts identically.
func NormalizePath(path string) string {
	return norm.NFC.String(path)
}

func gpsCandidates(bag evidence.RawBag) []evidence.Candidate {
	var out []evidence.Candidate
	for _, field := range bag.Values(evidence.FieldGPSTimestamp) {
		out = append(out, gpsCandidate(field.Tag, field.Value))
	}
	if len(out) > 0 {
		return out
	}
	date, hasDate := bag.First(evidence.FieldGPSDate)
	clock, hasClock := bag.First(evidence.FieldGPSTime)
	if !hasDate || !hasClock {
		return nil
	}
	raw := strings.TrimSpace(date.Value) + " " + strings.TrimSpace(clock.Value)
	return []evidence.Candidate{gpsCandidate(date.Tag+"+"+clock.Tag, raw)}
}

// GPS clocks are UTC by definition, so a missing suffix still yields an
// explicit zero offset.
func gpsCandidate(tag, raw string) evidence.Candidate {
	cand := evidence.Candidate{
		Kind:       evidence.SourceGPS,
		Tag:        tag,
		Raw:        raw,
		Confidence: evidence.ConfidenceHigh,
	}
	ts, err := parseTimestamp(raw)
	if err != nil {
		cand.ParseError = err.Error()
		return cand
	}
	cand.Parsed = true
	cand.Civil = ts.civil
	cand.HasExplicitOffset = true
	cand.OffsetSeconds = ts.offset
	return cand
}

func exifCandidates(bag evidence.RawBag, rec *evidence.MediaRecord) []evidence.Candidate {
	fields := bag.Values(evidence.FieldEXIFOriginal)
	if len(fields) == 0 {
		return nil
	}
	offsetTag, offset, hasOffset := exifOffset(bag, rec)

	out := make([]evidence.Candidate, 0, len(fields))
	for _, field := range fields {
		cand := evidence.Candidate{
			Kind:       evidence.SourceEXIFOriginal,
			Tag:        field.Tag,
			Raw:        field.Value,
			Confidence: evidence.ConfidenceHigh,
		}
		ts, err := parseTimestamp(field.Value)
		if err != nil {
			cand.ParseError = err.Error()
			out = append(out, cand)
			continue
		}
		cand.Parsed = true
		cand.Civil = ts.civil
		switch {
		case ts.hasOffset:
			cand.HasExplicitOffset = true
			cand.OffsetSeconds = ts.offset
			if hasOffset && offset != ts.offset {
				rec.AddNote(evidence.AuditReview, fmt.Sprintf("%s: %s %s, %s %s; embedded offset used",
					NoteOffsetConflict, field.Tag, evidence.FormatOffset(ts.offset), offsetTag, evidence.FormatOffset(offset)))
			}
		case hasOffset:
			cand.HasExplicitOffset = true
			cand.OffsetSeconds = offset
			cand.Tag = field.Tag + "+" + offsetTag
		}
		out = append(out, cand)
	}
	return out
}

// exifOffset returns the first readable offset tag in priority order.
// Unreadable offset tags are recorded as parse failures.
func exifOffset(bag evidence.RawBag, rec *evidence.MediaRecord) (string, int, bool) {
	fields := bag.Values(evidence.FieldEXIFOffset)
	slices.SortStableFunc(fields, func(a, b evidence.RawField) int {
		return tagRank(exifOffsetTags, a.Tag) - tagRank(exifOffsetTags, b.Tag)
	})
	for _, field := range fields {
		offset, err := parseOffsetTag(field.Tag, field.Value)
		if err != nil {
			wrapped := evidence.Wrap(evidence.ErrParseFailure, stageName, field.Tag, fmt.Sprintf("unparseable offset %q", field.Value), err)
			rec.AddNote(evidence.AuditParseFailure, wrapped.Error())
			continue
		}
		return field.Tag, offset, true
	}
	return "", 0, false
}

func mediaCreateCandidates(bag evidence.RawBag, rec *evidence.MediaRecord) []evidence.Candidate {
	fields := bag.Values(evidence.FieldMediaCreate)
	slices.SortStableFunc(fields, func(a, b evidence.RawField) int {
		return tagRank(mediaCreateTags, a.Tag) - tagRank(mediaCreateTags, b.Tag)
	})
	out := make([]evidence.Candidate, 0, len(fields))
	for _, field := range fields {
		cand := evidence.Candidate{
			Kind:       evidence.SourceMediaCreate,
			Tag:        field.Tag,
			Raw:        field.Value,
			Confidence: mediaCreateConfidence(field.Tag),
		}
		ts, numeric, err := parseEpoch(field.Value)
		if !numeric {
			ts, err = parseTimestamp(field.Value)
		}
		if err != nil {
			cand.ParseError = err.Error()
			out = append(out, cand)
			continue
		}
		cand.Parsed = true
		cand.Civil = ts.civil
		cand.HasExplicitOffset = ts.hasOffset
		cand.OffsetSeconds = ts.offset
		if ts.millis {
			rec.AddNote(evidence.AuditReview, fmt.Sprintf("%s: %s %q", NoteEpochMillis, field.Tag, field.Value))
		}
		out = append(out, cand)
	}
	return out
}

func mediaCreateConfidence(tag string) evidence.Confidence {
	switch baseTag(tag) {
	case "MediaCreateDate", "TrackCreateDate":
		return evidence.ConfidenceMedium
	default:
		return evidence.ConfidenceLow
	}
}

func tagRank(order []string, tag string) int {
	if idx := slices.Index(order, baseTag(tag)); idx >= 0 {
		return idx
	}
	return len(order)
}

func applyCoordinates(bag evidence.RawBag, rec *evidence.MediaRecord) {
	latField, hasLat := bag.First(evidence.FieldGPSLatitude)
	lonField, hasLon := bag.First(evidence.FieldGPSLongitude)
	switch {
	case !hasLat && !hasLon:
		return
	case !hasLat || !hasLon:
		rec.AddNote(evidence.AuditCoordinates, "incomplete coordinates: latitude and longitude must both be present")
		return
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(latField.Value), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(lonField.Value), 64)
	if latErr != nil || lonErr != nil {
		rec.AddNote(evidence.AuditCoordinates, fmt.Sprintf("unparseable coordinates %q,%q", latField.Value, lonField.Value))
		return
	}
	coords, err := evidence.NewCoordinates(lat, lon)
	if err != nil {
		rec.AddNote(evidence.AuditCoordinates, err.Error())
		return
	}
	rec.Coordinates = coords
	if lat == 0 && lon == 0 {
		rec.AddNote(evidence.AuditReview, NotePlaceholderCoord)
	}
}

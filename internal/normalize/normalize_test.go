package normalize_test

import (
	"strings"
	"testing"
	"time"

	"geotimeline/internal/evidence"
	"geotimeline/internal/normalize"
)

func bag(path string, fields ...evidence.RawField) evidence.RawBag {
	return evidence.RawBag{SourcePath: path, Fields: fields}
}

func field(kind evidence.FieldKind, tag, value string) evidence.RawField {
	return evidence.RawField{Kind: kind, Tag: tag, Value: value}
}

func basisInstant(t *testing.T, rec evidence.MediaRecord) time.Time {
	t.Helper()
	cand, ok := rec.BasisCandidate()
	if !ok {
		t.Fatalf("expected basis candidate, notes=%v", rec.Notes)
	}
	at, ok := cand.Instant()
	if !ok {
		t.Fatalf("expected explicit instant for %+v", cand)
	}
	return at
}

func TestRecordGPSCompositeIsUTC(t *testing.T) {
	rec := normalize.Record(0, bag("a.jpg", field(evidence.FieldGPSTimestamp, "GPSDateTime", "2024:05:01 10:00:00Z")))
	if got := basisInstant(t, rec); !got.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("instant = %v", got)
	}
	cand, _ := rec.BasisCandidate()
	if cand.Kind != evidence.SourceGPS || cand.Confidence != evidence.ConfidenceHigh {
		t.Fatalf("unexpected candidate %+v", cand)
	}
}

func TestRecordCombinesGPSDateAndTime(t *testing.T) {
	rec := normalize.Record(0, bag("a.jpg",
		field(evidence.FieldGPSDate, "GPSDateStamp", "2024:05:01"),
		field(evidence.FieldGPSTime, "GPSTimeStamp", "10:00:30.5"),
	))
	want := time.Date(2024, 5, 1, 10, 0, 30, 500_000_000, time.UTC)
	if got := basisInstant(t, rec); !got.Equal(want) {
		t.Fatalf("instant = %v, want %v", got, want)
	}
	cand, _ := rec.BasisCandidate()
	if cand.Tag != "GPSDateStamp+GPSTimeStamp" {
		t.Fatalf("tag = %q", cand.Tag)
	}
}

func TestRecordAppliesEXIFOffsetTag(t *testing.T) {
	rec := normalize.Record(0, bag("a.jpg",
		field(evidence.FieldEXIFOriginal, "DateTimeOriginal", "2024:05:01 10:00:00"),
		field(evidence.FieldEXIFOffset, "OffsetTime", "+01:00"),
		field(evidence.FieldEXIFOffset, "OffsetTimeOriginal", "+02:00"),
	))
	if got := basisInstant(t, rec); !got.Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("instant = %v", got)
	}
	cand, _ := rec.BasisCandidate()
	if cand.Tag != "DateTimeOriginal+OffsetTimeOriginal" {
		t.Fatalf("tag = %q", cand.Tag)
	}
}

func TestRecordEXIFEmbeddedSuffixAndFraction(t *testing.T) {
	rec := normalize.Record(0, bag("a.jpg",
		field(evidence.FieldEXIFOriginal, "DateTimeOriginal", "2024:05:01 10:00:00.250-05:00"),
	))
	want := time.Date(2024, 5, 1, 15, 0, 0, 250_000_000, time.UTC)
	if got := basisInstant(t, rec); !got.Equal(want) {
		t.Fatalf("instant = %v, want %v", got, want)
	}
}

func TestRecordTimeZoneOffsetHours(t *testing.T) {
	rec := normalize.Record(0, bag("a.jpg",
		field(evidence.FieldEXIFOriginal, "DateTimeOriginal", "2024:05:01 10:00:00"),
		field(evidence.FieldEXIFOffset, "TimeZoneOffset", "3 2"),
	))
	if got := basisInstant(t, rec); !got.Equal(time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)) {
		t.Fatalf("instant = %v", got)
	}
}

func TestRecordNaiveEXIFStaysNaive(t *testing.T) {
	rec := normalize.Record(0, bag("a.jpg",
		field(evidence.FieldEXIFOriginal, "DateTimeOriginal", "2024:05:01 10:00:00"),
	))
	cand, ok := rec.BasisCandidate()
	if !ok || !cand.Parsed {
		t.Fatalf("expected parsed basis, got %+v", rec)
	}
	if cand.HasExplicitOffset {
		t.Fatal("naive timestamp must not gain an offset")
	}
	if rec.Resolved.IsResolved() {
		t.Fatal("normalizer must not resolve naive timestamps")
	}
}

func TestRecordPriorityAndRetention(t *testing.T) {
	rec := normalize.Record(0, bag("clip.mov",
		field(evidence.FieldMediaCreate, "CreateDate", "2024:05:01 09:00:00"),
		field(evidence.FieldMediaCreate, "MediaCreateDate", "2024:05:01 09:00:01"),
		field(evidence.FieldEXIFOriginal, "DateTimeOriginal", "2024:05:01 11:00:00+02:00"),
	))
	if len(rec.Candidates) != 3 {
		t.Fatalf("expected all candidates retained, got %d", len(rec.Candidates))
	}
	wantOrder := []string{"DateTimeOriginal", "MediaCreateDate", "CreateDate"}
	for i, tag := range wantOrder {
		if rec.Candidates[i].Tag != tag {
			t.Fatalf("candidate %d tag = %q, want %q", i, rec.Candidates[i].Tag, tag)
		}
	}
	if rec.Basis != 0 {
		t.Fatalf("basis = %d", rec.Basis)
	}
	if rec.Candidates[1].Confidence != evidence.ConfidenceMedium || rec.Candidates[2].Confidence != evidence.ConfidenceLow {
		t.Fatalf("unexpected confidences %+v", rec.Candidates)
	}
}

func TestRecordFallsBackPastUnparseable(t *testing.T) {
	rec := normalize.Record(0, bag("clip.mov",
		field(evidence.FieldEXIFOriginal, "DateTimeOriginal", "0000:00:00 00:00:00"),
		field(evidence.FieldMediaCreate, "MediaCreateDate", "1714557600"),
	))
	if rec.Basis != 1 {
		t.Fatalf("basis = %d, want 1", rec.Basis)
	}
	if got := basisInstant(t, rec); !got.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("epoch instant = %v", got)
	}
	audit := rec.Audit()
	found := false
	for _, entry := range audit.Entries {
		if entry.Kind == evidence.AuditParseFailure && strings.Contains(entry.Message, "DateTimeOriginal") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected parse failure note, got %+v", audit.Entries)
	}
}

func reviewNotes(rec evidence.MediaRecord, prefix string) []string {
	var out []string
	for _, note := range rec.Notes {
		if note.Kind == evidence.AuditReview && strings.HasPrefix(note.Message, prefix) {
			out = append(out, note.Message)
		}
	}
	return out
}

func TestRecordNotesMillisecondEpoch(t *testing.T) {
	rec := normalize.Record(0, bag("clip.mov",
		field(evidence.FieldMediaCreate, "MediaCreateDate", "1714557600000"),
	))
	if got := basisInstant(t, rec); !got.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("instant = %v", got)
	}
	notes := reviewNotes(rec, normalize.NoteEpochMillis)
	if len(notes) != 1 || !strings.Contains(notes[0], "MediaCreateDate") {
		t.Fatalf("expected millisecond note, got %+v", rec.Notes)
	}

	seconds := normalize.Record(0, bag("clip.mov",
		field(evidence.FieldMediaCreate, "MediaCreateDate", "1714557600"),
	))
	if notes := reviewNotes(seconds, normalize.NoteEpochMillis); len(notes) != 0 {
		t.Fatalf("seconds epoch must not be noted: %v", notes)
	}
}

func TestRecordNotesConflictingOffsets(t *testing.T) {
	rec := normalize.Record(0, bag("a.jpg",
		field(evidence.FieldEXIFOriginal, "DateTimeOriginal", "2024:05:01 10:00:00+02:00"),
		field(evidence.FieldEXIFOffset, "OffsetTimeOriginal", "+03:00"),
	))
	if got := basisInstant(t, rec); !got.Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("embedded offset should win, instant = %v", got)
	}
	notes := reviewNotes(rec, normalize.NoteOffsetConflict)
	if len(notes) != 1 || !strings.Contains(notes[0], "+02:00") || !strings.Contains(notes[0], "OffsetTimeOriginal +03:00") {
		t.Fatalf("expected conflict note, got %+v", rec.Notes)
	}

	agree := normalize.Record(0, bag("a.jpg",
		field(evidence.FieldEXIFOriginal, "DateTimeOriginal", "2024:05:01 10:00:00+02:00"),
		field(evidence.FieldEXIFOffset, "OffsetTimeOriginal", "+02:00"),
	))
	if notes := reviewNotes(agree, normalize.NoteOffsetConflict); len(notes) != 0 {
		t.Fatalf("matching offsets must not be noted: %v", notes)
	}
}

func TestRecordWithoutCandidatesIsUnresolved(t *testing.T) {
	rec := normalize.Record(3, bag("empty.png"))
	if rec.Index != 3 || rec.Basis != -1 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Resolved.Status() != evidence.StatusUnresolved {
		t.Fatalf("status = %v", rec.Resolved.Status())
	}
	if len(rec.Notes) != 1 || rec.Notes[0].Kind != evidence.AuditUnresolved || !strings.Contains(rec.Notes[0].Message, normalize.NoteNoCandidates) {
		t.Fatalf("unexpected notes %+v", rec.Notes)
	}
}

func TestRecordRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"yesterday", "2024:13:01 10:00:00", "2024:05:01 10:00:00 Europe/Berlin", ""} {
		rec := normalize.Record(0, bag("a.jpg", field(evidence.FieldEXIFOriginal, "DateTimeOriginal", raw)))
		if rec.Basis != -1 {
			t.Fatalf("expected %q to be unparseable", raw)
		}
	}
}

func TestRecordCoordinates(t *testing.T) {
	rec := normalize.Record(0, bag("a.jpg",
		field(evidence.FieldGPSLatitude, "GPSLatitude", "52.52"),
		field(evidence.FieldGPSLongitude, "GPSLongitude", "13.405"),
	))
	if rec.Coordinates == nil || rec.Coordinates.Latitude != 52.52 || rec.Coordinates.Longitude != 13.405 {
		t.Fatalf("unexpected coordinates %+v", rec.Coordinates)
	}

	rec = normalize.Record(0, bag("b.jpg",
		field(evidence.FieldGPSLatitude, "GPSLatitude", "95"),
		field(evidence.FieldGPSLongitude, "GPSLongitude", "13"),
	))
	if rec.Coordinates != nil {
		t.Fatal("out of range latitude must be dropped")
	}
	if len(rec.Notes) == 0 || rec.Notes[len(rec.Notes)-1].Kind != evidence.AuditCoordinates {
		t.Fatalf("expected coordinates note, got %+v", rec.Notes)
	}

	rec = normalize.Record(0, bag("c.jpg", field(evidence.FieldGPSLatitude, "GPSLatitude", "52")))
	if rec.Coordinates != nil {
		t.Fatal("latitude alone must not produce coordinates")
	}

	rec = normalize.Record(0, bag("d.jpg",
		field(evidence.FieldGPSLatitude, "GPSLatitude", "0"),
		field(evidence.FieldGPSLongitude, "GPSLongitude", "0"),
	))
	if rec.Coordinates == nil {
		t.Fatal("0,0 is kept")
	}
	if !rec.Audit().Has(evidence.AuditReview, normalize.NotePlaceholderCoord) {
		t.Fatalf("expected placeholder review note, got %+v", rec.Notes)
	}
}

func TestRecordNormalizesPathToNFC(t *testing.T) {
	rec := normalize.Record(0, bag("cafe\u0301.jpg"))
	if rec.SourcePath != "caf\u00e9.jpg" {
		t.Fatalf("path = %q", rec.SourcePath)
	}
	if rec.DiskPath != "cafe\u0301.jpg" || rec.OpenPath() != "cafe\u0301.jpg" {
		t.Fatalf("disk path = %q", rec.DiskPath)
	}
}

func TestRecordCarriesExtractorError(t *testing.T) {
	b := bag("broken.mov")
	b.ExtractError = "exiftool exited 1"
	rec := normalize.Record(0, b)
	if rec.Notes[0].Kind != evidence.AuditWorkerFailure || !strings.Contains(rec.Notes[0].Message, "exiftool exited 1") {
		t.Fatalf("unexpected notes %+v", rec.Notes)
	}
}

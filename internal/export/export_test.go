package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"geotimeline/internal/analysis"
	"geotimeline/internal/config"
	"geotimeline/internal/evidence"
	"geotimeline/internal/logging"
	"geotimeline/internal/policy"
	"geotimeline/internal/testsupport"
)

func analyzedResult(t *testing.T, dir string) *analysis.Result {
	t.Helper()

	bags := testsupport.MixedBatch()
	for i := range bags {
		bags[i].SourcePath = filepath.Join(dir, bags[i].SourcePath)
		testsupport.WriteContent(t, bags[i].SourcePath, "hello world")
	}
	p := policy.Default()
	p.DefaultOffset = policy.Offset{Seconds: 7200, Configured: true}
	p.Concurrency = 2
	res, err := analysis.Run(context.Background(), bags, p, logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func allFormats() config.Export {
	return config.Export{CSV: true, SQLite: true, GeoJSON: true, JSON: true, Manifest: true}
}

func testRun(id string) Run {
	return Run{ID: id, StartedAt: time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC), Input: "fixtures"}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestExportWritesEnabledArtifacts(t *testing.T) {
	base := t.TempDir()
	res := analyzedResult(t, base)
	out := filepath.Join(base, "out")

	report, err := New(out, allFormats(), 2, logging.NewNop()).Export(context.Background(), testRun("run-1"), res)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	for _, name := range []string{
		ManifestFile, TimelineCSVFile, PairsCSVFile, MovementCSVFile, GapsCSVFile,
		AuditCSVFile, GeoJSONFile, JSONFile, DatabaseFile,
	} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	if len(report.Files) != 9 {
		t.Fatalf("expected 9 artifacts, got %v", report.Files)
	}

	doc := NewDocument(res)
	timelineRows := readCSV(t, filepath.Join(out, TimelineCSVFile))
	if len(timelineRows) != len(doc.Events)+1 {
		t.Fatalf("timeline rows = %d, want %d", len(timelineRows), len(doc.Events)+1)
	}
	if timelineRows[0][6] != "tz_status" || timelineRows[len(timelineRows)-1][6] != "ASSUMED" {
		t.Fatalf("unexpected tz_status column: %v", timelineRows[len(timelineRows)-1])
	}
	if rows := readCSV(t, filepath.Join(out, GapsCSVFile)); len(rows) != len(doc.Gaps)+1 {
		t.Fatalf("gap rows = %d, want %d", len(rows), len(doc.Gaps)+1)
	}

	manifest := readCSV(t, filepath.Join(out, ManifestFile))
	if len(manifest) != len(res.Records)+1 {
		t.Fatalf("manifest rows = %d", len(manifest))
	}
	for _, row := range manifest[1:] {
		if row[0] != "run-1" || row[2] != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" || row[3] != "11" {
			t.Fatalf("unexpected manifest row %v", row)
		}
	}

	db, err := sql.Open("sqlite", filepath.Join(out, DatabaseFile))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	var records, hashed int
	if err := db.QueryRow("SELECT COUNT(1), COUNT(sha256) FROM evidence WHERE run_id = ?", "run-1").Scan(&records, &hashed); err != nil {
		t.Fatalf("count evidence: %v", err)
	}
	if records != len(res.Records) || hashed != len(res.Records) {
		t.Fatalf("evidence rows = %d hashed = %d", records, hashed)
	}
	var unresolved int
	if err := db.QueryRow("SELECT COUNT(1) FROM evidence WHERE tz_status = 'UNRESOLVED' AND dt_utc IS NULL").Scan(&unresolved); err != nil {
		t.Fatalf("count unresolved: %v", err)
	}
	if unresolved != res.Summary.Unresolved {
		t.Fatalf("unresolved rows = %d, want %d", unresolved, res.Summary.Unresolved)
	}
}

func TestExportAppendsRunsToDatabase(t *testing.T) {
	base := t.TempDir()
	res := analyzedResult(t, base)
	out := filepath.Join(base, "out")
	exporter := New(out, config.Export{SQLite: true}, 1, nil)

	for _, id := range []string{"run-a", "run-b"} {
		if _, err := exporter.Export(context.Background(), testRun(id), res); err != nil {
			t.Fatalf("Export %s: %v", id, err)
		}
	}

	db, err := sql.Open("sqlite", filepath.Join(out, DatabaseFile))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	var runs, events int
	if err := db.QueryRow("SELECT COUNT(1) FROM runs").Scan(&runs); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(1) FROM events").Scan(&events); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if runs != 2 || events != 2*len(res.Timeline.Events) {
		t.Fatalf("runs = %d events = %d", runs, events)
	}
}

func TestOpenDatabaseRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), DatabaseFile)
	db, err := OpenDatabase(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	if _, err := db.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := OpenDatabase(context.Background(), path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestManifestHashesDecomposedFileNames(t *testing.T) {
	base := t.TempDir()
	decomposed := filepath.Join(base, "cafe\u0301.jpg")
	testsupport.WriteContent(t, decomposed, "hello world")

	bags := []evidence.RawBag{testsupport.OffsetBag(decomposed, "2024:05:01 10:00:00", "+02:00")}
	res, err := analysis.Run(context.Background(), bags, policy.Default(), logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Records[0].SourcePath == decomposed {
		t.Fatal("expected the report path to be NFC")
	}

	out := filepath.Join(base, "out")
	report, err := New(out, config.Export{SQLite: true, Manifest: true}, 1, nil).Export(context.Background(), testRun("run-nfd"), res)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(report.Manifest) != 1 || report.Manifest[0].Err != nil {
		t.Fatalf("unexpected manifest %+v", report.Manifest)
	}

	db, err := sql.Open("sqlite", filepath.Join(out, DatabaseFile))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	var digest sql.NullString
	if err := db.QueryRow("SELECT sha256 FROM evidence WHERE run_id = ?", "run-nfd").Scan(&digest); err != nil {
		t.Fatalf("read digest: %v", err)
	}
	if digest.String != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Fatalf("sha256 = %+v", digest)
	}
}

func TestExportSkipsDisabledFormats(t *testing.T) {
	base := t.TempDir()
	res := analyzedResult(t, base)
	out := filepath.Join(base, "out")

	report, err := New(out, config.Export{JSON: true}, 1, nil).Export(context.Background(), testRun("run-1"), res)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(report.Files) != 1 || filepath.Base(report.Files[0]) != JSONFile {
		t.Fatalf("unexpected artifacts %v", report.Files)
	}
	if _, err := os.Stat(filepath.Join(out, DatabaseFile)); !os.IsNotExist(err) {
		t.Fatalf("database should not exist: %v", err)
	}
}

func TestGeoJSONUsesLongitudeFirst(t *testing.T) {
	res := analyzedResult(t, t.TempDir())
	doc := NewDocument(res)

	var buf bytes.Buffer
	if err := WriteGeoJSON(&buf, doc); err != nil {
		t.Fatalf("WriteGeoJSON: %v", err)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(buf.Bytes(), &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Fatalf("type = %s", fc.Type)
	}
	points := 0
	for _, f := range fc.Features {
		if f.Geometry.Type != "Point" {
			continue
		}
		points++
		var pos [2]float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &pos); err != nil {
			t.Fatalf("decode point: %v", err)
		}
		if pos[0] != 13.4 {
			t.Fatalf("expected longitude first, got %v", pos)
		}
	}
	if points != 4 {
		t.Fatalf("expected 4 located events, got %d", points)
	}
}

func TestNewDocumentIsStableAcrossRuns(t *testing.T) {
	base := t.TempDir()
	first, err := json.Marshal(NewDocument(analyzedResult(t, base)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(NewDocument(analyzedResult(t, base)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("documents differ between identical runs")
	}
}

func TestDocumentKeepsUnresolvedOutOfEvents(t *testing.T) {
	doc := NewDocument(analyzedResult(t, t.TempDir()))
	for _, ev := range doc.Events {
		if ev.Status == evidence.StatusUnresolved.String() {
			t.Fatalf("unresolved record %s placed on timeline", ev.SourcePath)
		}
	}
	if len(doc.Unresolved) != 1 || filepath.Base(doc.Unresolved[0].SourcePath) != "notes.png" {
		t.Fatalf("unexpected unresolved rows %+v", doc.Unresolved)
	}
	if len(doc.Records) != len(doc.Events)+len(doc.Unresolved) {
		t.Fatalf("records = %d events = %d unresolved = %d", len(doc.Records), len(doc.Events), len(doc.Unresolved))
	}
}

func TestWriteKMLPlacesLocatedEvents(t *testing.T) {
	doc := NewDocument(analyzedResult(t, t.TempDir()))

	var buf bytes.Buffer
	if err := WriteKML(&buf, doc); err != nil {
		t.Fatalf("WriteKML: %v", err)
	}
	if !strings.HasPrefix(buf.String(), xml.Header) {
		t.Fatalf("missing xml header: %q", buf.String()[:40])
	}
	var root kmlRoot
	if err := xml.Unmarshal(buf.Bytes(), &root); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(root.Document.Folders) != 2 {
		t.Fatalf("expected events and segments folders, got %d", len(root.Document.Folders))
	}

	events := root.Document.Folders[0]
	if events.Name != "Events" || len(events.Placemarks) != 4 {
		t.Fatalf("unexpected events folder %s with %d placemarks", events.Name, len(events.Placemarks))
	}
	first := events.Placemarks[0]
	if first.Name != "IMG_0001.jpg" {
		t.Fatalf("first placemark = %s, want timeline order", first.Name)
	}
	if first.Point == nil || first.Point.Coordinates != "13.4000000,52.5000000,0" {
		t.Fatalf("expected longitude first, got %+v", first.Point)
	}
	if first.TimeStamp == nil || first.TimeStamp.When != "2024-05-01T10:00:00Z" {
		t.Fatalf("unexpected timestamp %+v", first.TimeStamp)
	}
	if !strings.Contains(first.Description, "tz_status: KNOWN") {
		t.Fatalf("description lacks tz status: %q", first.Description)
	}

	for _, pm := range root.Document.Folders[1].Placemarks {
		if pm.LineString == nil || len(strings.Fields(pm.LineString.Coordinates)) < 2 {
			t.Fatalf("segment %s has fewer than two points", pm.Name)
		}
		if pm.TimeSpan == nil || pm.TimeSpan.Begin == "" || pm.TimeSpan.End == "" {
			t.Fatalf("segment %s has no time span", pm.Name)
		}
	}
}

func TestExportWritesMonthlyFilesByLocalMonth(t *testing.T) {
	base := t.TempDir()
	bags := []evidence.RawBag{
		testsupport.GPSBag("a.jpg", "2024:04:30 12:00:00Z", "52.5", "13.4"),
		// 23:00 UTC on April 30 is already May 1 on the device clock.
		testsupport.OffsetBag("b.jpg", "2024:05:01 01:00:00", "+02:00"),
		testsupport.OffsetBag("c.jpg", "2024:05:03 09:00:00", "+02:00"),
		{SourcePath: "d.png"},
	}
	res, err := analysis.Run(context.Background(), bags, policy.Default(), logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := filepath.Join(base, "out")
	stale := filepath.Join(out, MonthlyDir, "2023", "2023-01.csv")
	testsupport.WriteContent(t, stale, "old")

	report, err := New(out, config.Export{Monthly: true}, 1, nil).Export(context.Background(), testRun("run-m"), res)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(report.Files) != 3 {
		t.Fatalf("expected 3 monthly files, got %v", report.Files)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale month should be removed: %v", err)
	}

	cases := []struct {
		name  string
		paths []string
	}{
		{filepath.Join(MonthlyDir, "2024", "2024-04.csv"), []string{"a.jpg"}},
		{filepath.Join(MonthlyDir, "2024", "2024-05.csv"), []string{"b.jpg", "c.jpg"}},
		{filepath.Join(MonthlyDir, "unknown.csv"), []string{"d.png"}},
	}
	for _, tc := range cases {
		rows := readCSV(t, filepath.Join(out, tc.name))
		if len(rows) != len(tc.paths)+1 {
			t.Fatalf("%s rows = %d, want %d", tc.name, len(rows), len(tc.paths)+1)
		}
		if rows[0][0] != "position" {
			t.Fatalf("%s header = %v", tc.name, rows[0])
		}
		for i, want := range tc.paths {
			if got := filepath.Base(rows[i+1][2]); got != want {
				t.Fatalf("%s row %d = %s, want %s", tc.name, i+1, got, want)
			}
		}
	}
	if unknown := readCSV(t, filepath.Join(out, MonthlyDir, "unknown.csv")); unknown[1][0] != "" {
		t.Fatalf("unresolved record should have no position, got %q", unknown[1][0])
	}
}

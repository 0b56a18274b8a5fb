package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"geotimeline/internal/analysis"
	"geotimeline/internal/config"
	"geotimeline/internal/fileutil"
	"geotimeline/internal/logging"
)

// Artifact file names inside the output directory.
const (
	TimelineCSVFile = "timeline.csv"
	PairsCSVFile    = "pairs.csv"
	MovementCSVFile = "movement_report.csv"
	GapsCSVFile     = "gaps_report.csv"
	AuditCSVFile    = "audit.csv"
	GeoJSONFile     = "timeline.geojson"
	KMLFile         = "timeline.kml"
	JSONFile        = "result.json"
	DatabaseFile    = "forensic_data.sqlite"
	ManifestFile    = "evidence_manifest.csv"
)

const fileMode os.FileMode = 0o644

// Exporter writes the artifacts enabled in the export configuration.
type Exporter struct {
	dir         string
	formats     config.Export
	concurrency int
	logger      *slog.Logger
}

// New builds an exporter writing into dir.
func New(dir string, formats config.Export, concurrency int, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{
		dir:         dir,
		formats:     formats,
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(logger, "export"),
	}
}

// Report lists what an export produced.
type Report struct {
	Files    []string
	Manifest []ManifestEntry
}

// Export renders res and writes every enabled artifact. The manifest is
// hashed first so the database can carry the digests.
func (e *Exporter) Export(ctx context.Context, run Run, res *analysis.Result) (Report, error) {
	var report Report
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return report, fmt.Errorf("create output directory: %w", err)
	}
	doc := NewDocument(res)

	var digests map[int]string
	if e.formats.Manifest {
		paths := make([]string, len(res.Records))
		indices := make([]int, len(res.Records))
		for i, rec := range res.Records {
			paths[i] = rec.OpenPath()
			indices[i] = rec.Index
		}
		entries, err := BuildManifest(ctx, paths, e.concurrency)
		if err != nil {
			return report, fmt.Errorf("build manifest: %w", err)
		}
		for _, entry := range entries {
			if entry.Err != nil {
				logging.WarnWithContext(e.logger, "hash failed", "manifest_hash_failed",
					logging.String(logging.FieldSourcePath, entry.Path),
					logging.Error(entry.Err),
					logging.String(logging.FieldErrorHint, "check the file is readable and unchanged"),
					logging.String(logging.FieldImpact, "manifest row has no digest"),
				)
			}
		}
		report.Manifest = entries
		digests = Digests(indices, entries)
		if err := e.write(&report, ManifestFile, func(w io.Writer) error {
			return WriteManifestCSV(w, run.ID, entries)
		}); err != nil {
			return report, err
		}
	}

	if e.formats.CSV {
		writers := []struct {
			name  string
			write func(io.Writer, Document) error
		}{
			{TimelineCSVFile, WriteTimelineCSV},
			{PairsCSVFile, WritePairsCSV},
			{MovementCSVFile, WriteMovementCSV},
			{GapsCSVFile, WriteGapsCSV},
			{AuditCSVFile, WriteAuditCSV},
		}
		for _, wr := range writers {
			if err := e.write(&report, wr.name, func(w io.Writer) error { return wr.write(w, doc) }); err != nil {
				return report, err
			}
		}
	}
	if e.formats.GeoJSON {
		if err := e.write(&report, GeoJSONFile, func(w io.Writer) error { return WriteGeoJSON(w, doc) }); err != nil {
			return report, err
		}
	}
	if e.formats.KML {
		if err := e.write(&report, KMLFile, func(w io.Writer) error { return WriteKML(w, doc) }); err != nil {
			return report, err
		}
	}
	if e.formats.Monthly {
		if err := e.writeMonthly(&report, doc); err != nil {
			return report, err
		}
	}
	if e.formats.JSON {
		if err := e.write(&report, JSONFile, func(w io.Writer) error { return WriteJSON(w, doc) }); err != nil {
			return report, err
		}
	}
	if e.formats.SQLite {
		path := filepath.Join(e.dir, DatabaseFile)
		db, err := OpenDatabase(ctx, path)
		if err != nil {
			return report, err
		}
		writeErr := db.WriteRun(ctx, run, doc, digests)
		closeErr := db.Close()
		if writeErr != nil {
			return report, fmt.Errorf("write %s: %w", DatabaseFile, writeErr)
		}
		if closeErr != nil {
			return report, fmt.Errorf("close %s: %w", DatabaseFile, closeErr)
		}
		report.Files = append(report.Files, path)
		e.logger.Debug("artifact written", logging.String("path", path))
	}

	e.logger.Info("export complete",
		logging.String(logging.FieldEventType, "export_complete"),
		logging.Int("artifacts", len(report.Files)),
		logging.String("output_dir", e.dir),
	)
	return report, nil
}

// writeMonthly replaces the monthly directory so months from earlier runs do
// not linger next to the current ones.
func (e *Exporter) writeMonthly(report *Report, doc Document) error {
	if err := os.RemoveAll(filepath.Join(e.dir, MonthlyDir)); err != nil {
		return fmt.Errorf("clear %s: %w", MonthlyDir, err)
	}
	for _, bucket := range monthlyBuckets(doc) {
		if err := e.write(report, monthlyFileName(bucket.key), func(w io.Writer) error {
			return writeMonthlyCSV(w, bucket.rows)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) write(report *Report, name string, write func(io.Writer) error) error {
	path := filepath.Join(e.dir, name)
	if err := fileutil.WriteAtomic(path, fileMode, write); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	report.Files = append(report.Files, path)
	e.logger.Debug("artifact written", logging.String("path", path))
	return nil
}

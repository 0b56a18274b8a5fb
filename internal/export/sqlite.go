package export

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
// Existing databases with another version must be moved aside.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Run identifies one analysis run inside the evidence database.
type Run struct {
	ID        string
	StartedAt time.Time
	Input     string
}

// Database is the SQLite evidence database. Every run is written in a single
// transaction under its own run_id, so one file can hold several runs.
type Database struct {
	db   *sql.DB
	path string
}

// OpenDatabase creates or opens the evidence database at path.
func OpenDatabase(ctx context.Context, path string) (*Database, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Database{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (d *Database) Path() string { return d.path }

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *Database) initSchema(ctx context.Context) error {
	var tableExists int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return d.createSchema(ctx)
	}

	var version int
	if err := d.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (move %s aside)",
			ErrSchemaMismatch, version, schemaVersion, d.path)
	}
	return nil
}

func (d *Database) createSchema(ctx context.Context) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// WriteRun stores a document under run.ID. Digests, keyed by record index,
// fill the sha256 column when a manifest was computed.
func (d *Database) WriteRun(ctx context.Context, run Run, doc Document, digests map[int]string) error {
	settings, err := json.Marshal(doc.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	summary, err := json.Marshal(doc.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, input, mode, settings_json, summary_json)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Input, doc.Settings.Mode,
		string(settings), string(summary),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, rec := range doc.Records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO evidence (
                run_id, record_index, path, sha256, tz_status, dt_utc, dt_local, tz_offset,
                time_source, tag, datetime_raw, time_confidence, justification, timezone_assumed,
                make, model, filetype, mimetype, lat, lon, alt, maps_url
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, rec.Index, rec.SourcePath, nullString(digests[rec.Index]), rec.Status,
			nullString(rec.InstantUTC), nullString(rec.Local), nullString(rec.Offset),
			nullString(rec.Source), nullString(rec.Tag), nullString(rec.Raw), nullString(rec.Confidence),
			rec.Justification, boolInt(len(rec.AssumptionFlags) > 0),
			nullString(rec.Make), nullString(rec.Model), nullString(rec.FileType), nullString(rec.MIMEType),
			nullFloat(rec.Latitude), nullFloat(rec.Longitude), nullString(rec.Altitude), nullString(rec.MapsURL),
		); err != nil {
			return fmt.Errorf("insert evidence %d: %w", rec.Index, err)
		}
	}

	for _, ev := range doc.Events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (
                run_id, position, record_index, dt_utc, elapsed_seconds, distance_m,
                tie, mixed_confidence, review
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, ev.Position, ev.Index, ev.InstantUTC, ev.ElapsedSeconds, nullFloat(ev.DistanceMeters),
			boolInt(ev.Tie), boolInt(ev.MixedConfidence), nullString(strings.Join(ev.Review, ";")),
		); err != nil {
			return fmt.Errorf("insert event %d: %w", ev.Position, err)
		}
	}

	for _, pair := range doc.Pairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pairs (
                run_id, from_position, to_position, elapsed_seconds, distance_m, speed_kmh,
                movement, gap, mixed_confidence, excluded, exclusion_reason
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, pair.From, pair.To, pair.ElapsedSeconds, nullFloat(pair.DistanceMeters), nullFloat(pair.SpeedKMH),
			nullString(pair.Movement), nullString(pair.Gap), boolInt(pair.MixedConfidence),
			boolInt(pair.Excluded), nullString(pair.ExclusionReason),
		); err != nil {
			return fmt.Errorf("insert pair %d: %w", pair.From, err)
		}
	}

	for seq, seg := range doc.Segments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO segments (
                run_id, seq, movement, start_position, end_position, start_utc, end_utc,
                pair_count, distance_m, duration_seconds, average_speed_kmh, mixed_confidence, review
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, seq, seg.Movement, seg.StartEvent, seg.EndEvent, seg.StartUTC, seg.EndUTC,
			seg.Pairs, seg.DistanceMeters, seg.DurationSeconds, nullFloat(seg.AverageSpeedKMH),
			boolInt(seg.MixedConfidence), boolInt(seg.Review),
		); err != nil {
			return fmt.Errorf("insert segment %d: %w", seq, err)
		}
	}

	for _, gap := range doc.Gaps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gaps (
                run_id, from_position, to_position, class, start_utc, end_utc,
                duration_seconds, mixed_confidence
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, gap.From, gap.To, gap.Class, gap.StartUTC, gap.EndUTC,
			gap.DurationSeconds, boolInt(gap.MixedConfidence),
		); err != nil {
			return fmt.Errorf("insert gap %d: %w", gap.From, err)
		}
	}

	for _, audit := range doc.Audit {
		for _, entry := range audit.Entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO audit (run_id, record_index, path, kind, message) VALUES (?, ?, ?, ?, ?)`,
				run.ID, audit.Index, audit.SourcePath, string(entry.Kind), entry.Message,
			); err != nil {
				return fmt.Errorf("insert audit %d: %w", audit.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

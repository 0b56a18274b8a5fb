package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output and log directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Analysis contains the mode policy and movement thresholds.
type Analysis struct {
	// CourtMode disables every assumption path; records that would need a
	// guess are excluded instead.
	CourtMode bool `toml:"court_mode"`
	// DefaultTimezoneOffset is applied to naive timestamps outside court mode,
	// e.g. "+02:00". Empty means no default.
	DefaultTimezoneOffset string `toml:"default_timezone_offset"`
	// PriorRecordInference borrows the explicit offset of the nearest earlier
	// record. Ignored in court mode.
	PriorRecordInference bool `toml:"prior_record_inference"`
	// RequireComplete fails a court mode run when any record lacks an
	// attributable timezone.
	RequireComplete    bool    `toml:"require_complete"`
	StopDistanceMeters float64 `toml:"stop_distance_meters"`
	JumpSpeedKMH       float64 `toml:"jump_speed_kmh"`
	// NormalizeTimeoutSeconds bounds the whole normalization pool; records
	// still pending afterwards are reported unresolved.
	NormalizeTimeoutSeconds int `toml:"normalize_timeout_seconds"`
}

// Gaps contains the gap severity thresholds in seconds.
type Gaps struct {
	GapSeconds         int `toml:"gap_seconds"`
	MajorGapSeconds    int `toml:"major_gap_seconds"`
	CriticalGapSeconds int `toml:"critical_gap_seconds"`
}

// Review contains thresholds for review markers that never alter the timeline.
type Review struct {
	FSInversionToleranceSeconds int     `toml:"fs_inversion_tolerance_seconds"`
	DuplicateDistanceMeters     float64 `toml:"duplicate_distance_meters"`
	DuplicateWindowSeconds      int     `toml:"duplicate_window_seconds"`
}

// Extractor contains exiftool invocation settings.
type Extractor struct {
	ExiftoolBinary string `toml:"exiftool_binary"`
	BatchSize      int    `toml:"batch_size"`
	// Concurrency bounds both extractor batches and normalization workers.
	// Zero selects the number of CPUs.
	Concurrency    int `toml:"concurrency"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Export selects which result artifacts are written. Monthly splits the
// records into one CSV per local calendar month.
type Export struct {
	CSV      bool `toml:"csv"`
	SQLite   bool `toml:"sqlite"`
	GeoJSON  bool `toml:"geojson"`
	JSON     bool `toml:"json"`
	KML      bool `toml:"kml"`
	Monthly  bool `toml:"monthly"`
	Manifest bool `toml:"manifest"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for geotimeline.
//
// Configuration sections by subsystem:
//   - Paths: output and log directories
//   - Analysis: court mode, timezone defaults, movement thresholds
//   - Gaps: gap severity thresholds
//   - Review: review marker tolerances
//   - Extractor: exiftool batching and concurrency
//   - Export: result artifacts
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Analysis  Analysis  `toml:"analysis"`
	Gaps      Gaps      `toml:"gaps"`
	Review    Review    `toml:"review"`
	Extractor Extractor `toml:"extractor"`
	Export    Export    `toml:"export"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. It returns the
// config with paths expanded, the resolved file path, and whether that file
// existed. A missing file is not an error; defaults are used.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// resolveConfigPath honours an explicit path even when the file is absent.
// Otherwise the user config directory wins over ./geotimeline.toml, and the
// user location is reported when neither exists.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	userPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("geotimeline.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExiftoolBinary returns the exiftool executable name.
func (c *Config) ExiftoolBinary() string {
	if bin := strings.TrimSpace(c.Extractor.ExiftoolBinary); bin != "" {
		return bin
	}
	return defaultExiftoolBinary
}

// Marshal renders the effective configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

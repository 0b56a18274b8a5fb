package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"geotimeline/internal/config"
)

// ConfigOption customizes a config built by NewConfig.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns the default config with output and log directories under
// a fresh temp dir, then applies opts in order.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Extractor.Concurrency = 2

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

func WithCourtMode(enabled bool) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Analysis.CourtMode = enabled
	}
}

func WithDefaultOffset(offset string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Analysis.DefaultTimezoneOffset = offset
	}
}

// WithManifest enables the SHA256 manifest export.
func WithManifest() ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Export.Manifest = true
	}
}

// WithStubbedBinaries places no-op executables named names (exiftool when
// empty) in base/bin and prepends that directory to PATH for the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, base string, _ *config.Config) {
		if len(names) == 0 {
			names = []string{"exiftool"}
		}
		binDir := filepath.Join(base, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the temp directory behind a config from NewConfig.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}

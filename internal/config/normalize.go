package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAnalysis()
	c.normalizeExtractor()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.DefaultTimezoneOffset = strings.TrimSpace(c.Analysis.DefaultTimezoneOffset)
	if c.Analysis.DefaultTimezoneOffset == "" {
		if value, ok := os.LookupEnv("GEOTIMELINE_DEFAULT_TZ"); ok {
			c.Analysis.DefaultTimezoneOffset = strings.TrimSpace(value)
		}
	}
	if c.Analysis.NormalizeTimeoutSeconds == 0 {
		c.Analysis.NormalizeTimeoutSeconds = defaultNormalizeTimeoutSeconds
	}
}

func (c *Config) normalizeExtractor() {
	c.Extractor.ExiftoolBinary = strings.TrimSpace(c.Extractor.ExiftoolBinary)
	if c.Extractor.ExiftoolBinary == "" {
		c.Extractor.ExiftoolBinary = defaultExiftoolBinary
	}
	if c.Extractor.BatchSize <= 0 {
		c.Extractor.BatchSize = defaultBatchSize
	}
	if c.Extractor.Concurrency < 0 {
		c.Extractor.Concurrency = 0
	}
	if c.Extractor.TimeoutSeconds <= 0 {
		c.Extractor.TimeoutSeconds = defaultExtractorTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

package config

import (
	"errors"
	"fmt"

	"geotimeline/internal/evidence"
)

// Validate ensures the configuration is usable. Gap ordering is checked by the
// analysis policy so that misordered thresholds surface as a threshold
// misconfiguration regardless of where the values came from.
func (c *Config) Validate() error {
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateGaps(); err != nil {
		return err
	}
	if err := c.validateReview(); err != nil {
		return err
	}
	if err := c.validateExtractor(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.DefaultTimezoneOffset != "" {
		if _, err := evidence.ParseOffset(c.Analysis.DefaultTimezoneOffset); err != nil {
			return fmt.Errorf("analysis.default_timezone_offset: %w", err)
		}
	}
	if c.Analysis.StopDistanceMeters < 0 {
		return errors.New("analysis.stop_distance_meters must be >= 0")
	}
	if c.Analysis.JumpSpeedKMH <= 0 {
		return errors.New("analysis.jump_speed_kmh must be positive")
	}
	if c.Analysis.NormalizeTimeoutSeconds <= 0 {
		return errors.New("analysis.normalize_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateGaps() error {
	return ensurePositive([]namedValue{
		{"gaps.gap_seconds", c.Gaps.GapSeconds},
		{"gaps.major_gap_seconds", c.Gaps.MajorGapSeconds},
		{"gaps.critical_gap_seconds", c.Gaps.CriticalGapSeconds},
	})
}

func (c *Config) validateReview() error {
	if c.Review.FSInversionToleranceSeconds < 0 {
		return errors.New("review.fs_inversion_tolerance_seconds must be >= 0")
	}
	if c.Review.DuplicateDistanceMeters < 0 {
		return errors.New("review.duplicate_distance_meters must be >= 0")
	}
	if c.Review.DuplicateWindowSeconds < 0 {
		return errors.New("review.duplicate_window_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateExtractor() error {
	return ensurePositive([]namedValue{
		{"extractor.batch_size", c.Extractor.BatchSize},
		{"extractor.timeout_seconds", c.Extractor.TimeoutSeconds},
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

type namedValue struct {
	key   string
	value int
}

func ensurePositive(values []namedValue) error {
	for _, v := range values {
		if v.value <= 0 {
			return fmt.Errorf("%s must be positive", v.key)
		}
	}
	return nil
}

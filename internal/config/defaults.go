package config

const (
	defaultConfigPath                  = "~/.config/geotimeline/config.toml"
	defaultOutputDir                   = "./geotimeline-out"
	defaultLogDir                      = "~/.local/share/geotimeline/logs"
	defaultStopDistanceMeters          = 50.0
	defaultJumpSpeedKMH                = 180.0
	defaultNormalizeTimeoutSeconds     = 600
	defaultGapSeconds                  = 30 * 60
	defaultMajorGapSeconds             = 6 * 60 * 60
	defaultCriticalGapSeconds          = 24 * 60 * 60
	defaultFSInversionToleranceSeconds = 60 * 60
	defaultDuplicateDistanceMeters     = 5.0
	defaultDuplicateWindowSeconds      = 10
	defaultExiftoolBinary              = "exiftool"
	defaultBatchSize                   = 50
	defaultExtractorTimeoutSeconds     = 600
	defaultLogFormat                   = "console"
	defaultLogLevel                    = "info"
)

// DefaultExtractorBatchSize is the number of files passed to one exiftool run.
const DefaultExtractorBatchSize = defaultBatchSize

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Analysis: Analysis{
			StopDistanceMeters:      defaultStopDistanceMeters,
			JumpSpeedKMH:            defaultJumpSpeedKMH,
			NormalizeTimeoutSeconds: defaultNormalizeTimeoutSeconds,
		},
		Gaps: Gaps{
			GapSeconds:         defaultGapSeconds,
			MajorGapSeconds:    defaultMajorGapSeconds,
			CriticalGapSeconds: defaultCriticalGapSeconds,
		},
		Review: Review{
			FSInversionToleranceSeconds: defaultFSInversionToleranceSeconds,
			DuplicateDistanceMeters:     defaultDuplicateDistanceMeters,
			DuplicateWindowSeconds:      defaultDuplicateWindowSeconds,
		},
		Extractor: Extractor{
			ExiftoolBinary: defaultExiftoolBinary,
			BatchSize:      defaultBatchSize,
			TimeoutSeconds: defaultExtractorTimeoutSeconds,
		},
		Export: Export{
			CSV:     true,
			SQLite:  true,
			GeoJSON: true,
			JSON:    true,
			KML:     true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

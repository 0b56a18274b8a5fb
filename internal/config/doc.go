// Package config loads, normalizes, and validates geotimeline configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the GEOTIMELINE_DEFAULT_TZ
// environment fallback for the default timezone offset. The Config type holds
// every knob the CLI and the analysis core need; the analysis packages never
// read it directly but receive an immutable policy built from it.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors that
// name the offending TOML key.
package config

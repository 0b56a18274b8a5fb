// Package export writes an analysis result to disk: CSV reports, GeoJSON, a
// JSON document, a SQLite evidence database, and an optional SHA256 manifest
// of the input files.
//
// All report formats are rendered from one Document so they never disagree.
// Files are written atomically; a failed export leaves earlier reports intact.
package export

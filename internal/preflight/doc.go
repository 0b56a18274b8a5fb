// Package preflight provides readiness checks for the external binary and
// filesystem paths that geotimeline depends on.
//
// The analyze command runs RunAll before extraction so a missing exiftool or
// an unwritable output directory fails fast instead of after a long scan.
// The check command prints the same results as a table.
package preflight

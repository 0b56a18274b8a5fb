// Package main hosts the geotimeline CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration once, runs preflight
// checks, drives extraction and analysis, and writes reports. Subcommands stay
// thin: the analysis itself lives in the internal packages.
package main

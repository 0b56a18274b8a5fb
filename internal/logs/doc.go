// Package logs reads back the geotimeline log file.
//
// Every run logs its run_id, so the lines of one analysis can be pulled out of
// a shared log with bounded memory, regardless of whether the log was written
// in console or JSON format.
package logs

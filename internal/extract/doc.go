// Package extract reads capture metadata from media files with exiftool and
// converts it into evidence bags.
//
// Key entry points:
//   - Discover: walks a directory for supported photo and video files
//   - Inspect: executes exiftool for one batch and returns the decoded entries
//   - Extractor.Extract: batches paths across a bounded set of exiftool runs
//   - DecodeEntries: reads previously saved exiftool -json output
//
// Bags are returned in input order; a failing batch or file is recorded on
// the bag rather than aborting the run.
package extract

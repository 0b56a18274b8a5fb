package export

import (
	"context"
	"io"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"geotimeline/internal/fileutil"
)

// ManifestEntry is the content hash of one input file. Err is set when the
// file could not be hashed; the entry is still listed.
type ManifestEntry struct {
	fileutil.Digest
	Err error
}

var manifestHeader = []string{"run_id", "path", "sha256", "size_bytes", "mtime_utc", "error"}

// BuildManifest hashes every path with at most concurrency files in flight.
// Entries keep the order of paths.
func BuildManifest(ctx context.Context, paths []string, concurrency int) ([]ManifestEntry, error) {
	entries := make([]ManifestEntry, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			digest, err := fileutil.HashFile(path)
			if err != nil {
				entries[i] = ManifestEntry{Digest: fileutil.Digest{Path: path}, Err: err}
				return nil
			}
			entries[i] = ManifestEntry{Digest: digest}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Digests maps record indices to the SHA256 of entries that hashed cleanly.
// indices[i] is the record index entries[i] was built for.
func Digests(indices []int, entries []ManifestEntry) map[int]string {
	out := make(map[int]string, len(entries))
	for i, entry := range entries {
		if entry.Err == nil && i < len(indices) {
			out[indices[i]] = entry.SHA256
		}
	}
	return out
}

// WriteManifestCSV writes the manifest tagged with the run that produced it.
func WriteManifestCSV(w io.Writer, runID string, entries []ManifestEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		row := []string{runID, entry.Path, entry.SHA256, "", "", ""}
		if entry.Err != nil {
			row[5] = entry.Err.Error()
		} else {
			row[3] = strconv.FormatInt(entry.Size, 10)
			row[4] = entry.ModTime.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return writeCSV(w, manifestHeader, rows)
}

package logs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// TailOptions selects which lines Tail returns.
type TailOptions struct {
	// Limit caps the result to the last Limit matching lines; zero or less
	// returns every matching line.
	Limit int
	// RunID keeps only lines logged by that run.
	RunID string
}

// Tail returns the last matching lines of the log at path. A missing file
// yields no lines and no error.
func Tail(path string, opts TailOptions) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("log path %q is a directory", path)
	}

	runID := strings.TrimSpace(opts.RunID)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		ring  []string
		count int
		idx   int
	)
	if opts.Limit > 0 {
		ring = make([]string, opts.Limit)
	}
	var all []string
	for scanner.Scan() {
		line := scanner.Text()
		if runID != "" && !strings.Contains(line, runID) {
			continue
		}
		if ring == nil {
			all = append(all, line)
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % len(ring)
		if count < len(ring) {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}
	if ring == nil {
		return all, nil
	}

	lines := make([]string, count)
	if count == len(ring) {
		for i := range count {
			lines[i] = ring[(idx+i)%len(ring)]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

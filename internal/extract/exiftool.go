package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Tags lists the exiftool tags requested for every file. Values are requested
// in numeric form (-n) so coordinates arrive as signed decimals.
var Tags = []string{
	"GPSLatitude", "GPSLongitude", "GPSAltitude",
	"GPSDateTime", "GPSDateStamp", "GPSTimeStamp",
	"DateTimeOriginal", "OffsetTimeOriginal", "OffsetTime", "TimeZone", "TimeZoneOffset",
	"MediaCreateDate", "TrackCreateDate", "CreateDate",
	"FileModifyDate",
	"Make", "Model", "FileType", "MIMEType",
}

// Entry is one file's object from exiftool -json output.
type Entry map[string]any

// SourceFile returns the path exiftool reported for the entry.
func (e Entry) SourceFile() string {
	return e.String("SourceFile")
}

// String renders a tag value as text. Numbers keep their shortest exact form.
func (e Entry) String(tag string) string {
	value, ok := e[tag]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return formatFloat(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Has reports whether the tag is present with a non-empty value.
func (e Entry) Has(tag string) bool {
	return e.String(tag) != ""
}

// Inspect runs exiftool for one batch of paths and decodes its JSON output.
// exiftool exits non-zero when any file in the batch fails but still reports
// the others, so decodable output is returned together with the exit error.
func Inspect(ctx context.Context, binary string, paths []string) ([]Entry, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "exiftool"
	}
	if len(paths) == 0 {
		return nil, errors.New("exiftool inspect: no paths")
	}

	args := []string{"-n", "-json", "-q"}
	for _, tag := range Tags {
		args = append(args, "-"+tag)
	}
	for _, path := range paths {
		args = append(args, safeArg(path))
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	if len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		if runErr != nil {
			return nil, fmt.Errorf("exiftool inspect: %w: %s", runErr, strings.TrimSpace(stderr.String()))
		}
		return nil, nil
	}
	entries, err := DecodeEntries(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("exiftool parse: %w", err)
	}
	if runErr != nil {
		return entries, fmt.Errorf("exiftool inspect: %w: %s", runErr, strings.TrimSpace(stderr.String()))
	}
	return entries, nil
}

// DecodeEntries parses exiftool -json output.
func DecodeEntries(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var entries []Entry
	if err := dec.Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// safeArg keeps a relative path that starts with a dash from being read as
// an exiftool option.
func safeArg(path string) string {
	if strings.HasPrefix(path, "-") {
		return "./" + path
	}
	return path
}

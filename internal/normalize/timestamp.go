package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"geotimeline/internal/evidence"
)

// Layouts accepted for the civil part of a timestamp. Fractional seconds are
// accepted by time.Parse without being spelled out.
var civilLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006:01:02T15:04:05",
}

// civilLength is len("2006:01:02 15:04:05").
const civilLength = 19

type parsedTimestamp struct {
	civil       time.Time
	offset      int
	hasOffset   bool
	epochSource bool
	// millis is set when an epoch value was read as milliseconds.
	millis bool
}

var (
	errEmptyValue = errors.New("empty value")
	errZeroDate   = errors.New("zero date")
)

func parseTimestamp(raw string) (parsedTimestamp, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return parsedTimestamp{}, errEmptyValue
	}
	civilPart, suffix := splitOffset(value)
	civil, err := parseCivil(civilPart)
	if err != nil {
		return parsedTimestamp{}, err
	}
	if suffix == "" {
		return parsedTimestamp{civil: civil}, nil
	}
	offset, err := evidence.ParseOffset(suffix)
	if err != nil {
		return parsedTimestamp{}, fmt.Errorf("offset suffix: %w", err)
	}
	return parsedTimestamp{civil: civil, offset: offset, hasOffset: true}, nil
}

func splitOffset(value string) (string, string) {
	if len(value) <= civilLength {
		return value, ""
	}
	i := civilLength
	if value[i] == '.' || value[i] == ',' {
		i++
		for i < len(value) && value[i] >= '0' && value[i] <= '9' {
			i++
		}
	}
	return value[:i], strings.TrimSpace(value[i:])
}

func parseCivil(value string) (time.Time, error) {
	if isZeroDate(value) {
		return time.Time{}, errZeroDate
	}
	value = strings.Replace(value, ",", ".", 1)
	var firstErr error
	for _, layout := range civilLayouts {
		t, err := time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q: %w", value, firstErr)
}

func isZeroDate(value string) bool {
	if len(value) < 10 {
		return false
	}
	for _, r := range value[:10] {
		if r != '0' && r != ':' && r != '-' {
			return false
		}
	}
	return true
}

// parseEpoch reads a numeric Unix timestamp in seconds, or milliseconds when
// the magnitude only makes sense that way.
func parseEpoch(raw string) (parsedTimestamp, bool, error) {
	value := strings.TrimSpace(raw)
	if value == "" || !isNumeric(value) {
		return parsedTimestamp{}, false, nil
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return parsedTimestamp{}, true, err
	}
	if secs <= 0 {
		return parsedTimestamp{}, true, errZeroDate
	}
	millis := secs > 1e11
	if millis {
		secs /= 1000
	}
	whole, frac := math.Modf(secs)
	t := time.Unix(int64(whole), int64(frac*1e9)).UTC()
	return parsedTimestamp{civil: t, hasOffset: true, epochSource: true, millis: millis}, true, nil
}

func isNumeric(value string) bool {
	dot := false
	for i, r := range value {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot && i > 0:
			dot = true
		default:
			return false
		}
	}
	return true
}

// parseOffsetTag reads an EXIF offset tag. TimeZoneOffset is reported as a
// bare hour count for DateTimeOriginal, optionally followed by a second value
// for ModifyDate. Everything else is a signed offset string.
func parseOffsetTag(tag, raw string) (int, error) {
	if baseTag(tag) == "TimeZoneOffset" {
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			return 0, errEmptyValue
		}
		hours, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, fmt.Errorf("timezone offset hours %q: %w", raw, err)
		}
		if hours < -14 || hours > 14 {
			return 0, fmt.Errorf("timezone offset hours %d out of range", hours)
		}
		return hours * 3600, nil
	}
	return evidence.ParseOffset(raw)
}

// baseTag strips an extractor group prefix such as "QuickTime:".
func baseTag(tag string) string {
	if idx := strings.LastIndex(tag, ":"); idx >= 0 {
		return tag[idx+1:]
	}
	return tag
}

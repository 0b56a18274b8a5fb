package evidence

import (
	"fmt"
	"strconv"
	"strings"
)

// maxOffsetSeconds bounds accepted UTC offsets (UTC-14:00 .. UTC+14:00).
const maxOffsetSeconds = 14 * 3600

// ParseOffset parses a fixed UTC offset such as "+02:00", "+0200", "-05",
// "Z", "UTC" or "UTC+5:30" into seconds east of UTC. Zone names are rejected:
// only explicit offsets are attributable.
func ParseOffset(value string) (int, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 0, fmt.Errorf("offset: empty value")
	}
	upper := strings.ToUpper(raw)
	switch upper {
	case "Z", "UTC", "GMT", "+00:00", "-00:00":
		return 0, nil
	}
	upper = strings.TrimPrefix(upper, "UTC")
	upper = strings.TrimPrefix(upper, "GMT")
	if upper == "" {
		return 0, nil
	}

	sign := 1
	switch upper[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("offset %q: missing sign", raw)
	}
	body := upper[1:]

	var hoursPart, minutesPart string
	switch {
	case strings.Contains(body, ":"):
		parts := strings.SplitN(body, ":", 2)
		hoursPart, minutesPart = parts[0], parts[1]
	case len(body) == 4:
		hoursPart, minutesPart = body[:2], body[2:]
	default:
		hoursPart = body
	}

	if !isDigits(hoursPart) || len(hoursPart) > 2 {
		return 0, fmt.Errorf("offset %q: invalid hours", raw)
	}
	hours, err := strconv.Atoi(hoursPart)
	if err != nil {
		return 0, fmt.Errorf("offset %q: invalid hours", raw)
	}
	minutes := 0
	if minutesPart != "" {
		if !isDigits(minutesPart) || len(minutesPart) != 2 {
			return 0, fmt.Errorf("offset %q: invalid minutes", raw)
		}
		minutes, err = strconv.Atoi(minutesPart)
		if err != nil || minutes >= 60 {
			return 0, fmt.Errorf("offset %q: invalid minutes", raw)
		}
	}
	seconds := sign * (hours*3600 + minutes*60)
	if seconds > maxOffsetSeconds || seconds < -maxOffsetSeconds {
		return 0, fmt.Errorf("offset %q: out of range", raw)
	}
	return seconds, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatOffset renders seconds east of UTC as "+HH:MM".
func FormatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

// OffsetLabel renders an offset the way audit flags quote it, e.g. "UTC+02:00".
func OffsetLabel(seconds int) string {
	return "UTC" + FormatOffset(seconds)
}

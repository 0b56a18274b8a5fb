package evidence

import (
	"encoding/json"
	"time"
)

// TimezoneStatus describes how much is known about a resolved instant's offset.
type TimezoneStatus int

const (
	StatusUnresolved TimezoneStatus = iota
	StatusKnown
	StatusAssumed
)

func (s TimezoneStatus) String() string {
	switch s {
	case StatusKnown:
		return "KNOWN"
	case StatusAssumed:
		return "ASSUMED"
	default:
		return "UNRESOLVED"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s TimezoneStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ResolvedInstant is the single absolute capture time chosen for a record,
// tagged with its timezone status and the justification for it. The zero
// value is unresolved.
type ResolvedInstant struct {
	at            time.Time
	offset        int
	status        TimezoneStatus
	source        SourceKind
	justification string
}

// Known builds an instant whose offset came from an attributable source.
func Known(at time.Time, offsetSeconds int, source SourceKind, justification string) ResolvedInstant {
	return ResolvedInstant{
		at:            at.UTC(),
		offset:        offsetSeconds,
		status:        StatusKnown,
		source:        source,
		justification: justification,
	}
}

// Assumed builds an instant whose offset was supplied by a named assumption.
func Assumed(at time.Time, offsetSeconds int, source SourceKind, justification string) ResolvedInstant {
	return ResolvedInstant{
		at:            at.UTC(),
		offset:        offsetSeconds,
		status:        StatusAssumed,
		source:        source,
		justification: justification,
	}
}

// Unresolved builds an instant that carries no time, only the reason why.
func Unresolved(reason string) ResolvedInstant {
	return ResolvedInstant{status: StatusUnresolved, justification: reason}
}

// Status reports the timezone status.
func (r ResolvedInstant) Status() TimezoneStatus { return r.status }

// IsResolved reports whether the record carries an instant at all.
func (r ResolvedInstant) IsResolved() bool { return r.status != StatusUnresolved }

// Instant returns the UTC instant together with its status. Unresolved
// instants return the zero time.
func (r ResolvedInstant) Instant() (time.Time, TimezoneStatus) {
	if r.status == StatusUnresolved {
		return time.Time{}, StatusUnresolved
	}
	return r.at, r.status
}

// KnownInstant returns the instant only when its offset is known.
func (r ResolvedInstant) KnownInstant() (time.Time, bool) {
	if r.status != StatusKnown {
		return time.Time{}, false
	}
	return r.at, true
}

// Local returns the instant in the fixed zone it was resolved with.
func (r ResolvedInstant) Local() (time.Time, bool) {
	if r.status == StatusUnresolved {
		return time.Time{}, false
	}
	return r.at.In(time.FixedZone(FormatOffset(r.offset), r.offset)), true
}

// Offset returns the offset in seconds east of UTC used to resolve the instant.
func (r ResolvedInstant) Offset() int { return r.offset }

// Source returns the candidate kind the instant was derived from.
func (r ResolvedInstant) Source() SourceKind { return r.source }

// Justification explains the status.
func (r ResolvedInstant) Justification() string { return r.justification }

type instantJSON struct {
	Status        TimezoneStatus `json:"status"`
	UTC           string         `json:"utc,omitempty"`
	Local         string         `json:"local,omitempty"`
	Offset        string         `json:"offset,omitempty"`
	Source        SourceKind     `json:"source,omitempty"`
	Justification string         `json:"justification,omitempty"`
}

// MarshalJSON renders the instant with its status so exporters never see a
// bare timestamp.
func (r ResolvedInstant) MarshalJSON() ([]byte, error) {
	out := instantJSON{Status: r.status, Justification: r.justification}
	if r.IsResolved() {
		out.UTC = r.at.Format(time.RFC3339Nano)
		local, _ := r.Local()
		out.Local = local.Format(time.RFC3339Nano)
		out.Offset = FormatOffset(r.offset)
		out.Source = r.source
	}
	return json.Marshal(out)
}

package evidence

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// SourceKind names where a candidate timestamp came from. Declaration order is
// resolution priority.
type SourceKind string

const (
	SourceGPS          SourceKind = "GPS"
	SourceEXIFOriginal SourceKind = "EXIF_ORIGINAL"
	SourceMediaCreate  SourceKind = "MEDIA_CREATE"
)

// Priority returns the rank of the source kind; lower ranks win.
func (k SourceKind) Priority() int {
	switch k {
	case SourceGPS:
		return 0
	case SourceEXIFOriginal:
		return 1
	case SourceMediaCreate:
		return 2
	default:
		return 3
	}
}

// Confidence is the coarse trust level attached to a candidate's source tag.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Candidate is one timestamp recovered for a file.
type Candidate struct {
	Kind              SourceKind `json:"kind"`
	Tag               string     `json:"tag"`
	Raw               string     `json:"raw"`
	HasExplicitOffset bool       `json:"has_explicit_offset"`
	Confidence        Confidence `json:"confidence"`
	Parsed            bool       `json:"parsed"`
	ParseError        string     `json:"parse_error,omitempty"`

	// Civil is the wall-clock reading with no zone meaning attached; it is
	// stored in time.UTC purely as a container.
	Civil time.Time `json:"-"`
	// OffsetSeconds is meaningful only when HasExplicitOffset is set.
	OffsetSeconds int `json:"offset_seconds,omitempty"`
}

// Instant returns the absolute time for candidates with an explicit offset.
func (c Candidate) Instant() (time.Time, bool) {
	if !c.Parsed || !c.HasExplicitOffset {
		return time.Time{}, false
	}
	return c.Civil.Add(-time.Duration(c.OffsetSeconds) * time.Second).UTC(), true
}

// WithOffset interprets the civil reading in a fixed offset.
func (c Candidate) WithOffset(offsetSeconds int) time.Time {
	return c.Civil.Add(-time.Duration(offsetSeconds) * time.Second).UTC()
}

// Coordinates is a validated latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// NewCoordinates validates the ranges and returns nil-safe coordinates.
func NewCoordinates(lat, lon float64) (*Coordinates, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return nil, fmt.Errorf("coordinates %v,%v are not finite", lat, lon)
	}
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("latitude %v out of range", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("longitude %v out of range", lon)
	}
	return &Coordinates{Latitude: lat, Longitude: lon}, nil
}

// MediaRecord holds one physical file's resolved facts.
type MediaRecord struct {
	Index int `json:"index"`
	// SourcePath is the NFC form used for ordering and reports.
	SourcePath string `json:"source_path"`
	// DiskPath is the path exactly as the extractor reported it, which is
	// the one that opens the file.
	DiskPath   string      `json:"disk_path"`
	Candidates []Candidate `json:"candidates"`
	// Basis indexes Candidates; -1 when no candidate parsed.
	Basis           int             `json:"basis"`
	Resolved        ResolvedInstant `json:"resolved"`
	Coordinates     *Coordinates    `json:"coordinates,omitempty"`
	AssumptionFlags []string        `json:"assumption_flags,omitempty"`
	Notes           []AuditEntry    `json:"notes,omitempty"`
	ModTime         time.Time       `json:"mod_time"`
	Info            FileInfo        `json:"info"`
}

// BasisCandidate returns the candidate chosen as the resolution basis.
func (r MediaRecord) BasisCandidate() (Candidate, bool) {
	if r.Basis < 0 || r.Basis >= len(r.Candidates) {
		return Candidate{}, false
	}
	return r.Candidates[r.Basis], true
}

// OpenPath returns the path to use when reading the file itself.
func (r MediaRecord) OpenPath() string {
	if r.DiskPath != "" {
		return r.DiskPath
	}
	return r.SourcePath
}

// HasModTime reports whether filesystem ordering metadata was supplied.
func (r MediaRecord) HasModTime() bool { return !r.ModTime.IsZero() }

// Clone returns a deep copy so later stages never share slices with earlier ones.
func (r MediaRecord) Clone() MediaRecord {
	out := r
	out.Candidates = slices.Clone(r.Candidates)
	out.AssumptionFlags = slices.Clone(r.AssumptionFlags)
	out.Notes = slices.Clone(r.Notes)
	if r.Coordinates != nil {
		c := *r.Coordinates
		out.Coordinates = &c
	}
	return out
}

// AddNote appends an audit note.
func (r *MediaRecord) AddNote(kind AuditKind, message string) {
	r.Notes = append(r.Notes, AuditEntry{Kind: kind, Message: message})
}

// Audit returns the record's audit trail: notes in the order they were
// recorded followed by assumption flags.
func (r MediaRecord) Audit() RecordAudit {
	entries := make([]AuditEntry, 0, len(r.Notes)+len(r.AssumptionFlags))
	entries = append(entries, r.Notes...)
	for _, flag := range r.AssumptionFlags {
		entries = append(entries, AuditEntry{Kind: AuditAssumption, Message: flag})
	}
	return RecordAudit{
		Index:      r.Index,
		SourcePath: r.SourcePath,
		Status:     r.Resolved.Status(),
		Entries:    entries,
	}
}

package evidence

import "time"

// FieldKind identifies a recognised metadata field reported by the extractor.
type FieldKind string

const (
	FieldGPSLatitude  FieldKind = "gps_latitude"
	FieldGPSLongitude FieldKind = "gps_longitude"
	FieldGPSTimestamp FieldKind = "gps_timestamp"
	FieldGPSDate      FieldKind = "gps_date"
	FieldGPSTime      FieldKind = "gps_time"
	FieldEXIFOriginal FieldKind = "exif_original"
	FieldEXIFOffset   FieldKind = "exif_offset"
	FieldMediaCreate  FieldKind = "media_create"
)

// RawField is one value reported by the extractor. Tag keeps the extractor's
// own name (for example DateTimeOriginal) for the audit trail.
type RawField struct {
	Kind  FieldKind `json:"kind"`
	Tag   string    `json:"tag"`
	Value string    `json:"value"`
}

// FileInfo is descriptive metadata carried through for reports. It plays no
// part in ordering or classification.
type FileInfo struct {
	Make     string `json:"make,omitempty"`
	Model    string `json:"model,omitempty"`
	FileType string `json:"file_type,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Altitude string `json:"altitude,omitempty"`
}

// RawBag is the per-file metadata handed over by the extractor.
type RawBag struct {
	SourcePath string     `json:"source_path"`
	Fields     []RawField `json:"fields"`
	// ModTime is the filesystem modification time when the extractor supplied
	// one; the zero value means unknown.
	ModTime time.Time `json:"mod_time"`
	Info    FileInfo  `json:"info"`
	// ExtractError is set when the extractor failed for this file.
	ExtractError string `json:"extract_error,omitempty"`
}

// Values returns the fields of the requested kind in the order they were reported.
func (b RawBag) Values(kind FieldKind) []RawField {
	var out []RawField
	for _, field := range b.Fields {
		if field.Kind == kind {
			out = append(out, field)
		}
	}
	return out
}

// First returns the first field of the requested kind.
func (b RawBag) First(kind FieldKind) (RawField, bool) {
	for _, field := range b.Fields {
		if field.Kind == kind {
			return field, true
		}
	}
	return RawField{}, false
}

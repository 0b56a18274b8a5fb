package extract

import (
	"strconv"
	"time"

	"geotimeline/internal/evidence"
)

// tagKinds maps exiftool tags to evidence field kinds. Order is the order
// fields appear on the bag.
var tagKinds = []struct {
	tag  string
	kind evidence.FieldKind
}{
	{"GPSLatitude", evidence.FieldGPSLatitude},
	{"GPSLongitude", evidence.FieldGPSLongitude},
	{"GPSDateTime", evidence.FieldGPSTimestamp},
	{"GPSDateStamp", evidence.FieldGPSDate},
	{"GPSTimeStamp", evidence.FieldGPSTime},
	{"DateTimeOriginal", evidence.FieldEXIFOriginal},
	{"OffsetTimeOriginal", evidence.FieldEXIFOffset},
	{"OffsetTime", evidence.FieldEXIFOffset},
	{"TimeZone", evidence.FieldEXIFOffset},
	{"TimeZoneOffset", evidence.FieldEXIFOffset},
	{"MediaCreateDate", evidence.FieldMediaCreate},
	{"TrackCreateDate", evidence.FieldMediaCreate},
	{"CreateDate", evidence.FieldMediaCreate},
}

const fileModifyLayout = "2006:01:02 15:04:05-07:00"

// BagFromEntry converts one exiftool entry into a bag. Absent tags are
// omitted, never given placeholder values.
func BagFromEntry(entry Entry) evidence.RawBag {
	bag := evidence.RawBag{
		SourcePath:   entry.SourceFile(),
		ExtractError: entry.String("Error"),
		Info: evidence.FileInfo{
			Make:     entry.String("Make"),
			Model:    entry.String("Model"),
			FileType: entry.String("FileType"),
			MIMEType: entry.String("MIMEType"),
			Altitude: entry.String("GPSAltitude"),
		},
	}
	for _, tk := range tagKinds {
		value := entry.String(tk.tag)
		if value == "" {
			continue
		}
		bag.Fields = append(bag.Fields, evidence.RawField{Kind: tk.kind, Tag: tk.tag, Value: value})
	}
	if raw := entry.String("FileModifyDate"); raw != "" {
		if t, err := time.Parse(fileModifyLayout, raw); err == nil {
			bag.ModTime = t.UTC()
		}
	}
	return bag
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

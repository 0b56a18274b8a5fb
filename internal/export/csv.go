package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

var (
	timelineHeader = []string{
		"position", "index", "source_path", "instant_utc", "local", "offset",
		"tz_status", "time_source", "tag", "raw", "confidence", "justification",
		"lat", "lon", "altitude", "elapsed_seconds", "distance_m", "tie",
		"mixed_confidence", "review", "assumption_flags", "make", "model",
	}
	pairsHeader = []string{
		"from", "to", "from_path", "to_path", "elapsed_seconds", "distance_m",
		"speed_kmh", "movement", "gap", "mixed_confidence", "excluded", "exclusion_reason",
	}
	movementHeader = []string{
		"movement", "start_event", "end_event", "start_utc", "end_utc", "pairs",
		"distance_m", "duration_seconds", "average_speed_kmh", "mixed_confidence", "review",
	}
	gapsHeader = []string{
		"class", "from", "to", "from_path", "to_path", "start_utc", "end_utc",
		"duration_seconds", "mixed_confidence",
	}
	auditHeader = []string{"index", "source_path", "tz_status", "kind", "message"}
)

// WriteTimelineCSV writes one row per ordered event.
func WriteTimelineCSV(w io.Writer, doc Document) error {
	rows := make([][]string, 0, len(doc.Events))
	for _, ev := range doc.Events {
		rows = append(rows, []string{
			strconv.Itoa(ev.Position),
			strconv.Itoa(ev.Index),
			ev.SourcePath,
			ev.InstantUTC,
			ev.Local,
			ev.Offset,
			ev.Status,
			ev.Source,
			ev.Tag,
			ev.Raw,
			ev.Confidence,
			ev.Justification,
			optionalFloat(ev.Latitude, 7),
			optionalFloat(ev.Longitude, 7),
			ev.Altitude,
			formatFloat(ev.ElapsedSeconds, 3),
			optionalFloat(ev.DistanceMeters, 2),
			strconv.FormatBool(ev.Tie),
			strconv.FormatBool(ev.MixedConfidence),
			strings.Join(ev.Review, ";"),
			strings.Join(ev.AssumptionFlags, ";"),
			ev.Make,
			ev.Model,
		})
	}
	return writeCSV(w, timelineHeader, rows)
}

// WritePairsCSV writes the measurement between every consecutive pair.
func WritePairsCSV(w io.Writer, doc Document) error {
	rows := make([][]string, 0, len(doc.Pairs))
	for _, pair := range doc.Pairs {
		rows = append(rows, []string{
			strconv.Itoa(pair.From),
			strconv.Itoa(pair.To),
			pair.FromPath,
			pair.ToPath,
			formatFloat(pair.ElapsedSeconds, 3),
			optionalFloat(pair.DistanceMeters, 2),
			optionalFloat(pair.SpeedKMH, 2),
			pair.Movement,
			pair.Gap,
			strconv.FormatBool(pair.MixedConfidence),
			strconv.FormatBool(pair.Excluded),
			pair.ExclusionReason,
		})
	}
	return writeCSV(w, pairsHeader, rows)
}

// WriteMovementCSV writes one row per movement segment.
func WriteMovementCSV(w io.Writer, doc Document) error {
	rows := make([][]string, 0, len(doc.Segments))
	for _, seg := range doc.Segments {
		rows = append(rows, []string{
			seg.Movement,
			strconv.Itoa(seg.StartEvent),
			strconv.Itoa(seg.EndEvent),
			seg.StartUTC,
			seg.EndUTC,
			strconv.Itoa(seg.Pairs),
			formatFloat(seg.DistanceMeters, 2),
			formatFloat(seg.DurationSeconds, 3),
			optionalFloat(seg.AverageSpeedKMH, 2),
			strconv.FormatBool(seg.MixedConfidence),
			strconv.FormatBool(seg.Review),
		})
	}
	return writeCSV(w, movementHeader, rows)
}

// WriteGapsCSV writes one row per coverage gap.
func WriteGapsCSV(w io.Writer, doc Document) error {
	rows := make([][]string, 0, len(doc.Gaps))
	for _, gap := range doc.Gaps {
		rows = append(rows, []string{
			gap.Class,
			strconv.Itoa(gap.From),
			strconv.Itoa(gap.To),
			gap.FromPath,
			gap.ToPath,
			gap.StartUTC,
			gap.EndUTC,
			formatFloat(gap.DurationSeconds, 3),
			strconv.FormatBool(gap.MixedConfidence),
		})
	}
	return writeCSV(w, gapsHeader, rows)
}

// WriteAuditCSV writes every audit entry of every record, including records
// that never reached the timeline.
func WriteAuditCSV(w io.Writer, doc Document) error {
	var rows [][]string
	for _, audit := range doc.Audit {
		for _, entry := range audit.Entries {
			rows = append(rows, []string{
				strconv.Itoa(audit.Index),
				audit.SourcePath,
				audit.Status.String(),
				string(entry.Kind),
				entry.Message,
			})
		}
	}
	return writeCSV(w, auditHeader, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func optionalFloat(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v, prec)
}

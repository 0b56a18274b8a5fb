package export

import (
	"encoding/json"
	"io"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// WriteGeoJSON writes a FeatureCollection with one Point per located event
// and one LineString per segment whose endpoints are both located. Positions
// follow GeoJSON order: longitude first.
func WriteGeoJSON(w io.Writer, doc Document) error {
	fc := featureCollection{Type: "FeatureCollection", Features: []feature{}}
	located := make(map[int][2]float64, len(doc.Events))

	for _, ev := range doc.Events {
		if ev.Latitude == nil || ev.Longitude == nil {
			continue
		}
		pos := [2]float64{*ev.Longitude, *ev.Latitude}
		located[ev.Position] = pos
		props := map[string]any{
			"kind":          "event",
			"position":      ev.Position,
			"source_path":   ev.SourcePath,
			"instant_utc":   ev.InstantUTC,
			"local":         ev.Local,
			"tz_status":     ev.Status,
			"time_source":   ev.Source,
			"justification": ev.Justification,
		}
		if len(ev.Review) > 0 {
			props["review"] = ev.Review
		}
		fc.Features = append(fc.Features, feature{
			Type:       "Feature",
			Geometry:   geometry{Type: "Point", Coordinates: pos},
			Properties: props,
		})
	}

	for _, seg := range doc.Segments {
		var line [][2]float64
		for pos := seg.StartEvent; pos <= seg.EndEvent; pos++ {
			if point, ok := located[pos]; ok {
				line = append(line, point)
			}
		}
		if len(line) < 2 {
			continue
		}
		props := map[string]any{
			"kind":             "segment",
			"movement":         seg.Movement,
			"start_utc":        seg.StartUTC,
			"end_utc":          seg.EndUTC,
			"distance_m":       seg.DistanceMeters,
			"duration_seconds": seg.DurationSeconds,
			"mixed_confidence": seg.MixedConfidence,
			"review":           seg.Review,
		}
		if seg.AverageSpeedKMH != nil {
			props["average_speed_kmh"] = *seg.AverageSpeedKMH
		}
		fc.Features = append(fc.Features, feature{
			Type:       "Feature",
			Geometry:   geometry{Type: "LineString", Coordinates: line},
			Properties: props,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}

// WriteJSON writes the whole document.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

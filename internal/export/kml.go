package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

const kmlNamespace = "http://www.opengis.net/kml/2.2"

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	XMLNS    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name    string      `xml:"name"`
	Folders []kmlFolder `xml:"Folder"`
}

type kmlFolder struct {
	Name       string         `xml:"name"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name        string         `xml:"name"`
	Description string         `xml:"description,omitempty"`
	TimeStamp   *kmlTimeStamp  `xml:"TimeStamp,omitempty"`
	TimeSpan    *kmlTimeSpan   `xml:"TimeSpan,omitempty"`
	Point       *kmlPoint      `xml:"Point,omitempty"`
	LineString  *kmlLineString `xml:"LineString,omitempty"`
}

type kmlTimeStamp struct {
	When string `xml:"when"`
}

type kmlTimeSpan struct {
	Begin string `xml:"begin"`
	End   string `xml:"end"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlLineString struct {
	Tessellate  int    `xml:"tessellate"`
	Coordinates string `xml:"coordinates"`
}

// WriteKML writes located events as point placemarks and every segment with
// at least two located events as a track. KML coordinates are lon,lat,alt.
func WriteKML(w io.Writer, doc Document) error {
	events := kmlFolder{Name: "Events"}
	located := make(map[int]string, len(doc.Events))
	for _, ev := range doc.Events {
		if ev.Latitude == nil || ev.Longitude == nil {
			continue
		}
		coord := kmlCoordinate(*ev.Longitude, *ev.Latitude)
		located[ev.Position] = coord
		events.Placemarks = append(events.Placemarks, kmlPlacemark{
			Name:        filepath.Base(ev.SourcePath),
			Description: eventDescription(ev),
			TimeStamp:   &kmlTimeStamp{When: ev.InstantUTC},
			Point:       &kmlPoint{Coordinates: coord},
		})
	}

	tracks := kmlFolder{Name: "Segments"}
	for i, seg := range doc.Segments {
		var coords []string
		for pos := seg.StartEvent; pos <= seg.EndEvent; pos++ {
			if coord, ok := located[pos]; ok {
				coords = append(coords, coord)
			}
		}
		if len(coords) < 2 {
			continue
		}
		tracks.Placemarks = append(tracks.Placemarks, kmlPlacemark{
			Name:        fmt.Sprintf("%s %d", seg.Movement, i+1),
			Description: segmentDescription(seg),
			TimeSpan:    &kmlTimeSpan{Begin: seg.StartUTC, End: seg.EndUTC},
			LineString:  &kmlLineString{Tessellate: 1, Coordinates: strings.Join(coords, " ")},
		})
	}

	root := kmlRoot{
		XMLNS: kmlNamespace,
		Document: kmlDocument{
			Name:    "geotimeline " + doc.Settings.Mode,
			Folders: []kmlFolder{events, tracks},
		},
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func kmlCoordinate(lon, lat float64) string {
	return strconv.FormatFloat(lon, 'f', 7, 64) + "," + strconv.FormatFloat(lat, 'f', 7, 64) + ",0"
}

func eventDescription(ev EventRow) string {
	lines := []string{
		"instant_utc: " + ev.InstantUTC,
		"local: " + ev.Local + " (" + ev.Offset + ")",
		fmt.Sprintf("raw: %s (%s %s/%s)", ev.Raw, ev.Tag, ev.Source, ev.Confidence),
		"tz_status: " + ev.Status,
		"justification: " + ev.Justification,
	}
	if len(ev.AssumptionFlags) > 0 {
		lines = append(lines, "assumptions: "+strings.Join(ev.AssumptionFlags, "; "))
	}
	if len(ev.Review) > 0 {
		lines = append(lines, "review: "+strings.Join(ev.Review, "; "))
	}
	if device := strings.TrimSpace(ev.Make + " " + ev.Model); device != "" {
		lines = append(lines, "device: "+device)
	}
	if ev.Latitude != nil && ev.Longitude != nil {
		lines = append(lines, "url: "+MapsURL(*ev.Latitude, *ev.Longitude))
	}
	lines = append(lines, "path: "+ev.SourcePath)
	return strings.Join(lines, "\n")
}

func segmentDescription(seg SegmentRow) string {
	lines := []string{
		fmt.Sprintf("events: %d-%d", seg.StartEvent, seg.EndEvent),
		"distance_m: " + formatFloat(seg.DistanceMeters, 2),
		"duration_seconds: " + formatFloat(seg.DurationSeconds, 3),
		"mixed_confidence: " + strconv.FormatBool(seg.MixedConfidence),
		"review: " + strconv.FormatBool(seg.Review),
	}
	if seg.AverageSpeedKMH != nil {
		lines = append(lines, "average_speed_kmh: "+formatFloat(*seg.AverageSpeedKMH, 2))
	}
	return strings.Join(lines, "\n")
}

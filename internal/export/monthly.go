package export

import (
	"io"
	"path/filepath"
	"slices"
	"strconv"
)

// MonthlyDir holds one records CSV per calendar month.
const MonthlyDir = "monthly"

const unknownMonth = "unknown"

var monthlyHeader = []string{
	"position", "index", "source_path", "instant_utc", "local", "offset", "tz_status",
	"time_source", "lat", "lon", "altitude", "maps_url", "make", "model", "filetype", "mimetype",
}

type monthlyRow struct {
	position int
	record   RecordRow
}

type monthBucket struct {
	key  string
	rows []monthlyRow
}

// monthlyBuckets groups records by the month of their local wall clock, which
// is the calendar the device showed. Records keep timeline order inside a
// month; unresolved records form a final "unknown" bucket in input order.
func monthlyBuckets(doc Document) []monthBucket {
	byIndex := make(map[int]RecordRow, len(doc.Records))
	for _, rec := range doc.Records {
		byIndex[rec.Index] = rec
	}

	groups := make(map[string][]monthlyRow)
	var keys []string
	for _, ev := range doc.Events {
		key := unknownMonth
		if len(ev.Local) >= 7 {
			key = ev.Local[:7]
		}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], monthlyRow{position: ev.Position, record: byIndex[ev.Index]})
	}
	slices.Sort(keys)

	buckets := make([]monthBucket, 0, len(keys)+1)
	for _, key := range keys {
		buckets = append(buckets, monthBucket{key: key, rows: groups[key]})
	}
	if len(doc.Unresolved) > 0 {
		unknown := monthBucket{key: unknownMonth}
		for _, un := range doc.Unresolved {
			unknown.rows = append(unknown.rows, monthlyRow{position: -1, record: byIndex[un.Index]})
		}
		buckets = append(buckets, unknown)
	}
	return buckets
}

// monthlyFileName maps "2024-05" to monthly/2024/2024-05.csv.
func monthlyFileName(key string) string {
	if key == unknownMonth || len(key) < 4 {
		return filepath.Join(MonthlyDir, unknownMonth+".csv")
	}
	return filepath.Join(MonthlyDir, key[:4], key+".csv")
}

func writeMonthlyCSV(w io.Writer, rows []monthlyRow) error {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		rec := row.record
		position := ""
		if row.position >= 0 {
			position = strconv.Itoa(row.position)
		}
		out = append(out, []string{
			position,
			strconv.Itoa(rec.Index),
			rec.SourcePath,
			rec.InstantUTC,
			rec.Local,
			rec.Offset,
			rec.Status,
			rec.Source,
			optionalFloat(rec.Latitude, 7),
			optionalFloat(rec.Longitude, 7),
			rec.Altitude,
			rec.MapsURL,
			rec.Make,
			rec.Model,
			rec.FileType,
			rec.MIMEType,
		})
	}
	return writeCSV(w, monthlyHeader, out)
}

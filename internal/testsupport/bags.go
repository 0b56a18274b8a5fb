package testsupport

import "geotimeline/internal/evidence"

// GPSBag returns a bag carrying a UTC GPS timestamp and a coordinate pair.
func GPSBag(path, ts, lat, lon string) evidence.RawBag {
	return evidence.RawBag{SourcePath: path, Fields: []evidence.RawField{
		{Kind: evidence.FieldGPSTimestamp, Tag: "GPSDateTime", Value: ts},
		{Kind: evidence.FieldGPSLatitude, Tag: "GPSLatitude", Value: lat},
		{Kind: evidence.FieldGPSLongitude, Tag: "GPSLongitude", Value: lon},
	}}
}

// NaiveBag returns a bag whose only timestamp is a DateTimeOriginal without
// an offset.
func NaiveBag(path, ts string) evidence.RawBag {
	return evidence.RawBag{SourcePath: path, Fields: []evidence.RawField{
		{Kind: evidence.FieldEXIFOriginal, Tag: "DateTimeOriginal", Value: ts},
	}}
}

// OffsetBag returns a bag with a DateTimeOriginal and a separate
// OffsetTimeOriginal tag.
func OffsetBag(path, ts, offset string) evidence.RawBag {
	return evidence.RawBag{SourcePath: path, Fields: []evidence.RawField{
		{Kind: evidence.FieldEXIFOriginal, Tag: "DateTimeOriginal", Value: ts},
		{Kind: evidence.FieldEXIFOffset, Tag: "OffsetTimeOriginal", Value: offset},
	}}
}

// WithCoordinates appends a coordinate pair to bag.
func WithCoordinates(bag evidence.RawBag, lat, lon string) evidence.RawBag {
	bag.Fields = append(bag.Fields,
		evidence.RawField{Kind: evidence.FieldGPSLatitude, Tag: "GPSLatitude", Value: lat},
		evidence.RawField{Kind: evidence.FieldGPSLongitude, Tag: "GPSLongitude", Value: lon},
	)
	return bag
}

// MixedBatch returns four GPS records, one naive record and one record
// without any timestamp, in scrambled input order.
func MixedBatch() []evidence.RawBag {
	return []evidence.RawBag{
		GPSBag("IMG_0003.jpg", "2024:05:01 10:40:00Z", "52.5", "13.4"),
		GPSBag("IMG_0001.jpg", "2024:05:01 10:00:00Z", "52.5", "13.4"),
		NaiveBag("IMG_0004.jpg", "2024:05:01 13:00:00"),
		GPSBag("IMG_0002.jpg", "2024:05:01 10:02:00Z", "52.5", "13.4"),
		GPSBag("IMG_0005.jpg", "2024:05:01 10:40:10Z", "52.545", "13.4"),
		{SourcePath: "notes.png"},
	}
}

package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"geotimeline/internal/config"
	"geotimeline/internal/evidence"
	"geotimeline/internal/logging"
)

const sampleOutput = `[{
  "SourceFile": "photos/IMG_0001.jpg",
  "GPSLatitude": 52.52,
  "GPSLongitude": -13.405,
  "GPSAltitude": 34.5,
  "GPSDateTime": "2024:05:01 10:00:00Z",
  "DateTimeOriginal": "2024:05:01 12:00:00",
  "OffsetTimeOriginal": "+02:00",
  "TimeZoneOffset": 2,
  "FileModifyDate": "2024:05:02 09:30:00+02:00",
  "Make": "Apple",
  "Model": "iPhone 15",
  "FileType": "JPEG",
  "MIMEType": "image/jpeg"
}, {
  "SourceFile": "photos/broken.mov",
  "Error": "File format error"
}]`

func TestBagFromEntry(t *testing.T) {
	entries, err := DecodeEntries([]byte(sampleOutput))
	if err != nil {
		t.Fatalf("DecodeEntries returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	bag := BagFromEntry(entries[0])
	if bag.SourcePath != "photos/IMG_0001.jpg" {
		t.Fatalf("path = %q", bag.SourcePath)
	}
	want := []evidence.RawField{
		{Kind: evidence.FieldGPSLatitude, Tag: "GPSLatitude", Value: "52.52"},
		{Kind: evidence.FieldGPSLongitude, Tag: "GPSLongitude", Value: "-13.405"},
		{Kind: evidence.FieldGPSTimestamp, Tag: "GPSDateTime", Value: "2024:05:01 10:00:00Z"},
		{Kind: evidence.FieldEXIFOriginal, Tag: "DateTimeOriginal", Value: "2024:05:01 12:00:00"},
		{Kind: evidence.FieldEXIFOffset, Tag: "OffsetTimeOriginal", Value: "+02:00"},
		{Kind: evidence.FieldEXIFOffset, Tag: "TimeZoneOffset", Value: "2"},
	}
	if !reflect.DeepEqual(bag.Fields, want) {
		t.Fatalf("fields = %+v", bag.Fields)
	}
	if !bag.ModTime.Equal(time.Date(2024, 5, 2, 7, 30, 0, 0, time.UTC)) {
		t.Fatalf("mod time = %v", bag.ModTime)
	}
	if bag.Info.Make != "Apple" || bag.Info.Altitude != "34.5" || bag.Info.MIMEType != "image/jpeg" {
		t.Fatalf("info = %+v", bag.Info)
	}

	broken := BagFromEntry(entries[1])
	if broken.ExtractError != "File format error" || len(broken.Fields) != 0 {
		t.Fatalf("unexpected broken bag %+v", broken)
	}
}

func TestDecodeEntriesRejectsGarbage(t *testing.T) {
	if _, err := DecodeEntries([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestBagsFromEntriesRequiresSourceFile(t *testing.T) {
	if _, err := BagsFromEntries([]Entry{{"DateTimeOriginal": "2024:05:01 10:00:00"}}); err == nil {
		t.Fatal("expected error for entry without SourceFile")
	}
}

func TestExtractBatchesInInputOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Extractor.BatchSize = 2
	cfg.Extractor.Concurrency = 3
	ex := New(&cfg, logging.NewNop())

	var calls [][]string
	callsCh := make(chan []string, 10)
	ex.inspect = func(_ context.Context, _ string, paths []string) ([]Entry, error) {
		callsCh <- append([]string(nil), paths...)
		var entries []Entry
		for _, p := range paths {
			if p == "c.jpg" {
				continue
			}
			entries = append(entries, Entry{"SourceFile": p, "DateTimeOriginal": "2024:05:01 10:00:00"})
		}
		if len(entries) < len(paths) {
			return entries, errors.New("exit status 1")
		}
		return entries, nil
	}

	paths := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"}
	bags := ex.Extract(context.Background(), paths)
	close(callsCh)
	for c := range callsCh {
		calls = append(calls, c)
	}

	if len(calls) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(calls))
	}
	for i, bag := range bags {
		if bag.SourcePath != paths[i] {
			t.Fatalf("bag %d path = %q", i, bag.SourcePath)
		}
	}
	if !strings.Contains(bags[2].ExtractError, "exit status 1") {
		t.Fatalf("expected batch error on missing file, got %+v", bags[2])
	}
	if bags[3].ExtractError != "" || len(bags[3].Fields) != 1 {
		t.Fatalf("neighbour in failing batch must keep its metadata: %+v", bags[3])
	}
}

func TestInspectRunsBinary(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-exiftool")
	body := "#!/bin/sh\nprintf '%s' '[{\"SourceFile\":\"x.jpg\",\"DateTimeOriginal\":\"2024:05:01 10:00:00\"}]'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	entries, err := Inspect(context.Background(), script, []string{"x.jpg"})
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].SourceFile() != "x.jpg" || !entries[0].Has("DateTimeOriginal") {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestInspectMissingBinary(t *testing.T) {
	if _, err := Inspect(context.Background(), filepath.Join(t.TempDir(), "missing"), []string{"x.jpg"}); err == nil {
		t.Fatal("expected error for missing binary")
	}
	if _, err := Inspect(context.Background(), "exiftool", nil); err == nil {
		t.Fatal("expected error for empty batch")
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.MOV", "a.jpg", "notes.txt", "._a.jpg", filepath.Join("sub", "e.heic")} {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	want := []string{
		filepath.Join(root, "a.jpg"),
		filepath.Join(root, "b.MOV"),
		filepath.Join(root, "sub", "e.heic"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Discover = %v, want %v", got, want)
	}

	single, err := Discover(want[0])
	if err != nil || len(single) != 1 {
		t.Fatalf("single file discover = %v, %v", single, err)
	}
	if _, err := Discover(filepath.Join(root, "notes.txt")); err == nil {
		t.Fatal("expected error for unsupported file")
	}
}

package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	photoExtensions = []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".webp", ".heic", ".heif"}
	videoExtensions = []string{".mov", ".mp4", ".m4v"}
)

// Supported reports whether the file extension is a handled media type.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(photoExtensions, ext) || slices.Contains(videoExtensions, ext)
}

// Discover returns supported media files. A file argument is returned as is
// when supported; directories are walked recursively. AppleDouble sidecars
// ("._name") are skipped. Results are sorted by their NFC form so the order
// does not depend on how the filesystem stores names.
func Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if !info.IsDir() {
		if !Supported(root) {
			return nil, fmt.Errorf("discover: %s is not a supported media file", root)
		}
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), "._") || !Supported(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	slices.SortStableFunc(paths, func(a, b string) int {
		return strings.Compare(norm.NFC.String(a), norm.NFC.String(b))
	})
	return paths, nil
}

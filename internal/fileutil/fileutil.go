package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Digest describes the content of a file at the time it was hashed.
type Digest struct {
	Path    string
	SHA256  string
	Size    int64
	ModTime time.Time
}

// HashFile streams path through SHA256 and verifies that the number of bytes
// read matches the size reported before hashing started.
func HashFile(path string) (Digest, error) {
	in, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return Digest{}, fmt.Errorf("stat source: %w", err)
	}

	hasher := sha256.New()
	read, err := io.Copy(hasher, in)
	if err != nil {
		return Digest{}, err
	}
	if read != info.Size() {
		return Digest{}, fmt.Errorf("hash size mismatch: expected %d bytes, read %d bytes", info.Size(), read)
	}

	return Digest{
		Path:    path,
		SHA256:  hex.EncodeToString(hasher.Sum(nil)),
		Size:    read,
		ModTime: info.ModTime().UTC(),
	}, nil
}

// WriteAtomic writes a file through a temporary sibling and renames it into
// place, so readers never observe a partially written report.
func WriteAtomic(path string, mode os.FileMode, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

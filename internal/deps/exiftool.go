package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 10 * time.Second

// ExiftoolRequirement describes the metadata extractor binary.
func ExiftoolRequirement(command string) Requirement {
	return Requirement{
		Name:    "ExifTool",
		Command: command,
		Purpose: "metadata extraction",
	}
}

// ExiftoolVersion runs "exiftool -ver" and returns the trimmed version string.
func ExiftoolVersion(ctx context.Context, binary string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, "-ver") //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("exiftool -ver: %w: %s", err, detail)
		}
		return "", fmt.Errorf("exiftool -ver: %w", err)
	}
	version := strings.TrimSpace(stdout.String())
	if version == "" {
		return "", fmt.Errorf("exiftool -ver: empty output")
	}
	return version, nil
}

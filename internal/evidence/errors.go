package evidence

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParseFailure marks a single unreadable candidate timestamp. Non-fatal.
	ErrParseFailure = errors.New("parse failure")
	// ErrUnresolvedTimestamp marks a record with no usable candidate.
	ErrUnresolvedTimestamp = errors.New("unresolved timestamp")
	// ErrTimezoneAmbiguous marks a naive timestamp with no permitted offset source.
	ErrTimezoneAmbiguous = errors.New("timezone ambiguous")
	// ErrThresholdMisconfiguration aborts a run before any record is processed.
	ErrThresholdMisconfiguration = errors.New("threshold misconfiguration")
	// ErrWorkerFailure marks an isolated per-file normalization fault.
	ErrWorkerFailure = errors.New("worker failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrWorkerFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to the audit kind that records it.
func Kind(err error) AuditKind {
	switch {
	case errors.Is(err, ErrParseFailure):
		return AuditParseFailure
	case errors.Is(err, ErrUnresolvedTimestamp), errors.Is(err, ErrTimezoneAmbiguous):
		return AuditUnresolved
	default:
		return AuditWorkerFailure
	}
}

// Fatal reports whether the error must abort the run rather than narrow it.
func Fatal(err error) bool {
	return errors.Is(err, ErrThresholdMisconfiguration) || errors.Is(err, ErrTimezoneAmbiguous)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "analysis failure"
	}
	return strings.Join(parts, ": ")
}

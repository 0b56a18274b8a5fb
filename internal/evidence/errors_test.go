package evidence_test

import (
	"errors"
	"strings"
	"testing"

	"geotimeline/internal/evidence"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("bad layout")
	err := evidence.Wrap(evidence.ErrParseFailure, "normalize", "DateTimeOriginal", "unreadable", base)
	if !errors.Is(err, evidence.ErrParseFailure) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"normalize", "DateTimeOriginal", "unreadable", "bad layout"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want evidence.AuditKind
	}{
		{evidence.Wrap(evidence.ErrParseFailure, "normalize", "", "", nil), evidence.AuditParseFailure},
		{evidence.Wrap(evidence.ErrUnresolvedTimestamp, "normalize", "", "", nil), evidence.AuditUnresolved},
		{evidence.Wrap(evidence.ErrTimezoneAmbiguous, "timezone", "", "", nil), evidence.AuditUnresolved},
		{evidence.Wrap(evidence.ErrWorkerFailure, "normalize", "", "panic", nil), evidence.AuditWorkerFailure},
		{errors.New("other"), evidence.AuditWorkerFailure},
	}
	for _, tc := range cases {
		if got := evidence.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestFatalOnlyForRunLevelMarkers(t *testing.T) {
	if !evidence.Fatal(evidence.Wrap(evidence.ErrThresholdMisconfiguration, "policy", "", "", nil)) {
		t.Fatal("expected threshold misconfiguration to be fatal")
	}
	if evidence.Fatal(evidence.Wrap(evidence.ErrParseFailure, "normalize", "", "", nil)) {
		t.Fatal("expected parse failure to be non-fatal")
	}
	if evidence.Fatal(evidence.Wrap(evidence.ErrWorkerFailure, "normalize", "", "", nil)) {
		t.Fatal("expected worker failure to be non-fatal")
	}
}

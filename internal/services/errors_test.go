package services_test

import (
	"errors"
	"strings"
	"testing"

	"newscast/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrGenerationFailed, "speech", "synthesize", "segment 2", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrGenerationFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"speech", "synthesize", "segment 2", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestDetailsClassifiesMarkers(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind services.ErrorKind
	}{
		{"render timeout", services.Wrap(services.ErrRenderTimeout, "render", "await", "exceeded", nil), services.KindRenderTimeout},
		{"render failed", services.Wrap(services.ErrRenderFailed, "render", "await", "provider", nil), services.KindRenderFailed},
		{"persistence", services.Wrap(services.ErrPersistence, "checkpoint", "save", "", errors.New("disk")), services.KindPersistence},
		{"plain", errors.New("plain"), services.KindUnknown},
	}
	for _, tc := range cases {
		details := services.Details(tc.err)
		if details.Kind != tc.kind {
			t.Fatalf("%s: expected kind %s, got %s", tc.name, tc.kind, details.Kind)
		}
	}

	details := services.Details(services.Wrap(services.ErrPersistence, "checkpoint", "save", "upsert failed", errors.New("disk")))
	if details.Component != "checkpoint" || details.Operation != "save" || details.Message != "upsert failed" {
		t.Fatalf("unexpected details: %#v", details)
	}
	if details.Cause == nil || details.Cause.Error() != "disk" {
		t.Fatalf("expected cause to be preserved, got %v", details.Cause)
	}
}

func TestRenderTimeoutDistinctFromFailure(t *testing.T) {
	timeout := services.Wrap(services.ErrRenderTimeout, "render", "await", "", nil)
	if errors.Is(timeout, services.ErrRenderFailed) {
		t.Fatal("timeout must not match render failure")
	}
}

func TestIsRetryable(t *testing.T) {
	if services.IsRetryable(nil) {
		t.Fatal("nil error should not be retryable")
	}
	if services.IsRetryable(services.Wrap(services.ErrValidation, "x", "y", "z", nil)) {
		t.Fatal("validation errors should not be retried")
	}
	if !services.IsRetryable(services.Wrap(services.ErrTransient, "x", "y", "z", nil)) {
		t.Fatal("transient errors should be retried")
	}
}

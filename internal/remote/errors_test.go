package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyPassesThroughTypedErrors(t *testing.T) {
	orig := NotFound("update", "tx-1")
	wrapped := fmt.Errorf("store: %w", orig)

	got := Classify("update", wrapped)
	if got.Kind != KindNotFound {
		t.Errorf("Kind = %s, want %s", got.Kind, KindNotFound)
	}
}

func TestClassifyMapsTransportFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"deadline", context.DeadlineExceeded},
		{"canceled", context.Canceled},
		{"unknown", errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify("list", tt.err); got.Kind != KindNetwork {
				t.Errorf("Kind = %s, want %s", got.Kind, KindNetwork)
			}
		})
	}
}

func TestClassifyNilIsNil(t *testing.T) {
	if got := Classify("list", nil); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(Forbidden("delete", "tx-1")); got != KindAuthorization {
		t.Errorf("KindOf(forbidden) = %s", got)
	}
	if got := KindOf(fmt.Errorf("wrap: %w", Invalid("create", errors.New("bad")))); got != KindValidation {
		t.Errorf("KindOf(wrapped invalid) = %s", got)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %s, want empty", got)
	}
	if got := KindOf(errors.New("misc")); got != KindNetwork {
		t.Errorf("KindOf(unclassified) = %s, want network", got)
	}
}

func TestErrorMessageIncludesOpAndKind(t *testing.T) {
	err := NotFound("update", "tx-1")
	msg := err.Error()
	if msg != "update: not_found: transaction tx-1 not found" {
		t.Errorf("Error() = %q", msg)
	}
	if !errors.Is(err, err.Err) {
		t.Error("Unwrap should expose the inner error")
	}
}

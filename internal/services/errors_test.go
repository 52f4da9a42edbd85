package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"narratix/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	err := services.Wrap(services.ErrTimeout, "alignment", "run whisperx", "engine did not respond", nil)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker: %v", err)
	}
	if !strings.Contains(err.Error(), "alignment: run whisperx") {
		t.Fatalf("missing stage detail: %v", err)
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "mix", "", "", errors.New("boom"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default: %v", err)
	}
}

func TestIncompleteSpeechErrorNamesSegments(t *testing.T) {
	err := services.NewIncompleteSpeechError(7, []int{4, 1, 2})
	if got := err.Error(); !strings.Contains(got, "1, 2, 4") {
		t.Fatalf("indices not sorted in message: %q", got)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatal("incomplete speech must classify as validation")
	}
	if services.Retryable(err) {
		t.Fatal("incomplete speech must not be retryable")
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := services.Retry(context.Background(), services.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return services.Wrap(services.ErrValidation, "t", "op", "bad input", nil)
	})
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRetryExhaustsTransient(t *testing.T) {
	calls := 0
	err := services.Retry(context.Background(), services.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return services.Wrap(services.ErrTransient, "t", "op", "unreachable", nil)
	})
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRetrySucceedsAfterTransient(t *testing.T) {
	calls := 0
	err := services.Retry(context.Background(), services.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 2 {
			return services.ErrTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTextID(ctx, 42)
	ctx = services.WithStage(ctx, "mixing")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.TextIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected text id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "mixing" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

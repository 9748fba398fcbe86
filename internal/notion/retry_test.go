package notion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var quiet = zerolog.Nop()

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), quiet, func() error {
		callCount++
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), quiet, func() error {
		callCount++
		if callCount < 3 {
			return &APIError{StatusCode: 500, Class: ErrorClassServer}
		}
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_ClientErrorStopsImmediately(t *testing.T) {
	callCount := 0
	want := &APIError{StatusCode: 400, Class: ErrorClassClient}
	err := retryWithBackoff(context.Background(), fastRetry(3), quiet, func() error {
		callCount++
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("Expected original error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_SingleAttemptReturnsRawError(t *testing.T) {
	want := &APIError{StatusCode: 503, Class: ErrorClassServer}
	err := retryWithBackoff(context.Background(), fastRetry(1), quiet, func() error { return want })
	if errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("single attempt must not report exhaustion: %v", err)
	}
	if !errors.Is(err, want) {
		t.Fatalf("Expected original error, got %v", err)
	}
}

func TestRetryWithBackoff_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Second, BackoffMultiplier: 2}

	callCount := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := retryWithBackoff(ctx, cfg, quiet, func() error {
		callCount++
		return &APIError{StatusCode: 500, Class: ErrorClassServer}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("cancellation did not interrupt backoff")
	}
}

func TestRetryWithBackoff_RetryAfterCappedByMaxBackoff(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, BackoffMultiplier: 2}
	callCount := 0
	start := time.Now()
	err := retryWithBackoff(context.Background(), cfg, quiet, func() error {
		callCount++
		if callCount == 1 {
			return &APIError{StatusCode: 429, Class: ErrorClassRateLimit, RetryAfter: time.Hour}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Retry-After not capped, waited %v", elapsed)
	}
}

func TestRetryAfter(t *testing.T) {
	if got := retryAfter(errors.New("plain")); got != 0 {
		t.Errorf("retryAfter(plain) = %v, want 0", got)
	}
	if got := retryAfter(&APIError{RetryAfter: 2 * time.Second}); got != 2*time.Second {
		t.Errorf("retryAfter = %v, want 2s", got)
	}
}

package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 500*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 500ms", config.InitialBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfig_BackoffFor(t *testing.T) {
	config := DefaultRetryConfig()

	initial, maxBackoff := config.backoffFor(ErrorClassRateLimit)
	if initial != 4*config.InitialBackoff || maxBackoff != 4*config.MaxBackoff {
		t.Errorf("rate limit backoff = %v/%v, want 4x defaults", initial, maxBackoff)
	}

	initial, maxBackoff = config.backoffFor(ErrorClassServer)
	if initial != config.InitialBackoff || maxBackoff != config.MaxBackoff {
		t.Errorf("server backoff = %v/%v, want defaults", initial, maxBackoff)
	}
}

func TestRetryWithBackoff_SucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), func() error {
		attempts++
		if attempts < 3 {
			return &APIError{StatusCode: 503, ErrorClass: ErrorClassServer}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("retryWithBackoff() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	attempts := 0
	lastErr := &APIError{StatusCode: 500, ErrorClass: ErrorClassServer}
	err := retryWithBackoff(context.Background(), fastRetry(2), func() error {
		attempts++
		return lastErr
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr != lastErr {
		t.Errorf("error should wrap the last APIError, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryWithBackoff_NonRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "client error", err: &APIError{StatusCode: 404, ErrorClass: ErrorClassClient}},
		{name: "decode error", err: &APIError{ErrorClass: ErrorClassDecode}},
		{name: "plain error", err: errors.New("context canceled")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := retryWithBackoff(context.Background(), fastRetry(5), func() error {
				attempts++
				return tt.err
			})

			if err != tt.err {
				t.Errorf("error = %v, want %v unchanged", err, tt.err)
			}
			if attempts != 1 {
				t.Errorf("attempts = %d, want 1", attempts)
			}
		})
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    time.Hour,
		MaxBackoff:        time.Hour,
		BackoffMultiplier: 2.0,
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := retryWithBackoff(ctx, config, func() error {
		return &APIError{ErrorClass: ErrorClassNetwork}
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("error = %v, want ErrContextCancelled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

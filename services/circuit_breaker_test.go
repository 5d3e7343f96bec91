package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func testBreakerRegistry() *CircuitBreakerRegistry {
	return NewCircuitBreakerRegistry(CircuitBreakerConfig{
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     time.Minute,
	})
}

func TestCircuitBreaker_PassesThroughSuccess(t *testing.T) {
	registry := testBreakerRegistry()

	result, err := registry.Execute(context.Background(), "test-service", func() (any, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected result passthrough, got %v", result)
	}
}

func TestCircuitBreaker_PassesThroughErrors(t *testing.T) {
	registry := testBreakerRegistry()
	wantErr := errors.New("upstream failed")

	_, err := registry.Execute(context.Background(), "test-service", func() (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected the function's error, got: %v", err)
	}
}

func TestCircuitBreaker_OpensAfterRepeatedFailures(t *testing.T) {
	registry := testBreakerRegistry()

	for i := 0; i < 5; i++ {
		_, _ = registry.Execute(context.Background(), "failing-service", func() (any, error) {
			return nil, errors.New("boom")
		})
	}

	_, err := registry.Execute(context.Background(), "failing-service", func() (any, error) {
		t.Error("function must not run once the breaker is open")
		return nil, nil
	})
	if err == nil || !strings.Contains(err.Error(), "circuit breaker open") {
		t.Errorf("expected circuit-breaker-open error, got: %v", err)
	}
}

func TestCircuitBreaker_IsolatesServices(t *testing.T) {
	registry := testBreakerRegistry()

	for i := 0; i < 5; i++ {
		_, _ = registry.Execute(context.Background(), "broken", func() (any, error) {
			return nil, errors.New("boom")
		})
	}

	result, err := registry.Execute(context.Background(), "healthy", func() (any, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("healthy service should be unaffected, got: %v", err)
	}
	if result != 42 {
		t.Errorf("expected 42, got %v", result)
	}
}

func TestCircuitBreaker_RespectsContextCancellation(t *testing.T) {
	registry := testBreakerRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := registry.Execute(ctx, "test-service", func() (any, error) {
		t.Error("function must not run with a cancelled context")
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestWithCircuitBreaker_TypedResult(t *testing.T) {
	got, err := WithCircuitBreaker(context.Background(), "typed_test", func() (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

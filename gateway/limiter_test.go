package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTokenBucketLimiterBurstIsImmediate(t *testing.T) {
	l := NewTokenBucketLimiter(1, 3)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("burst should not wait, took %v", elapsed)
	}
}

func TestTokenBucketLimiterPacesAfterBurst(t *testing.T) {
	l := NewTokenBucketLimiter(50, 1)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	// 50/s 补充速率，空桶后第二次应等约 20ms
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Fatalf("expected pacing delay, got %v", elapsed)
	}
}

func TestTokenBucketLimiterWaitCancelled(t *testing.T) {
	l := NewTokenBucketLimiter(0.1, 1)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := l.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancelled wait should return promptly, took %v", elapsed)
	}
}

func TestTokenBucketLimiterRefundsOnCancel(t *testing.T) {
	// 补充极慢，排除流逝时间对 tokens 的干扰
	l := NewTokenBucketLimiter(0.001, 1)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		if err := l.Wait(ctx); err == nil {
			t.Fatalf("wait %d: expected cancellation error", i)
		}
	}

	l.mu.Lock()
	tokens := l.tokens
	l.mu.Unlock()
	if tokens < -0.5 {
		t.Fatalf("cancelled waits leaked reservations: tokens=%v", tokens)
	}
}

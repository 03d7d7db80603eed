package gateway

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 控制对节点的提交节奏，避免触发节点限流。
// 等待可被 ctx 取消，取消的调用不消耗配额。
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// TokenBucketLimiter 预定式令牌桶：取一个令牌，桶空时等它按速率补充，
// 而不是丢弃请求。
type TokenBucketLimiter struct {
	mu     sync.Mutex
	rate   float64 // 每秒补充令牌数
	burst  float64 // 桶容量
	tokens float64 // 允许为负：表示已预定、尚未补足
	last   time.Time
}

func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketLimiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Wait 预定一个令牌并等到它可用为止。ctx 取消时立即返回取消错误
// 并归还预定，不占用后续调用的配额。
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now

	l.tokens--
	var wait time.Duration
	if l.tokens < 0 {
		wait = time.Duration(-l.tokens / l.rate * float64(time.Second))
	}
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		l.refund()
		return ctx.Err()
	}
}

// refund 归还被取消调用预定的令牌。
func (l *TokenBucketLimiter) refund() {
	l.mu.Lock()
	l.tokens++
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.mu.Unlock()
}

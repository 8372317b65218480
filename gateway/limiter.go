package gateway

import (
	"sync"
	"time"
)

// RateLimiter 控制委托发送速率，避免触发券商端流控。
type RateLimiter interface {
	Wait()
}

// TokenBucketLimiter 简单令牌桶实现。
type TokenBucketLimiter struct {
	rate   float64
	burst  int
	tokens float64
	last   time.Time
	mu     sync.Mutex
}

// NewTokenBucketLimiter 创建令牌桶；rate 为每秒令牌数，burst 为桶容量。
func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketLimiter{
		rate:   rate,
		burst:  burst,
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Wait 阻塞直到取得一枚令牌。
func (l *TokenBucketLimiter) Wait() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	elapsed := now.Sub(l.last).Seconds()
	l.last = now
	l.tokens += elapsed * l.rate
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}
	if l.tokens < 1 {
		sleep := time.Duration((1-l.tokens)/l.rate*float64(time.Second)) + time.Millisecond
		l.mu.Unlock()
		time.Sleep(sleep)
		l.mu.Lock()
		l.tokens = 0
	} else {
		l.tokens -= 1
	}
}

// NopLimiter 不限流，回测与模拟用。
type NopLimiter struct{}

func (NopLimiter) Wait() {}

package bot

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// chatLimiter throttles incoming messages per chat, forgetting idle chats.
type chatLimiter struct {
	limiters *expirable.LRU[int64, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

func newChatLimiter(requestsPerMin int) *chatLimiter {
	if requestsPerMin <= 0 {
		requestsPerMin = 30
	}
	burst := requestsPerMin / 10
	if burst < 1 {
		burst = 1
	}
	return &chatLimiter{
		limiters: expirable.NewLRU[int64, *rate.Limiter](1000, nil, 5*time.Minute),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burst,
	}
}

func (l *chatLimiter) Allow(chatID int64) error {
	limiter, ok := l.limiters.Get(chatID)
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters.Add(chatID, limiter)
	}
	if !limiter.Allow() {
		return fmt.Errorf("rate limit exceeded for chat %d", chatID)
	}
	return nil
}

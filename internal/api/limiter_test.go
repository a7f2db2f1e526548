package api

import (
	"testing"
	"time"

	"fsaeinventory/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newRateLimiter(config.APIRateLimitConfig{RPS: 1, Burst: 1})
	l.now = func() time.Time { return now }

	first := l.getLimiter("10.0.0.1")
	l.getLimiter("10.0.0.2")
	assert.Equal(t, 2, l.size())
	assert.Same(t, first, l.getLimiter("10.0.0.1"))

	// 10.0.0.1 остаётся активным, 10.0.0.2 простаивает
	now = now.Add(limiterIdleTTL - time.Minute)
	l.getLimiter("10.0.0.1")

	now = now.Add(2 * time.Minute)
	l.getLimiter("10.0.0.3")

	assert.Equal(t, 2, l.size())
	_, ok := l.limiters.Load("10.0.0.2")
	assert.False(t, ok)
	assert.Same(t, first, l.getLimiter("10.0.0.1"))
}

func TestRateLimiter_SweepIsThrottled(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newRateLimiter(config.APIRateLimitConfig{RPS: 1, Burst: 1})
	l.now = func() time.Time { return now }

	l.getLimiter("a")
	l.lastSweep = now.Add(limiterIdleTTL + time.Hour)
	now = now.Add(limiterIdleTTL + time.Hour)
	l.getLimiter("b")

	assert.Equal(t, 2, l.size(), "no sweep within the sweep interval")
}

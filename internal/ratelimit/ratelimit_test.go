package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemorySlidingWindow(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	now := start
	l := NewInMemory()
	l.now = func() time.Time { return now }

	for i := range 3 {
		res, err := l.Allow(ctx, "confirm:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 2-i, res.Remaining)
		now = now.Add(10 * time.Second)
	}

	res, err := l.Allow(ctx, "confirm:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, start.Add(time.Minute), res.ResetAt)

	other, err := l.Allow(ctx, "confirm:10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	// The first hit leaves the window; one slot frees up.
	now = start.Add(time.Minute + time.Second)
	res, err = l.Allow(ctx, "confirm:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestRejectedRequestsDoNotExtendTheWindow(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	now := start
	l := NewInMemory()
	l.now = func() time.Time { return now }

	_, _ = l.Allow(ctx, "k", 1, time.Minute)
	for range 5 {
		now = now.Add(5 * time.Second)
		res, _ := l.Allow(ctx, "k", 1, time.Minute)
		assert.False(t, res.Allowed)
	}
	now = start.Add(time.Minute + time.Millisecond)
	res, _ := l.Allow(ctx, "k", 1, time.Minute)
	assert.True(t, res.Allowed)
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, Result{ResetAt: now.Add(30 * time.Second)}.RetryAfter(now))
	assert.Equal(t, 2, Result{ResetAt: now.Add(1500 * time.Millisecond)}.RetryAfter(now))
	assert.Equal(t, 1, Result{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
}

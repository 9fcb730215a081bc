package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoliteLimiterDelaysBetweenCalls(t *testing.T) {
	limiter := NewPoliteLimiter(30*time.Millisecond, 60*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestPoliteLimiterCancellation(t *testing.T) {
	limiter := NewPoliteLimiter(time.Minute, 2*time.Minute)

	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAdaptiveLimiterBacksOffOnErrors(t *testing.T) {
	limiter := NewAdaptiveLimiter(10*time.Millisecond, 20*time.Millisecond)

	before := limiter.minDelay
	limiter.RecordError()
	limiter.RecordError()
	limiter.RecordError()

	assert.Greater(t, limiter.minDelay, before, "repeated errors widen the delay")
}

func TestAdaptiveLimiterRecoversOnSuccess(t *testing.T) {
	limiter := NewAdaptiveLimiter(10*time.Second, 20*time.Second)

	for i := 0; i < 6; i++ {
		limiter.RecordSuccess()
	}

	assert.Less(t, limiter.minDelay, 10*time.Second, "sustained success narrows the delay")
}

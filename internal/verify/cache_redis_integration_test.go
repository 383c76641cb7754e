//go:build integration

package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signoff/pkg/testutil/containers"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	rc := containers.NewRedis(t)
	cache := NewRedisCache(rc.Client, time.Hour)
	ctx := context.Background()

	_, err := cache.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrCacheMiss)

	stored := Result{
		AttemptID:        "attempt-1",
		Verdict:          VerdictValid,
		MatchedSignatory: "Jane Smith",
		RawText:          "STATUS: valid",
		CompletedAt:      time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, cache.Set(ctx, "digest-1", stored))

	got, err := cache.Get(ctx, "digest-1")
	require.NoError(t, err)
	assert.Equal(t, stored.AttemptID, got.AttemptID)
	assert.Equal(t, stored.Verdict, got.Verdict)
	assert.Equal(t, stored.MatchedSignatory, got.MatchedSignatory)
	assert.Equal(t, stored.RawText, got.RawText)
	assert.True(t, stored.CompletedAt.Equal(got.CompletedAt))
}

func TestRedisCacheExpiry(t *testing.T) {
	rc := containers.NewRedis(t)
	cache := NewRedisCache(rc.Client, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "digest-2", Result{Verdict: VerdictUnclear}))
	require.Eventually(t, func() bool {
		_, err := cache.Get(ctx, "digest-2")
		return errors.Is(err, ErrCacheMiss)
	}, 2*time.Second, 25*time.Millisecond)
}

package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("audit-stream")

	assert.Equal(t, "audit-stream", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.IsOpen())
}

func TestBreakerOpensAtFailureThreshold(t *testing.T) {
	b := New("audit-stream", WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		useFallback, change := b.RecordFailure()
		assert.False(t, useFallback, "failure %d must not trip the breaker", i+1)
		assert.Zero(t, change)
	}

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.Equal(t, Change{Opened: true}, change)
	assert.True(t, b.IsOpen())
}

func TestBreakerOpenRepeatsFallbackWithoutTransition(t *testing.T) {
	b := New("audit-stream", WithFailureThreshold(1))
	b.RecordFailure()

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.Zero(t, change, "an already open breaker reports no transition")
}

func TestBreakerClosesAfterConsecutiveSuccesses(t *testing.T) {
	b := New("audit-stream", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.Zero(t, change)
	assert.True(t, b.IsOpen())

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.Equal(t, Change{Closed: true}, change)
	assert.False(t, b.IsOpen())
}

func TestBreakerStreaksDoNotSurviveOppositeOutcomes(t *testing.T) {
	t.Run("success clears the failure streak", func(t *testing.T) {
		b := New("audit-stream", WithFailureThreshold(3))
		b.RecordFailure()
		b.RecordFailure()
		b.RecordSuccess()

		b.RecordFailure()
		b.RecordFailure()
		assert.False(t, b.IsOpen())
		b.RecordFailure()
		assert.True(t, b.IsOpen())
	})

	t.Run("failure clears the success streak", func(t *testing.T) {
		b := New("audit-stream", WithFailureThreshold(1), WithSuccessThreshold(3))
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordSuccess()
		b.RecordFailure()

		b.RecordSuccess()
		b.RecordSuccess()
		assert.True(t, b.IsOpen())
		b.RecordSuccess()
		assert.False(t, b.IsOpen())
	})
}

func TestBreakerReset(t *testing.T) {
	b := New("audit-stream", WithFailureThreshold(1))
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())

	// The reset also clears streaks: one failure alone must not reopen a
	// breaker configured for two.
	b = New("audit-stream", WithFailureThreshold(2))
	b.RecordFailure()
	b.Reset()
	b.RecordFailure()
	assert.False(t, b.IsOpen())
}

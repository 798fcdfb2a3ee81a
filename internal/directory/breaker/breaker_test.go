package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bindirectory/internal/directory/models"
)

func TestRecordFailure(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("stays closed below threshold", func(t *testing.T) {
		state := models.BreakerState{}
		var opened bool
		for i := 0; i < FailureThreshold-1; i++ {
			state, opened = RecordFailure(state, now)
			assert.False(t, opened)
		}
		assert.False(t, state.Open)
		assert.Equal(t, FailureThreshold-1, state.ConsecutiveFailures)
		assert.Equal(t, now, *state.LastFailureAt)
	})

	t.Run("opens on the fifth consecutive failure", func(t *testing.T) {
		state := models.BreakerState{ConsecutiveFailures: FailureThreshold - 1}
		state, opened := RecordFailure(state, now)
		assert.True(t, opened)
		assert.True(t, state.Open)
		assert.Equal(t, FailureThreshold, state.ConsecutiveFailures)
	})

	t.Run("already open breaker does not report opening again", func(t *testing.T) {
		state := models.BreakerState{Open: true, ConsecutiveFailures: 7}
		state, opened := RecordFailure(state, now)
		assert.False(t, opened)
		assert.True(t, state.Open)
		assert.Equal(t, 8, state.ConsecutiveFailures)
	})
}

func TestCheck(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("closed breaker is available", func(t *testing.T) {
		available, updated, recovered := Check(models.BreakerState{}, now)
		assert.True(t, available)
		assert.False(t, recovered)
		assert.False(t, updated.Open)
	})

	t.Run("open breaker without failure time stays open indefinitely", func(t *testing.T) {
		available, _, recovered := Check(models.BreakerState{Open: true}, now)
		assert.False(t, available)
		assert.False(t, recovered)
	})

	t.Run("open breaker inside cooldown stays open", func(t *testing.T) {
		last := now.Add(-29 * time.Second)
		state := models.BreakerState{Open: true, ConsecutiveFailures: 5, LastFailureAt: &last}

		available, updated, recovered := Check(state, now)
		assert.False(t, available)
		assert.False(t, recovered)
		assert.True(t, updated.Open)
		assert.Equal(t, 5, updated.ConsecutiveFailures)
	})

	t.Run("open breaker past cooldown recovers", func(t *testing.T) {
		last := now.Add(-31 * time.Second)
		state := models.BreakerState{Open: true, ConsecutiveFailures: 5, LastFailureAt: &last}

		available, updated, recovered := Check(state, now)
		assert.True(t, available)
		assert.True(t, recovered)
		assert.False(t, updated.Open)
		assert.Zero(t, updated.ConsecutiveFailures)
	})

	t.Run("cooldown boundary is exclusive", func(t *testing.T) {
		last := now.Add(-Cooldown)
		state := models.BreakerState{Open: true, LastFailureAt: &last}

		available, _, recovered := Check(state, now)
		assert.False(t, available)
		assert.False(t, recovered)
	})
}

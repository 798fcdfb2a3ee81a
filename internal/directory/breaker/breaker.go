// Package breaker implements the per-institution availability gate.
//
// The gate has two states, closed (available) and open (unavailable), with a
// transparent auto-recovery check performed on every read: once the cooldown
// has elapsed since the last recorded failure, the breaker closes again in a
// single step. There is no half-open probing and no backoff.
//
// All functions here are pure with respect to state and time; the caller is
// responsible for persisting any state change they return.
package breaker

import (
	"time"

	"bindirectory/internal/directory/models"
)

const (
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	FailureThreshold = 5

	// Cooldown is how long after the last failure an open breaker stays
	// open before auto-recovering.
	Cooldown = 30 * time.Second
)

// RecordFailure increments the consecutive-failure counter and stamps the
// failure time. It reports whether this failure just opened the breaker, so
// the caller knows to invalidate cached routing entries.
func RecordFailure(state models.BreakerState, now time.Time) (models.BreakerState, bool) {
	state.ConsecutiveFailures++
	state.LastFailureAt = &now

	opened := false
	if state.ConsecutiveFailures >= FailureThreshold && !state.Open {
		state.Open = true
		opened = true
	}
	return state, opened
}

// Check decides whether an institution is currently reachable.
//
// A closed breaker is always available. An open breaker with no recorded
// failure time stays open indefinitely. An open breaker whose cooldown has
// elapsed closes with a reset counter and reports recovered=true; the caller
// must persist that transition.
func Check(state models.BreakerState, now time.Time) (available bool, updated models.BreakerState, recovered bool) {
	if !state.Open {
		return true, state, false
	}

	if state.LastFailureAt == nil {
		return false, state, false
	}

	if now.Sub(*state.LastFailureAt) > Cooldown {
		state.Open = false
		state.ConsecutiveFailures = 0
		return true, state, true
	}

	return false, state, false
}

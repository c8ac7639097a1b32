package retry

import (
	"math"
	"time"
)

// InitialDelay is the backoff unit: attempt n waits InitialDelay * 2^n.
const InitialDelay = time.Second

// State is the retry bookkeeping of one in-flight stream. It is a value:
// every transition builds a new State.
type State struct {
	Attempt        int          `json:"attempt"`
	RetryStartTime time.Time    `json:"retryStartTime"`
	LastError      *StreamError `json:"lastError,omitempty"`
}

// NewFreshState is the state after a stream started successfully.
func NewFreshState(now time.Time) State {
	return State{Attempt: 0, RetryStartTime: now}
}

// NewFailedState is the state after a stream terminated abnormally.
func NewFailedState(previousAttempt int, err *StreamError, now time.Time) State {
	return State{
		Attempt:        max(previousAttempt, 0) + 1,
		RetryStartTime: now,
		LastError:      err,
	}
}

// NewManualRetryState is the state after the user asked to retry. The attempt
// counter is kept, so the next failure keeps growing the delay, and the start
// time is back-dated by initialDelay so the retry is eligible right away.
func NewManualRetryState(previousAttempt int, now time.Time, initialDelay time.Duration) State {
	return State{
		Attempt:        max(previousAttempt, 0),
		RetryStartTime: now.Add(-initialDelay),
	}
}

// Delay returns initial * 2^attempt, saturating instead of overflowing.
func Delay(attempt int, initial time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if initial <= 0 {
		return 0
	}
	if attempt >= 63 || initial > time.Duration(math.MaxInt64>>attempt) {
		return time.Duration(math.MaxInt64)
	}
	return initial << attempt
}

// Eligible reports whether a retry may fire at now.
func (s State) Eligible(now time.Time, initial time.Duration) bool {
	return s.Remaining(now, initial) <= 0
}

// Remaining returns how long until a retry may fire, or zero if it already may.
func (s State) Remaining(now time.Time, initial time.Duration) time.Duration {
	elapsed := max(now.Sub(s.RetryStartTime), 0)
	remaining := Delay(s.Attempt, initial) - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

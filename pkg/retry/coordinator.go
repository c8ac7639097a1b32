package retry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSuperseded is returned by Wait when a new stream started while waiting.
var ErrSuperseded = errors.New("retry superseded by a new stream")

// Coordinator owns the retry state of one conversation.
//
// Transitions are synchronous. Wait is the only blocking call; it is cut
// short by StreamStarted (the pending retry is dropped) and by ManualRetry
// (the retry fires immediately).
type Coordinator struct {
	initialDelay time.Duration
	now          func() time.Time

	mu     sync.Mutex
	state  State
	epoch  uint64
	manual bool
	wake   chan struct{}
}

type Opt func(*Coordinator)

func WithInitialDelay(d time.Duration) Opt {
	return func(c *Coordinator) {
		if d > 0 {
			c.initialDelay = d
		}
	}
}

// WithClock overrides the time source used for transitions.
func WithClock(now func() time.Time) Opt {
	return func(c *Coordinator) {
		c.now = now
	}
}

func NewCoordinator(opts ...Opt) *Coordinator {
	c := &Coordinator{
		initialDelay: InitialDelay,
		now:          time.Now,
		wake:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = NewFreshState(c.now())
	return c
}

func (c *Coordinator) InitialDelay() time.Duration {
	return c.initialDelay
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// NextDelay returns the full backoff for the current attempt.
func (c *Coordinator) NextDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Delay(c.state.Attempt, c.initialDelay)
}

// Remaining returns how long until the current state becomes eligible.
func (c *Coordinator) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Remaining(c.now(), c.initialDelay)
}

// StreamStarted records a successful stream start. The attempt counter resets
// and any pending Wait returns ErrSuperseded.
func (c *Coordinator) StreamStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = NewFreshState(c.now())
	c.epoch++
	c.manual = false
	c.signalLocked()
}

// StreamFailed records an abnormal stream termination and returns the new state.
func (c *Coordinator) StreamFailed(err error) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = NewFailedState(c.state.Attempt, Classify(err), c.now())
	c.manual = false
	slog.Debug("Stream failed",
		"attempt", c.state.Attempt,
		"retry_in", Delay(c.state.Attempt, c.initialDelay),
		"error", err)
	c.signalLocked()
	return c.state
}

// ManualRetry records a user-requested retry. The attempt counter is kept.
func (c *Coordinator) ManualRetry() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = NewManualRetryState(c.state.Attempt, c.now(), c.initialDelay)
	c.manual = true
	slog.Debug("Manual retry requested", "attempt", c.state.Attempt)
	c.signalLocked()
	return c.state
}

// Wait blocks until a retry may fire: either the backoff for the current
// attempt has elapsed or a manual retry was requested. It returns
// ErrSuperseded if a stream starts meanwhile and ctx.Err() on cancellation.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	for {
		c.mu.Lock()
		if c.epoch != epoch {
			c.mu.Unlock()
			return ErrSuperseded
		}
		if c.manual {
			c.manual = false
			c.mu.Unlock()
			return nil
		}
		remaining := c.state.Remaining(c.now(), c.initialDelay)
		wake := c.wake
		c.mu.Unlock()

		if remaining <= 0 {
			return nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
		case <-wake:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (c *Coordinator) signalLocked() {
	close(c.wake)
	c.wake = make(chan struct{})
}

package engine

import (
	"math/rand"
	"time"
)

// ConnState enumerates the connection state machine driven by the engine's
// retry controller. No other component mutates it.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateBackoff      ConnState = "backoff"
	StateFailed       ConnState = "failed"
)

// ConnStatus is the externally visible connection state, including backoff
// progress and the failure reason once the retry budget is exhausted.
type ConnStatus struct {
	State     ConnState     `json:"state"`
	Attempt   int           `json:"attempt,omitempty"`
	NextDelay time.Duration `json:"next_delay,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

// maxCapDelay bounds the backoff cap regardless of the configured base.
const maxCapDelay = 30 * time.Second

// RetryPolicy computes bounded exponential backoff delays with jitter.
// BaseDelay and MaxAttempts arrive as already-validated configuration.
type RetryPolicy struct {
	BaseDelay   time.Duration
	CapDelay    time.Duration
	MaxAttempts int
}

// NewRetryPolicy derives the cap as base*2^8, clamped to 30s.
func NewRetryPolicy(baseDelay time.Duration, maxAttempts int) RetryPolicy {
	capDelay := baseDelay << 8
	if capDelay > maxCapDelay || capDelay <= 0 {
		capDelay = maxCapDelay
	}
	return RetryPolicy{
		BaseDelay:   baseDelay,
		CapDelay:    capDelay,
		MaxAttempts: maxAttempts,
	}
}

// Delay returns the deterministic backoff delay for an attempt:
// min(base * 2^attempt, cap). Non-decreasing in attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay <<= 1
		if delay >= p.CapDelay || delay <= 0 {
			return p.CapDelay
		}
	}
	if delay > p.CapDelay {
		return p.CapDelay
	}
	return delay
}

// Jittered returns Delay(attempt) plus uniform jitter in [0, delay/4], so
// the total is bounded above by cap * 1.25.
func (p RetryPolicy) Jittered(attempt int) time.Duration {
	delay := p.Delay(attempt)
	span := int64(delay / 4)
	if span <= 0 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(span+1))
}

// Exhausted reports whether the attempt counter has passed the budget.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt > p.MaxAttempts
}

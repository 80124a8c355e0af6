// Package resilience keeps long-lived streams alive across transient
// failures.
//
// The central type is [Redialer], which re-establishes a dropped stream with
// exponential backoff. A teleprompter feed that dies mid-show should come
// back on its own when the recognition server recovers, rather than leaving
// the presenter with a frozen display.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrGaveUp is returned by [Redialer.Run] after the consecutive attempt
// budget is exhausted.
var ErrGaveUp = errors.New("resilience: gave up redialling")

// RedialConfig holds tuning knobs for a [Redialer]. Zero-value fields are
// replaced with defaults.
type RedialConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// InitialDelay is the wait before the first redial. Default: 500ms.
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff. Default: 15s.
	MaxDelay time.Duration

	// MaxAttempts is the number of consecutive failed dials tolerated before
	// giving up. Default: 10.
	MaxAttempts int

	// HealthyAfter is how long a stream must stay up for the failure counter
	// to reset. Shorter-lived streams count as failures even though the dial
	// itself succeeded. Default: 30s.
	HealthyAfter time.Duration
}

// Redialer drives a dial function in a loop, backing off between failures.
// A single Redialer tracks one stream; it is not safe for concurrent Run
// calls.
type Redialer struct {
	name         string
	initialDelay time.Duration
	maxDelay     time.Duration
	maxAttempts  int
	healthyAfter time.Duration

	failures int
}

// NewRedialer creates a [Redialer] with the supplied configuration.
func NewRedialer(cfg RedialConfig) *Redialer {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.HealthyAfter <= 0 {
		cfg.HealthyAfter = 30 * time.Second
	}
	return &Redialer{
		name:         cfg.Name,
		initialDelay: cfg.InitialDelay,
		maxDelay:     cfg.MaxDelay,
		maxAttempts:  cfg.MaxAttempts,
		healthyAfter: cfg.HealthyAfter,
	}
}

// Run calls dial until it returns nil, ctx is cancelled, or the attempt
// budget is spent. dial should block for the life of the stream and return
// an error when it drops; a nil return means a clean stop and ends the loop.
func (r *Redialer) Run(ctx context.Context, dial func(context.Context) error) error {
	for {
		start := time.Now()
		err := dial(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		if time.Since(start) >= r.healthyAfter {
			r.failures = 0
		}
		r.failures++
		if r.failures > r.maxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, r.maxAttempts, err)
		}

		delay := r.backoff(r.failures)
		slog.Warn("stream dropped, redialling",
			"name", r.name,
			"attempt", r.failures,
			"delay", delay,
			"err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// backoff returns the wait before the nth consecutive redial, doubling from
// the initial delay up to the cap.
func (r *Redialer) backoff(attempt int) time.Duration {
	d := r.initialDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= r.maxDelay {
			return r.maxDelay
		}
	}
	return d
}

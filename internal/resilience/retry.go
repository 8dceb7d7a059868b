package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls how DoVal re-attempts a failed call. The zero value
// takes the defaults below, so callers only set what they care about.
type RetryConfig struct {
	// MaxAttempts counts the first try too; 1 disables retries. Default 3.
	MaxAttempts int

	// InitialBackoff is the sleep before the first retry. Default 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the grown sleep. Default 10s: a record's cascade
	// step should miss and move on rather than stall the batch.
	MaxBackoff time.Duration

	// Multiplier grows the sleep between attempts. Default 2.
	Multiplier float64

	// JitterFraction spreads each sleep by ±this fraction so parallel
	// attachment downloads do not re-hit a struggling host in lockstep.
	// Default 0.25.
	JitterFraction float64

	// OnRetry, when set, observes each retry before its sleep.
	OnRetry func(attempt int, err error)
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

// sleep computes the jittered backoff for a zero-based attempt index.
func (cfg RetryConfig) sleep(attempt int) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}
	if cfg.JitterFraction > 0 {
		d += d * cfg.JitterFraction * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// DoVal runs fn until it succeeds, fails permanently, or runs out of
// attempts. Only transient errors (per IsTransient) are retried; context
// cancellation ends the loop immediately and returns the last error.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) {
			return zero, lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err)
		}
		timer := time.NewTimer(cfg.sleep(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// RetryLogger returns an OnRetry callback that warns through the global
// logger with the component and operation attached.
func RetryLogger(component, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying",
			zap.String("component", component),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CircuitState is the breaker's position.
type CircuitState int

const (
	// StateClosed lets every call through.
	StateClosed CircuitState = iota
	// StateOpen rejects calls without trying them.
	StateOpen
	// StateHalfOpen lets a bounded number of probes through after the
	// reset timeout; their outcome decides the next state.
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned without calling the protected function while
// the breaker is open. It is never transient from the caller's point of
// view: the cascade should fall through to its next source.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig tunes a breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is how many consecutive failures open the breaker.
	FailureThreshold int

	// ResetTimeout is how long an open breaker waits before probing.
	ResetTimeout time.Duration

	// HalfOpenMaxProbes bounds concurrent probes while half-open.
	HalfOpenMaxProbes int
}

// DefaultCircuitBreakerConfig suits the detail endpoint: a handful of
// consecutive failures means the endpoint is down for everyone, and a
// minute is long enough for most PNCP blips to pass.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:  5,
		ResetTimeout:      time.Minute,
		HalfOpenMaxProbes: 1,
	}
}

// CircuitBreaker cuts off an endpoint after consecutive failures so a dead
// detail API costs the run one rejection per record instead of one timeout
// per record.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
	probes   int
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = time.Minute
	}
	if cfg.HalfOpenMaxProbes <= 0 {
		cfg.HalfOpenMaxProbes = 1
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// State reports the current position, accounting for an elapsed reset
// timeout.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset force-closes the breaker and clears its failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toState(StateClosed)
}

// admit decides whether a call may proceed, moving open → half-open when
// the reset timeout has elapsed.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.openedAt) < cb.cfg.ResetTimeout {
			return ErrCircuitOpen
		}
		cb.toState(StateHalfOpen)
		cb.probes = 1
		return nil
	default: // StateHalfOpen
		if cb.probes >= cb.cfg.HalfOpenMaxProbes {
			return ErrCircuitOpen
		}
		cb.probes++
		return nil
	}
}

// settle records a call's outcome.
func (cb *CircuitBreaker) settle(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state == StateHalfOpen {
			cb.toState(StateClosed)
		}
		cb.failures = 0
		return
	}

	if cb.state == StateHalfOpen {
		// The probe failed; back to open for another timeout.
		cb.toState(StateOpen)
		return
	}
	cb.failures++
	if cb.failures >= cb.cfg.FailureThreshold {
		cb.toState(StateOpen)
	}
}

func (cb *CircuitBreaker) toState(to CircuitState) {
	if cb.state == to {
		return
	}
	zap.L().Info("circuit breaker state change",
		zap.String("from", cb.state.String()),
		zap.String("to", to.String()),
		zap.Int("consecutive_failures", cb.failures),
	)
	cb.state = to
	cb.probes = 0
	cb.failures = 0
	if to == StateOpen {
		cb.openedAt = time.Now()
	}
}

// ExecuteVal runs fn through the breaker, returning ErrCircuitOpen without
// calling it when the breaker is open.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := cb.admit(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	cb.settle(err)
	if err != nil {
		return zero, err
	}
	return val, nil
}

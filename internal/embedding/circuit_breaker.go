package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the circuit breaker is in open state and
// rejects requests to prevent hammering an unhealthy embedding provider.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// breakerConfig holds the circuit breaker tuning knobs.
type breakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip
	// the circuit.
	MaxFailures uint32

	// Timeout is the duration the circuit stays open before transitioning
	// to half-open.
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the number of successes allowed in half-open
	// state before the circuit closes again.
	HalfOpenMaxSuccesses uint32
}

// breaker wraps gobreaker for embedding calls. Three states: closed (normal
// operation), open (all requests rejected after MaxFailures consecutive
// failures), and half-open (test requests allowed after Timeout).
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

// newBreaker creates a circuit breaker with defaults suited to batch
// embedding workloads: 3 consecutive failures trip it, it recovers after 30
// seconds.
func newBreaker(name string) *breaker {
	cfg := breakerConfig{
		MaxFailures:          3,
		Timeout:              30 * time.Second,
		HalfOpenMaxSuccesses: 2,
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxSuccesses,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
	}

	return &breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// execute runs an embedding call through the circuit breaker. If the circuit
// is open, ErrCircuitOpen is returned immediately.
func (b *breaker) execute(ctx context.Context, fn func() ([]float32, error)) ([]float32, error) {
	// A cancelled context should never count as a provider failure.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}

	return result.([]float32), nil
}

// state returns the current circuit state: "closed", "open", or "half-open".
func (b *breaker) state() string {
	switch b.cb.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

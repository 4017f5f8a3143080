// Package resilience wraps repository and publisher operations with a
// circuit breaker and retry logic. The conflict scanner runs its repository
// query through an Executor so that a struggling store fails the scan fast;
// a failed scan blocks the save rather than passing it.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for guarded operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Config holds configuration for an Executor.
type Config struct {
	// Name identifies this executor for circuit breaker naming.
	Name string

	// MaxRetries is the maximum number of retry attempts.
	// Default: 3
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 50ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 1 second
	MaxInterval time.Duration

	// BreakerTimeout is the period of open state before half-open.
	// Default: 30 seconds
	BreakerTimeout time.Duration

	// ReadyToTrip determines when to trip the circuit breaker.
	// If nil, trips at 5+ requests with a 50% failure rate.
	ReadyToTrip func(counts gobreaker.Counts) bool
}

// DefaultConfig returns sensible defaults for guarding a local store.
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		BreakerTimeout:  30 * time.Second,
	}
}

// defaultReadyToTrip trips the breaker when at least 5 requests have been
// made and the failure rate is 50% or higher.
func defaultReadyToTrip(counts gobreaker.Counts) bool {
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return counts.Requests >= 5 && failureRatio >= 0.5
}

// Executor runs operations with circuit breaker protection and retry logic.
type Executor[T any] struct {
	breaker *gobreaker.CircuitBreaker[T]
	config  Config
}

// NewExecutor creates a guarded executor for operations returning T.
func NewExecutor[T any](cfg Config) *Executor[T] {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = defaultReadyToTrip
	}

	breaker := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: cfg.ReadyToTrip,
		// Errors marked Permanent are business outcomes (constraint
		// violations, not-found); they must not trip the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var perm *backoff.PermanentError
			return errors.As(err, &perm)
		},
	})

	return &Executor[T]{breaker: breaker, config: cfg}
}

// Permanent marks an error as not retryable. Constraint violations and
// not-found errors are outcomes, not transient failures; retrying them would
// only repeat the answer.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Execute runs the operation through the circuit breaker, retrying transient
// failures with exponential backoff. Returns ErrCircuitOpen immediately when
// the breaker is open.
func (e *Executor[T]) Execute(ctx context.Context, op func(ctx context.Context) (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.config.InitialInterval
	bo.MaxInterval = e.config.MaxInterval
	bo.MaxElapsedTime = 0 // retries are bounded by WithMaxRetries

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, e.config.MaxRetries), ctx)

	var result T
	operation := func() error {
		value, err := e.breaker.Execute(func() (T, error) {
			return op(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			return err
		}
		result = value
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// State returns the current state of the circuit breaker.
func (e *Executor[T]) State() gobreaker.State {
	return e.breaker.State()
}

// Counts returns the current counts of the circuit breaker.
func (e *Executor[T]) Counts() gobreaker.Counts {
	return e.breaker.Counts()
}

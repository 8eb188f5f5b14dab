package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Observer receives retry and breaker events per dependency.
type Observer interface {
	ObserveRetry(dependency string)
	ObserveBreakerState(dependency, state string)
}

// Executor retries calls to external dependencies and trips one circuit
// breaker per dependency, so a failing qdrant search also short-circuits
// qdrant upserts.
type Executor struct {
	cfg      Config
	logger   *slog.Logger
	observer Observer
	roll     func() float64

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg,
		logger:   slog.Default(),
		roll:     rand.Float64,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

func (e *Executor) WithObserver(observer Observer) *Executor {
	e.observer = observer
	return e
}

// ExecuteValue is Execute for calls that return a value. A nil executor
// calls fn once.
func ExecuteValue[T any](
	ctx context.Context,
	e *Executor,
	operation string,
	fn func(context.Context) (T, error),
	classifier ErrorClassifier,
) (T, error) {
	if e == nil {
		return fn(ctx)
	}
	var out T
	err := e.Execute(ctx, operation, func(callCtx context.Context) error {
		v, err := fn(callCtx)
		if err == nil {
			out = v
		}
		return err
	}, classifier)
	return out, err
}

// Execute runs fn under the policy of the operation's dependency. A nil
// classifier treats every error as permanent.
func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil callback for %q", operation)
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	if classifier == nil {
		classifier = permanent
	}
	dependency := dependencyOf(operation)
	policy := e.cfg.For(dependency)

	attempt := func() error {
		return e.retry(ctx, dependency, operation, policy.Retry, fn, classifier)
	}
	if !policy.Breaker.Enabled {
		return attempt()
	}
	_, err := e.breaker(dependency, policy.Breaker, classifier).Execute(func() (struct{}, error) {
		return struct{}{}, attempt()
	})
	return err
}

func (e *Executor) retry(
	ctx context.Context,
	dependency, operation string,
	policy RetryPolicy,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	var err error
	for n := 1; n <= policy.MaxAttempts; n++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if n == policy.MaxAttempts || !classifier(err).Retryable {
			return err
		}

		wait := policy.delay(n, e.roll)
		e.logger.Warn("dependency_retry",
			"dependency", dependency,
			"operation", operation,
			"attempt", n,
			"max_attempts", policy.MaxAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", err,
		)
		if e.observer != nil {
			e.observer.ObserveRetry(dependency)
		}
		if !sleep(ctx, wait) {
			return err
		}
	}
	return err
}

func (e *Executor) breaker(dependency string, policy BreakerPolicy, classifier ErrorClassifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[dependency]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        dependency,
		MaxRequests: policy.HalfOpenMaxCalls,
		Timeout:     policy.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < policy.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= policy.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classifier(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("dependency_breaker_state_changed",
				"dependency", name,
				"from", from.String(),
				"to", to.String(),
			)
			if e.observer != nil {
				e.observer.ObserveBreakerState(name, to.String())
			}
		},
	})
	e.breakers[dependency] = cb
	return cb
}

// sleep reports false when ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func permanent(error) ErrorClassification {
	return ErrorClassification{RecordFailure: true}
}

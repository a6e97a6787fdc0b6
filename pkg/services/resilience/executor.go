// Package resilience wraps outbound provider calls with bounded retry,
// exponential backoff with jitter, and a per-endpoint circuit breaker.
// Callers observe a successful result, a terminal provider error, or
// CircuitOpen/RetriesExhausted - never an unbounded hang.
package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/de-tools/defender-bridge/pkg/models/domain"
)

// Transient marks an error as retryable (rate limit, transient network or
// service failure). Errors without this marker propagate immediately.
type Transient interface {
	Transient() bool
}

// RetryAfterHint exposes an explicit provider retry-after value, which
// overrides the computed backoff delay.
type RetryAfterHint interface {
	RetryAfter() (time.Duration, bool)
}

type Config struct {
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	MaxAttempts      int
	JitterFraction   float64
	BreakerThreshold int
	Cooldown         time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseDelay:        1 * time.Second,
		MaxDelay:         60 * time.Second,
		MaxAttempts:      5,
		JitterFraction:   0.2,
		BreakerThreshold: 10,
		Cooldown:         5 * time.Minute,
	}
}

type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*breaker

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64 // uniform in [-1, 1)
}

func NewExecutor(cfg Config) *Executor {
	def := DefaultConfig()
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = def.BreakerThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Executor{
		cfg:      cfg,
		breakers: make(map[string]*breaker),
		now:      time.Now,
		sleep:    sleepContext,
		jitter:   func() float64 { return rand.Float64()*2 - 1 },
	}
}

// Execute runs op under the retry/breaker policy of the endpoint's breaker.
// Retries and backoff waits are per-call; only the breaker state is shared
// between concurrent calls to the same logical endpoint.
func Execute[T any](ctx context.Context, e *Executor, endpoint string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	br := e.breakerFor(endpoint)

	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		if err := br.allow(); err != nil {
			return zero, err
		}

		res, err := op(ctx)
		if err == nil {
			br.recordSuccess()
			return res, nil
		}
		if !IsTransient(err) {
			// The endpoint answered; a terminal error is the caller's
			// problem, not a sign of endpoint failure.
			br.recordSuccess()
			return zero, err
		}

		br.recordFailure()
		lastErr = err
		if attempt == e.cfg.MaxAttempts-1 {
			break
		}
		if err := e.sleep(ctx, e.delay(attempt, err)); err != nil {
			return zero, err
		}
	}

	return zero, domain.NewError(domain.CodeRetriesExhausted,
		"provider call %q failed after %d attempts", endpoint, e.cfg.MaxAttempts).
		WithDetail("attempts", e.cfg.MaxAttempts).
		WithCause(lastErr)
}

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool {
	var t Transient
	return errors.As(err, &t) && t.Transient()
}

func (e *Executor) breakerFor(endpoint string) *breaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	br, ok := e.breakers[endpoint]
	if !ok {
		br = &breaker{
			threshold: e.cfg.BreakerThreshold,
			cooldown:  e.cfg.Cooldown,
			now:       e.now,
		}
		e.breakers[endpoint] = br
	}
	return br
}

func (e *Executor) delay(attempt int, err error) time.Duration {
	var hint RetryAfterHint
	if errors.As(err, &hint) {
		if d, ok := hint.RetryAfter(); ok {
			return d
		}
	}

	d := e.cfg.BaseDelay << attempt
	if d <= 0 || d > e.cfg.MaxDelay {
		d = e.cfg.MaxDelay
	}
	if e.cfg.JitterFraction > 0 {
		d = time.Duration(float64(d) * (1 + e.cfg.JitterFraction*e.jitter()))
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

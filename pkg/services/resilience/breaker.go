package resilience

import (
	"sync"
	"time"

	"github.com/de-tools/defender-bridge/pkg/models/domain"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// breaker guards a single logical endpoint. It opens after a run of
// consecutive failures, fails fast during the cool-down window, then admits
// exactly one half-open trial call; concurrent callers during the trial fail
// fast rather than racing it.
type breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state       breakerState
	consecutive int
	openedAt    time.Time
	trial       bool
}

func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return nil
	case stateOpen:
		remaining := b.cooldown - b.now().Sub(b.openedAt)
		if remaining > 0 {
			return openError(remaining)
		}
		b.state = stateHalfOpen
		b.trial = true
		return nil
	default: // half-open
		if b.trial {
			return openError(0)
		}
		b.trial = true
		return nil
	}
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = stateClosed
	b.consecutive = 0
	b.trial = false
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
	b.consecutive++
	if b.state == stateHalfOpen || b.consecutive >= b.threshold {
		b.state = stateOpen
		b.openedAt = b.now()
	}
}

func openError(remaining time.Duration) error {
	if remaining <= 0 {
		return domain.NewError(domain.CodeCircuitOpen,
			"circuit breaker is half-open and a trial call is already in flight").
			WithDetail("cooldown_remaining_seconds", 0.0)
	}
	return domain.NewError(domain.CodeCircuitOpen,
		"circuit breaker is open; retry in %s", remaining.Round(time.Second)).
		WithDetail("cooldown_remaining_seconds", remaining.Seconds())
}

package maintenance

import (
	"time"
)

const day = 24 * time.Hour

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// Engine evaluates recurrence, overdue status, reminder timing and cost
// variance against a fixed set of rules. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	rules Rules
	clock Clock
}

// NewEngine validates the rules and returns an engine holding a private
// copy of them. A nil clock means SystemClock.
func NewEngine(rules Rules, clock Clock) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{rules: rules.clone(), clock: clock}, nil
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Rules returns a copy of the engine's rules.
func (e *Engine) Rules() Rules {
	return e.rules.clone()
}

func days(n int) time.Duration {
	return time.Duration(n) * day
}

// Package latency models the bounded, fixed per-operation delays of the
// simulated chain. Sleeps are cooperative: they observe context cancellation
// but an operation that has passed its await point always runs to completion.
package latency

import (
	"context"
	"time"
)

// Profile fixes the simulated delay for each ledger operation.
type Profile struct {
	Initialize time.Duration `yaml:"initialize"`
	Connect    time.Duration `yaml:"connect"`
	Balance    time.Duration `yaml:"balance"`
	Register   time.Duration `yaml:"register"`
	LogEvent   time.Duration `yaml:"log_event"`
	Query      time.Duration `yaml:"query"`
	Authorize  time.Duration `yaml:"authorize"`
	Admin      time.Duration `yaml:"admin"`
}

// Default is the latency profile of the simulated chain.
func Default() Profile {
	return Profile{
		Initialize: 1000 * time.Millisecond,
		Connect:    800 * time.Millisecond,
		Balance:    300 * time.Millisecond,
		Register:   2000 * time.Millisecond,
		LogEvent:   1500 * time.Millisecond,
		Query:      500 * time.Millisecond,
		Authorize:  1000 * time.Millisecond,
		Admin:      200 * time.Millisecond,
	}
}

// None disables simulated delays. Used by tests.
func None() Profile {
	return Profile{}
}

// Sleep blocks for d or until the context is cancelled, whichever comes
// first. A zero or negative d returns immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

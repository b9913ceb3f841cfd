// Package scheduler abstracts periodic callbacks so the aggregator can be
// driven by real timers in production and by virtual time in tests.
package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// Cancel stops a registration. It is safe to call more than once.
type Cancel func()

// Scheduler runs fn every interval until cancelled. The first call happens
// one interval after registration.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Cancel
}

// Kind names a scheduler implementation in config.
type Kind string

const (
	KindTicker    Kind = "ticker"
	KindWallclock Kind = "wallclock"
)

// New returns the scheduler named by kind. An empty kind selects the ticker.
func New(kind Kind) (Scheduler, error) {
	switch kind {
	case "", KindTicker:
		return NewTicker(), nil
	case KindWallclock:
		return NewWallclock(), nil
	default:
		return nil, fmt.Errorf("unknown scheduler %q", kind)
	}
}

// Ticker runs each registration on its own goroutine and time.Ticker.
type Ticker struct{}

// NewTicker creates a ticker-backed scheduler.
func NewTicker() *Ticker {
	return &Ticker{}
}

// Every implements Scheduler.
func (t *Ticker) Every(interval time.Duration, fn func()) Cancel {
	ticker := time.NewTicker(interval)
	quit := make(chan struct{})

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() {
			close(quit)
		})
	}
}

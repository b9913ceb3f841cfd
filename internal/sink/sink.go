// Package sink forwards published dashboard snapshots to history and
// streaming backends.
package sink

import (
	"context"
	"sync"

	"github.com/aquaguardian/aquaboard/internal/dashboard"
)

// Config holds configuration for all sinks.
type Config struct {
	// Instance tags every exported record. Defaults to the hostname.
	Instance string        `yaml:"instance"`
	History  HistoryConfig `yaml:"history"`
	Stream   StreamConfig  `yaml:"stream"`
}

// Sink consumes published snapshots.
type Sink interface {
	// Name returns the sink's name for logging and metrics.
	Name() string
	// Start initializes the sink.
	Start(ctx context.Context) error
	// Stop flushes and shuts down the sink.
	Stop() error
	// HandleSnapshot receives every published snapshot in order. It must
	// not block for long.
	HandleSnapshot(snap *dashboard.Snapshot)
}

// Publisher is the part of the aggregator sinks subscribe to.
type Publisher interface {
	Subscribe(fn func(*dashboard.Snapshot)) (cancel func())
}

// Attach subscribes every sink to pub and returns a function that
// detaches them all.
func Attach(pub Publisher, sinks ...Sink) (detach func()) {
	cancels := make([]func(), 0, len(sinks))

	for _, s := range sinks {
		cancels = append(cancels, pub.Subscribe(s.HandleSnapshot))
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			for _, c := range cancels {
				c()
			}
		})
	}
}

// changeFilter drops snapshots whose values match the last one seen.
type changeFilter struct {
	enabled bool

	mu   sync.Mutex
	last uint64
	seen bool
}

func (f *changeFilter) admit(snap *dashboard.Snapshot) bool {
	if !f.enabled {
		return true
	}

	digest := snap.Digest()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen && digest == f.last {
		return false
	}

	f.last, f.seen = digest, true

	return true
}

package scheduler

import (
	"sync"
	"time"

	"github.com/ethpandaops/ethwallclock"
)

// Wallclock aligns callbacks to fixed-length slots counted from the moment
// of registration, using ethwallclock's slot change notifications. Slow
// callbacks do not delay later slots.
type Wallclock struct {
	now func() time.Time
}

// NewWallclock creates a slot-aligned scheduler.
func NewWallclock() *Wallclock {
	return &Wallclock{now: time.Now}
}

// Every implements Scheduler. Each registration owns a private chain
// whose slot duration equals interval.
func (w *Wallclock) Every(interval time.Duration, fn func()) Cancel {
	chain := ethwallclock.NewEthereumBeaconChain(w.now(), interval, 1)

	var (
		mu      sync.Mutex
		stopped bool
	)

	chain.OnSlotChanged(func(_ ethwallclock.Slot) {
		mu.Lock()
		done := stopped
		mu.Unlock()

		if done {
			return
		}

		fn()
	})

	var once sync.Once

	return func() {
		once.Do(func() {
			mu.Lock()
			stopped = true
			mu.Unlock()

			chain.Stop()
		})
	}
}

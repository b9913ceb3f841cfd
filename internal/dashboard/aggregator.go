// Package dashboard polls every metric source on a schedule and publishes
// complete, immutable snapshots to readers and subscribers.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/aquaguardian/aquaboard/internal/export"
	"github.com/aquaguardian/aquaboard/internal/metric"
	"github.com/aquaguardian/aquaboard/internal/scheduler"
	"github.com/aquaguardian/aquaboard/internal/source"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultClockInterval   = time.Second
)

var (
	// ErrStopped is returned for cycles that settle after Stop.
	ErrStopped = errors.New("aggregator stopped")
	// ErrStale is returned when a newer cycle already published.
	ErrStale = errors.New("superseded by a newer cycle")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("aggregator already started")
)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithParams sets the query parameters passed to every source.
func WithParams(p metric.Params) Option {
	return func(a *Aggregator) {
		a.params = p.WithDefaults()
	}
}

// WithRefreshInterval sets the time between aggregation cycles.
func WithRefreshInterval(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.refreshEvery = d
		}
	}
}

// WithClockInterval sets how often the presentational clock ticks.
func WithClockInterval(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.clockEvery = d
		}
	}
}

// WithNow overrides the time source used for publish times and the clock.
func WithNow(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithHealth records cycle metrics.
func WithHealth(h *export.HealthMetrics) Option {
	return func(a *Aggregator) {
		a.health = h
	}
}

// WithInlineCycles runs scheduled cycles on the scheduler's goroutine
// instead of spawning one. Start then blocks until the first cycle
// settles. Used with scheduler.Manual for deterministic tests.
func WithInlineCycles() Option {
	return func(a *Aggregator) {
		a.inline = true
	}
}

// Aggregator owns the published snapshot and the loading state.
type Aggregator struct {
	log          logrus.FieldLogger
	sources      []source.Source
	kinds        []metric.Kind
	sched        scheduler.Scheduler
	params       metric.Params
	refreshEvery time.Duration
	clockEvery   time.Duration
	now          func() time.Time
	health       *export.HealthMetrics
	inline       bool

	mu        sync.RWMutex
	snapshot  *Snapshot
	clock     time.Time
	inflight  int
	settled   bool
	nextSeq   uint64
	published uint64
	started   bool
	stopped   bool
	subs      map[int]func(*Snapshot)
	nextSub   int
	cancels   []scheduler.Cancel

	// notifyMu keeps subscriber callbacks in publish order.
	notifyMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an aggregator over sources. Each source must produce a
// distinct kind.
func New(
	log logrus.FieldLogger,
	sources []source.Source,
	sched scheduler.Scheduler,
	opts ...Option,
) (*Aggregator, error) {
	if len(sources) == 0 {
		return nil, errors.New("at least one source is required")
	}

	if sched == nil {
		return nil, errors.New("scheduler is required")
	}

	a := &Aggregator{
		log:          log.WithField("component", "aggregator"),
		sources:      make([]source.Source, len(sources)),
		kinds:        make([]metric.Kind, 0, len(sources)),
		sched:        sched,
		params:       metric.DefaultParams(),
		refreshEvery: DefaultRefreshInterval,
		clockEvery:   DefaultClockInterval,
		now:          time.Now,
		subs:         make(map[int]func(*Snapshot), 2),
	}

	copy(a.sources, sources)

	seen := make(map[metric.Kind]struct{}, len(sources))

	for _, src := range sources {
		if src == nil {
			return nil, errors.New("nil source")
		}

		kind := src.Kind()
		if _, dup := seen[kind]; dup {
			return nil, fmt.Errorf("duplicate source for kind %q", kind)
		}

		seen[kind] = struct{}{}
		a.kinds = append(a.kinds, kind)
	}

	for _, opt := range opts {
		opt(a)
	}

	a.clock = a.now()
	a.setLoadingGauge(true)

	return a, nil
}

// Kinds lists the kinds every snapshot contains.
func (a *Aggregator) Kinds() []metric.Kind {
	out := make([]metric.Kind, len(a.kinds))
	copy(out, a.kinds)

	return out
}

// Start runs an immediate cycle and schedules the refresh and clock timers.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()

	if a.started {
		a.mu.Unlock()

		return ErrAlreadyStarted
	}

	a.started = true
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"kinds":   len(a.kinds),
		"refresh": a.refreshEvery.String(),
		"clock":   a.clockEvery.String(),
	}).Info("Starting aggregator")

	a.trigger()

	refresh := a.sched.Every(a.refreshEvery, a.trigger)
	tick := a.sched.Every(a.clockEvery, a.tick)

	a.mu.Lock()
	a.cancels = append(a.cancels, refresh, tick)
	stopped := a.stopped
	a.mu.Unlock()

	// Stop raced with Start; make sure the timers do not outlive it.
	if stopped {
		refresh()
		tick()
	}

	return nil
}

// Stop cancels the timers and the owning context, then waits for
// in-flight cycles. Results that settle afterwards are discarded.
func (a *Aggregator) Stop() error {
	a.mu.Lock()

	if a.stopped {
		a.mu.Unlock()

		return nil
	}

	a.stopped = true
	cancels := a.cancels
	a.cancels = nil
	cancel := a.cancel
	a.mu.Unlock()

	for _, c := range cancels {
		c()
	}

	if cancel != nil {
		cancel()
	}

	a.wg.Wait()

	a.log.Info("Aggregator stopped")

	return nil
}

// Refresh runs one cycle now and returns the snapshot it published.
func (a *Aggregator) Refresh(ctx context.Context) (*Snapshot, error) {
	return a.RunCycle(ctx)
}

// Snapshot returns the latest published snapshot, or nil before the first
// successful cycle.
func (a *Aggregator) Snapshot() *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.snapshot
}

// IsLoading reports whether no cycle has settled yet.
func (a *Aggregator) IsLoading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.loadingLocked()
}

// Clock returns the presentational clock value.
func (a *Aggregator) Clock() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.clock
}

// Subscribe registers fn for every published snapshot. Callbacks run in
// publish order outside the state lock and must not call RunCycle.
func (a *Aggregator) Subscribe(fn func(*Snapshot)) (cancel func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
		})
	}
}

// RunCycle fans out to every source, waits for all of them and publishes
// the merged snapshot. A failed cycle keeps the previous snapshot.
func (a *Aggregator) RunCycle(ctx context.Context) (*Snapshot, error) {
	seq, err := a.begin()
	if err != nil {
		return nil, err
	}

	started := time.Now()
	results, cycleErr := a.collect(ctx, seq)

	if a.health != nil {
		a.health.CycleDuration.Observe(time.Since(started).Seconds())
	}

	if cycleErr == nil && ctx.Err() != nil {
		cycleErr = fmt.Errorf("cycle %d: %w", seq, ctx.Err())
	}

	return a.finish(seq, results, cycleErr)
}

func (a *Aggregator) begin() (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return 0, ErrStopped
	}

	a.nextSeq++
	a.inflight++
	a.setInFlightGauge()

	return a.nextSeq, nil
}

func (a *Aggregator) collect(
	ctx context.Context,
	seq uint64,
) ([]metric.Result[any], error) {
	var (
		wg      sync.WaitGroup
		results = make([]metric.Result[any], len(a.sources))
		errs    = make([]error, len(a.sources))
	)

	for i, src := range a.sources {
		wg.Add(1)

		go func() {
			defer wg.Done()

			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("source %s panicked: %v", src.Kind(), r)
				}
			}()

			results[i] = src.Collect(ctx, a.params)
		}()
	}

	wg.Wait()

	for i, r := range results {
		if errs[i] != nil {
			continue
		}

		want := a.kinds[i]

		switch {
		case r.Kind != want:
			errs[i] = fmt.Errorf("source %s returned a result for %q", want, r.Kind)
		case r.Origin != metric.OriginLive && r.Origin != metric.OriginFallback:
			errs[i] = fmt.Errorf("source %s returned unknown origin %q", want, r.Origin)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("cycle %d: %w", seq, err)
	}

	return results, nil
}

func (a *Aggregator) finish(
	seq uint64,
	results []metric.Result[any],
	cycleErr error,
) (*Snapshot, error) {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	var snap *Snapshot
	if cycleErr == nil {
		snap = newSnapshot(seq, a.now(), results)
	}

	a.mu.Lock()

	a.inflight--
	a.settled = true
	a.setInFlightGauge()

	switch {
	case a.stopped:
		a.setLoadingGauge(a.loadingLocked())
		a.mu.Unlock()
		a.discard(seq, "stopped")

		return nil, ErrStopped
	case errors.Is(cycleErr, context.Canceled),
		errors.Is(cycleErr, context.DeadlineExceeded):
		a.setLoadingGauge(a.loadingLocked())
		a.mu.Unlock()
		a.discard(seq, "cancelled")

		return nil, cycleErr
	case cycleErr != nil:
		prev := a.snapshot
		a.setLoadingGauge(a.loadingLocked())
		a.mu.Unlock()

		a.fail(seq, prev, cycleErr)

		return nil, cycleErr
	case seq <= a.published:
		a.setLoadingGauge(a.loadingLocked())
		a.mu.Unlock()
		a.discard(seq, "stale")

		return nil, ErrStale
	}

	unchanged := a.snapshot != nil && snap.Digest() == a.snapshot.Digest()

	a.snapshot = snap
	a.published = seq
	a.setLoadingGauge(a.loadingLocked())

	subs := make([]func(*Snapshot), 0, len(a.subs))
	ids := make([]int, 0, len(a.subs))

	for id := range a.subs {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	for _, id := range ids {
		subs = append(subs, a.subs[id])
	}

	a.mu.Unlock()

	a.record(snap, unchanged)

	for _, fn := range subs {
		a.notify(fn, snap)
	}

	return snap, nil
}

func (a *Aggregator) record(snap *Snapshot, unchanged bool) {
	fallback := snap.FallbackKinds()

	if a.health != nil {
		a.health.CyclesTotal.Inc()
		a.health.SnapshotSeq.Set(float64(snap.Seq()))
		a.health.SnapshotTime.Set(float64(snap.PublishedAt().Unix()))
		a.health.FallbackKinds.Set(float64(len(fallback)))
	}

	entry := a.log.WithFields(logrus.Fields{
		"seq":      snap.Seq(),
		"kinds":    snap.Len(),
		"fallback": len(fallback),
	})

	if unchanged {
		entry.Debug("Published snapshot (values unchanged)")

		return
	}

	if len(fallback) > 0 {
		entry = entry.WithField("fallback_kinds", fallback)
	}

	entry.Debug("Published snapshot")
}

func (a *Aggregator) fail(seq uint64, prev *Snapshot, err error) {
	if a.health != nil {
		a.health.CycleFailures.Inc()
	}

	entry := a.log.WithError(err).WithField("seq", seq)

	if prev != nil {
		entry = entry.WithFields(logrus.Fields{
			"kept_seq":       prev.Seq(),
			"kept_published": humanize.Time(prev.PublishedAt()),
		})
	}

	entry.Error("Aggregation cycle failed, keeping previous snapshot")
}

func (a *Aggregator) discard(seq uint64, reason string) {
	if a.health != nil {
		a.health.CyclesDiscarded.WithLabelValues(reason).Inc()
	}

	a.log.WithFields(logrus.Fields{
		"seq":    seq,
		"reason": reason,
	}).Debug("Discarded cycle results")
}

func (a *Aggregator) notify(fn func(*Snapshot), snap *Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("seq", snap.Seq()).
				Errorf("Snapshot subscriber panicked: %v", r)
		}
	}()

	fn(snap)
}

// trigger starts a cycle from a timer or Start.
func (a *Aggregator) trigger() {
	a.mu.Lock()

	if a.stopped || a.ctx == nil {
		a.mu.Unlock()

		return
	}

	ctx := a.ctx

	a.wg.Add(1)
	a.mu.Unlock()

	run := func() {
		defer a.wg.Done()

		// Failures are logged and counted by the cycle itself.
		_, _ = a.RunCycle(ctx)
	}

	if a.inline {
		run()

		return
	}

	go run()
}

func (a *Aggregator) tick() {
	now := a.now()

	a.mu.Lock()
	if !a.stopped {
		a.clock = now
	}
	a.mu.Unlock()
}

// loadingLocked is true until the first cycle settles. Later refreshes
// keep serving the previous snapshot without raising it again.
func (a *Aggregator) loadingLocked() bool {
	return !a.settled
}

func (a *Aggregator) setInFlightGauge() {
	if a.health == nil {
		return
	}

	a.health.CyclesInFlight.Set(float64(a.inflight))
}

func (a *Aggregator) setLoadingGauge(loading bool) {
	if a.health == nil {
		return
	}

	if loading {
		a.health.IsLoading.Set(1)
	} else {
		a.health.IsLoading.Set(0)
	}
}

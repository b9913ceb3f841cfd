package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aquaguardian/aquaboard/internal/dashboard"
	"github.com/aquaguardian/aquaboard/internal/export"
)

const historyName = "history"

// HistoryConfig configures the ClickHouse snapshot history sink.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// OnlyChanged skips snapshots whose values equal the previous one.
	OnlyChanged bool                    `yaml:"only_changed"`
	ClickHouse  export.ClickHouseConfig `yaml:"clickhouse"`
}

// rowWriter is satisfied by export.ClickHouseWriter.
type rowWriter interface {
	Start(ctx context.Context) error
	Stop() error
	Config() export.ClickHouseConfig
	WriteRows(ctx context.Context, rows []export.ResultRow) error
}

// HistorySink batches snapshot rows into ClickHouse.
type HistorySink struct {
	log      logrus.FieldLogger
	writer   rowWriter
	health   *export.HealthMetrics
	instance string
	filter   changeFilter

	mu     sync.Mutex
	batch  []export.ResultRow
	snapCh chan *dashboard.Snapshot
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Sink = (*HistorySink)(nil)

// NewHistorySink creates a ClickHouse-backed history sink.
func NewHistorySink(
	log logrus.FieldLogger,
	cfg HistoryConfig,
	instance string,
	health *export.HealthMetrics,
) *HistorySink {
	return newHistorySink(log, export.NewClickHouseWriter(log, cfg.ClickHouse), cfg, instance, health)
}

func newHistorySink(
	log logrus.FieldLogger,
	writer rowWriter,
	cfg HistoryConfig,
	instance string,
	health *export.HealthMetrics,
) *HistorySink {
	return &HistorySink{
		log:      log.WithField("sink", historyName),
		writer:   writer,
		health:   health,
		instance: instance,
		filter:   changeFilter{enabled: cfg.OnlyChanged},
		batch:    make([]export.ResultRow, 0, writer.Config().BatchSize),
		snapCh:   make(chan *dashboard.Snapshot, 64),
		done:     make(chan struct{}),
	}
}

// Name returns the sink name.
func (s *HistorySink) Name() string { return historyName }

// Start connects to ClickHouse and starts the flush loop.
func (s *HistorySink) Start(ctx context.Context) error {
	if err := s.writer.Start(ctx); err != nil {
		return fmt.Errorf("starting history writer: %w", err)
	}

	ctx, s.cancel = context.WithCancel(ctx)

	go s.runLoop(ctx)

	s.log.Info("History sink started")

	return nil
}

// Stop flushes queued rows and closes the connection.
func (s *HistorySink) Stop() error {
	if s.cancel == nil {
		return s.writer.Stop()
	}

	s.cancel()
	<-s.done

	s.drain()

	s.mu.Lock()
	remaining := s.batch
	s.batch = nil
	s.mu.Unlock()

	if err := s.flush(context.Background(), remaining); err != nil {
		s.log.WithError(err).Error("Final flush failed")
	}

	return s.writer.Stop()
}

// HandleSnapshot queues the snapshot's rows. Snapshots are dropped when
// the queue is full.
func (s *HistorySink) HandleSnapshot(snap *dashboard.Snapshot) {
	if !s.filter.admit(snap) {
		return
	}

	select {
	case s.snapCh <- snap:
		if s.health != nil {
			s.health.SinkSnapshots.WithLabelValues(historyName).Inc()
		}
	default:
		s.log.WithField("seq", snap.Seq()).Warn("History queue full, dropping snapshot")
		s.recordError()
	}
}

func (s *HistorySink) runLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.writer.Config().FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-s.snapCh:
			if full := s.add(snap); full != nil {
				if err := s.flush(ctx, full); err != nil {
					s.log.WithError(err).Error("Batch flush failed")
				}
			}
		case <-ticker.C:
			s.mu.Lock()
			pending := s.batch
			s.batch = make([]export.ResultRow, 0, cap(pending))
			s.mu.Unlock()

			if err := s.flush(ctx, pending); err != nil {
				s.log.WithError(err).Error("Periodic flush failed")
			}
		}
	}
}

// drain moves snapshots still queued after the loop exited into the batch.
func (s *HistorySink) drain() {
	for {
		select {
		case snap := <-s.snapCh:
			if full := s.add(snap); full != nil {
				if err := s.flush(context.Background(), full); err != nil {
					s.log.WithError(err).Error("Drain flush failed")
				}
			}
		default:
			return
		}
	}
}

// add queues the snapshot's rows and returns the batch when it is full.
func (s *HistorySink) add(snap *dashboard.Snapshot) []export.ResultRow {
	rows := toRows(snap, s.instance)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.batch = append(s.batch, rows...)

	if len(s.batch) < s.writer.Config().BatchSize {
		return nil
	}

	full := s.batch
	s.batch = make([]export.ResultRow, 0, cap(full))

	return full
}

func (s *HistorySink) flush(ctx context.Context, rows []export.ResultRow) error {
	if len(rows) == 0 {
		return nil
	}

	start := time.Now()

	if err := s.writer.WriteRows(ctx, rows); err != nil {
		s.recordError()

		return err
	}

	if s.health != nil {
		s.health.SinkFlushDuration.WithLabelValues(historyName).
			Observe(time.Since(start).Seconds())
	}

	s.log.WithField("rows", len(rows)).Debug("Flushed snapshot history")

	return nil
}

func (s *HistorySink) recordError() {
	if s.health != nil {
		s.health.SinkErrors.WithLabelValues(historyName).Inc()
	}
}

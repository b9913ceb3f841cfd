package sink

import (
	"context"
	"fmt"

	processor "github.com/ethpandaops/go-batch-processor"
	"github.com/sirupsen/logrus"

	"github.com/aquaguardian/aquaboard/internal/dashboard"
	"github.com/aquaguardian/aquaboard/internal/export"
	httpexport "github.com/aquaguardian/aquaboard/internal/export/http"
)

const streamName = "stream"

// StreamConfig configures NDJSON streaming of snapshot results.
type StreamConfig struct {
	Enabled bool `yaml:"enabled"`
	// OnlyChanged skips snapshots whose values equal the previous one.
	OnlyChanged bool              `yaml:"only_changed"`
	HTTP        httpexport.Config `yaml:"http"`
}

// StreamSink writes one record per kind of every snapshot to an HTTP
// collector through a batch processor.
type StreamSink struct {
	log      logrus.FieldLogger
	health   *export.HealthMetrics
	instance string
	filter   changeFilter
	proc     *processor.BatchItemProcessor[ResultRecord]

	ctx context.Context
}

var _ Sink = (*StreamSink)(nil)

// NewStreamSink validates cfg and creates the processor.
func NewStreamSink(
	log logrus.FieldLogger,
	cfg StreamConfig,
	instance string,
	health *export.HealthMetrics,
) (*StreamSink, error) {
	httpCfg := cfg.HTTP
	httpCfg.Enabled = true

	proc, err := httpexport.NewProcessor[ResultRecord](log, httpCfg, "snapshot_stream")
	if err != nil {
		return nil, fmt.Errorf("creating stream processor: %w", err)
	}

	return &StreamSink{
		log:      log.WithField("sink", streamName),
		health:   health,
		instance: instance,
		filter:   changeFilter{enabled: cfg.OnlyChanged},
		proc:     proc,
		ctx:      context.Background(),
	}, nil
}

// Name returns the sink name.
func (s *StreamSink) Name() string { return streamName }

// Start starts the batch processor.
func (s *StreamSink) Start(ctx context.Context) error {
	s.ctx = ctx
	s.proc.Start(ctx)

	s.log.Info("Stream sink started")

	return nil
}

// Stop drains the batch processor.
func (s *StreamSink) Stop() error {
	if err := s.proc.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("shutting down stream processor: %w", err)
	}

	return nil
}

// HandleSnapshot writes one record per kind to the stream.
func (s *StreamSink) HandleSnapshot(snap *dashboard.Snapshot) {
	if !s.filter.admit(snap) {
		return
	}

	rows := toRows(snap, s.instance)
	records := make([]*ResultRecord, 0, len(rows))

	for _, row := range rows {
		records = append(records, toRecord(row))
	}

	if err := s.proc.Write(s.ctx, records); err != nil {
		s.log.WithError(err).WithField("seq", snap.Seq()).
			Warn("Stream queue rejected snapshot")

		if s.health != nil {
			s.health.SinkErrors.WithLabelValues(streamName).Inc()
		}

		return
	}

	if s.health != nil {
		s.health.SinkSnapshots.WithLabelValues(streamName).Inc()
	}
}

// Package daemon wires the backend sources, the aggregator, the status
// server and the snapshot sinks into one long-running process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/aquaguardian/aquaboard/internal/dashboard"
	"github.com/aquaguardian/aquaboard/internal/export"
	"github.com/aquaguardian/aquaboard/internal/fallback"
	"github.com/aquaguardian/aquaboard/internal/scheduler"
	"github.com/aquaguardian/aquaboard/internal/sink"
	"github.com/aquaguardian/aquaboard/internal/source"
)

// Daemon is the top-level orchestrator for aquaboard.
type Daemon interface {
	// Start brings up the status server, sinks and aggregator.
	Start(ctx context.Context) error
	// Stop shuts everything down in reverse order.
	Stop() error
	// Aggregator exposes the running aggregator.
	Aggregator() *dashboard.Aggregator
	// StatusAddr is the bound address of the status server.
	StatusAddr() string
}

type daemon struct {
	log    logrus.FieldLogger
	cfg    *Config
	health *export.HealthMetrics
	agg    *dashboard.Aggregator
	sinks  []sink.Sink

	started []sink.Sink
	detach  func()
}

// New builds every component from cfg without starting any of them.
func New(log logrus.FieldLogger, cfg *Config) (Daemon, error) {
	health := export.NewHealthMetrics(log, cfg.Health)

	agg, err := newAggregator(log, cfg, health)
	if err != nil {
		return nil, err
	}

	d := &daemon{
		log:    log.WithField("component", "daemon"),
		cfg:    cfg,
		health: health,
		agg:    agg,
		sinks:  make([]sink.Sink, 0, 2),
	}

	instance := cfg.Sinks.Instance
	if instance == "" {
		instance, _ = os.Hostname()
	}

	if cfg.Sinks.History.Enabled {
		d.sinks = append(d.sinks, sink.NewHistorySink(
			log, cfg.Sinks.History, instance, health,
		))
	}

	if cfg.Sinks.Stream.Enabled {
		s, err := sink.NewStreamSink(log, cfg.Sinks.Stream, instance, health)
		if err != nil {
			return nil, fmt.Errorf("creating stream sink: %w", err)
		}

		d.sinks = append(d.sinks, s)
	}

	return d, nil
}

func newAggregator(
	log logrus.FieldLogger,
	cfg *Config,
	health *export.HealthMetrics,
	opts ...dashboard.Option,
) (*dashboard.Aggregator, error) {
	kinds, err := cfg.ParsedKinds()
	if err != nil {
		return nil, err
	}

	backend := cfg.Backend
	backend.ApplyEnv()

	client := source.NewClient(log, backend, health)
	registry := source.NewRegistry(log, client, fallback.New(), health)

	srcs, err := registry.Sources(kinds)
	if err != nil {
		return nil, fmt.Errorf("resolving sources: %w", err)
	}

	sched, err := scheduler.New(cfg.Scheduler)
	if err != nil {
		return nil, err
	}

	opts = append([]dashboard.Option{
		dashboard.WithParams(cfg.Params),
		dashboard.WithRefreshInterval(cfg.RefreshInterval),
		dashboard.WithClockInterval(cfg.ClockInterval),
		dashboard.WithHealth(health),
	}, opts...)

	agg, err := dashboard.New(log, srcs, sched, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating aggregator: %w", err)
	}

	return agg, nil
}

func (d *daemon) Start(ctx context.Context) error {
	d.health.Handle(dashboard.SnapshotPath, d.agg.SnapshotHandler())
	d.health.Handle(dashboard.RefreshPath, d.agg.RefreshHandler())

	if err := d.health.Start(ctx); err != nil {
		return fmt.Errorf("starting status server: %w", err)
	}

	for _, s := range d.sinks {
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("starting %s sink: %w", s.Name(), err)
		}

		d.started = append(d.started, s)
	}

	d.detach = sink.Attach(d.agg, d.started...)

	if err := d.agg.Start(ctx); err != nil {
		return fmt.Errorf("starting aggregator: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"backend": d.cfg.Backend.BaseURL,
		"kinds":   len(d.agg.Kinds()),
		"sinks":   len(d.started),
		"status":  d.health.Addr(),
	}).Info("Aquaboard started")

	return nil
}

func (d *daemon) Stop() error {
	var errs []error

	if err := d.agg.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping aggregator: %w", err))
	}

	if d.detach != nil {
		d.detach()
	}

	// Stop in reverse order.
	for i := len(d.started) - 1; i >= 0; i-- {
		s := d.started[i]

		if err := s.Stop(); err != nil {
			d.log.WithError(err).WithField("sink", s.Name()).Error("Failed to stop sink")
			errs = append(errs, fmt.Errorf("stopping %s sink: %w", s.Name(), err))
		}
	}

	d.started = nil

	if err := d.health.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping status server: %w", err))
	}

	return errors.Join(errs...)
}

func (d *daemon) Aggregator() *dashboard.Aggregator {
	return d.agg
}

func (d *daemon) StatusAddr() string {
	return d.health.Addr()
}

// Once runs a single aggregation cycle with cfg and returns its snapshot.
// It starts no timers, server or sinks.
func Once(ctx context.Context, log logrus.FieldLogger, cfg *Config) (*dashboard.Snapshot, error) {
	agg, err := newAggregator(log, cfg, nil)
	if err != nil {
		return nil, err
	}

	defer func() { _ = agg.Stop() }()

	return agg.RunCycle(ctx)
}

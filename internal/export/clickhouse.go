package export

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
)

// ClickHouseConfig configures the snapshot history writer.
type ClickHouseConfig struct {
	// Endpoint is the native protocol address, e.g. "localhost:9000".
	Endpoint string `yaml:"endpoint"`

	Database string `yaml:"database"`

	// Table defaults to "dashboard_results".
	Table string `yaml:"table"`

	// BatchSize is the number of rows per insert. Defaults to 1000.
	BatchSize int `yaml:"batch_size"`

	// FlushInterval is the maximum time rows wait. Defaults to 10s.
	FlushInterval time.Duration `yaml:"flush_interval"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ApplyDefaults fills unset fields.
func (c *ClickHouseConfig) ApplyDefaults() {
	if c.Database == "" {
		c.Database = "default"
	}

	if c.Table == "" {
		c.Table = "dashboard_results"
	}

	if c.BatchSize <= 0 {
		c.BatchSize = 1000
	}

	if c.FlushInterval <= 0 {
		c.FlushInterval = 10 * time.Second
	}
}

// Validate checks the connection settings.
func (c *ClickHouseConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("clickhouse endpoint is required")
	}

	return nil
}

// DSN returns the clickhouse:// URL used by migrations.
func (c *ClickHouseConfig) DSN() string {
	u := url.URL{
		Scheme: "clickhouse",
		Host:   c.Endpoint,
		Path:   "/" + c.Database,
	}

	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}

	return u.String()
}

// ResultRow is one kind of one published snapshot.
type ResultRow struct {
	SnapshotSeq uint64
	PublishedAt time.Time
	Kind        string
	Origin      string
	FetchedAt   time.Time
	Digest      uint64
	Value       string
	Instance    string
}

// ClickHouseWriter inserts snapshot history rows.
type ClickHouseWriter struct {
	log  logrus.FieldLogger
	cfg  ClickHouseConfig
	conn clickhouse.Conn
}

// NewClickHouseWriter creates an unconnected writer.
func NewClickHouseWriter(
	log logrus.FieldLogger,
	cfg ClickHouseConfig,
) *ClickHouseWriter {
	cfg.ApplyDefaults()

	return &ClickHouseWriter{
		log: log.WithField("component", "clickhouse"),
		cfg: cfg,
	}
}

// Start connects and pings the server.
func (w *ClickHouseWriter) Start(ctx context.Context) error {
	if err := w.cfg.Validate(); err != nil {
		return err
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{w.cfg.Endpoint},
		Auth: clickhouse.Auth{
			Database: w.cfg.Database,
			Username: w.cfg.Username,
			Password: w.cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	})
	if err != nil {
		return fmt.Errorf("opening ClickHouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()

		return fmt.Errorf("pinging ClickHouse: %w", err)
	}

	w.conn = conn

	w.log.WithFields(logrus.Fields{
		"endpoint": w.cfg.Endpoint,
		"table":    w.table(),
	}).Info("ClickHouse writer connected")

	return nil
}

// Config returns the effective configuration.
func (w *ClickHouseWriter) Config() ClickHouseConfig {
	return w.cfg
}

// WriteRows inserts rows in one batch.
func (w *ClickHouseWriter) WriteRows(ctx context.Context, rows []ResultRow) error {
	if len(rows) == 0 {
		return nil
	}

	if w.conn == nil {
		return errors.New("clickhouse writer not started")
	}

	batch, err := w.conn.PrepareBatch(ctx, fmt.Sprintf(
		"INSERT INTO %s (snapshot_seq, published_at, kind, origin, fetched_at, digest, value, instance)",
		w.table(),
	))
	if err != nil {
		return fmt.Errorf("preparing batch: %w", err)
	}

	for _, r := range rows {
		if err := batch.Append(
			r.SnapshotSeq,
			r.PublishedAt,
			r.Kind,
			r.Origin,
			r.FetchedAt,
			r.Digest,
			r.Value,
			r.Instance,
		); err != nil {
			_ = batch.Abort()

			return fmt.Errorf("appending %s row: %w", r.Kind, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("sending batch of %d rows: %w", len(rows), err)
	}

	return nil
}

func (w *ClickHouseWriter) table() string {
	return w.cfg.Database + "." + w.cfg.Table
}

// Stop closes the connection.
func (w *ClickHouseWriter) Stop() error {
	if w.conn == nil {
		return nil
	}

	return w.conn.Close()
}

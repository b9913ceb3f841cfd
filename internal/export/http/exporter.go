// Package http streams snapshot records as NDJSON to a collector such as
// Vector, batching them through go-batch-processor.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	processor "github.com/ethpandaops/go-batch-processor"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/aquaguardian/aquaboard/internal/version"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Exporter posts batches of T as NDJSON.
type Exporter[T any] struct {
	log    logrus.FieldLogger
	cfg    Config
	client *http.Client
	codec  Codec
}

var _ processor.ItemExporter[any] = (*Exporter[any])(nil)

// NewExporter validates cfg and builds the HTTP client and codec.
func NewExporter[T any](log logrus.FieldLogger, cfg Config) (*Exporter[T], error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid http export config: %w", err)
	}

	codec, err := NewCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	return &Exporter[T]{
		log: log.WithField("component", "http_exporter"),
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.ExportTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: cfg.Workers * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		codec: codec,
	}, nil
}

// ExportItems sends one batch. Nil items are skipped and an empty batch
// sends nothing.
func (e *Exporter[T]) ExportItems(ctx context.Context, items []*T) error {
	var (
		buf   bytes.Buffer
		count int
	)

	stream := json.BorrowStream(&buf)
	defer json.ReturnStream(stream)

	for _, item := range items {
		if item == nil {
			continue
		}

		stream.WriteVal(item)
		stream.WriteRaw("\n")

		if stream.Error != nil {
			return fmt.Errorf("encoding record: %w", stream.Error)
		}

		count++
	}

	if count == 0 {
		return nil
	}

	if err := stream.Flush(); err != nil {
		return fmt.Errorf("flushing records: %w", err)
	}

	body, err := e.codec.Encode(buf.Bytes())
	if err != nil {
		return fmt.Errorf("compressing records: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Address, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-ndjson")
	req.Header.Set("User-Agent", version.UserAgent())

	if enc := e.codec.Encoding(); enc != "" {
		req.Header.Set("Content-Encoding", enc)
	}

	for k, v := range e.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending records: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	e.log.WithFields(logrus.Fields{
		"records": count,
		"bytes":   buf.Len(),
		"sent":    len(body),
	}).Debug("Exported records")

	return nil
}

// Shutdown releases the codec.
func (e *Exporter[T]) Shutdown(_ context.Context) error {
	return e.codec.Close()
}

// NewProcessor wraps a new exporter in a batch processor named name.
func NewProcessor[T any](
	log logrus.FieldLogger,
	cfg Config,
	name string,
) (*processor.BatchItemProcessor[T], error) {
	cfg.ApplyDefaults()

	exporter, err := NewExporter[T](log, cfg)
	if err != nil {
		return nil, err
	}

	proc, err := processor.NewBatchItemProcessor[T](
		exporter,
		name,
		log,
		processor.WithMaxQueueSize(cfg.MaxQueueSize),
		processor.WithBatchTimeout(cfg.BatchTimeout),
		processor.WithExportTimeout(cfg.ExportTimeout),
		processor.WithMaxExportBatchSize(cfg.BatchSize),
		processor.WithWorkers(cfg.Workers),
	)
	if err != nil {
		return nil, fmt.Errorf("creating batch processor: %w", err)
	}

	return proc, nil
}

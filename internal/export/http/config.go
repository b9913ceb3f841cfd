package http

import (
	"errors"
	"fmt"
	"time"
)

// Config configures NDJSON export of snapshot records.
type Config struct {
	Enabled bool `yaml:"enabled"`

	// Address is the endpoint records are POSTed to.
	Address string `yaml:"address"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers"`

	// Compression is one of none, gzip, zstd, zlib, snappy.
	// Defaults to gzip.
	Compression string `yaml:"compression"`

	// BatchSize is the maximum records per request. Defaults to 256.
	BatchSize int `yaml:"batch_size"`

	// BatchTimeout bounds how long a partial batch waits. Defaults to 5s.
	BatchTimeout time.Duration `yaml:"batch_timeout"`

	// ExportTimeout bounds one request. Defaults to 30s.
	ExportTimeout time.Duration `yaml:"export_timeout"`

	// MaxQueueSize is the record queue length; records beyond it are
	// dropped. Defaults to 4096.
	MaxQueueSize int `yaml:"max_queue_size"`

	// Workers is the number of concurrent senders. Defaults to 1.
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the exporter defaults.
func DefaultConfig() Config {
	return Config{
		Compression:   CompressionGzip,
		BatchSize:     256,
		BatchTimeout:  5 * time.Second,
		ExportTimeout: 30 * time.Second,
		MaxQueueSize:  4096,
		Workers:       1,
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()

	if c.Compression == "" {
		c.Compression = d.Compression
	}

	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}

	if c.BatchTimeout <= 0 {
		c.BatchTimeout = d.BatchTimeout
	}

	if c.ExportTimeout <= 0 {
		c.ExportTimeout = d.ExportTimeout
	}

	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}

	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
}

// Validate checks an enabled config.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Address == "" {
		return errors.New("address is required when enabled")
	}

	if c.BatchSize > c.MaxQueueSize {
		return fmt.Errorf("batch_size %d exceeds max_queue_size %d", c.BatchSize, c.MaxQueueSize)
	}

	switch c.Compression {
	case "", CompressionNone, CompressionGzip, CompressionZstd,
		CompressionZlib, CompressionSnappy:
	default:
		return fmt.Errorf("unsupported compression %q", c.Compression)
	}

	return nil
}

package export

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClickHouseConfig_Defaults(t *testing.T) {
	cfg := ClickHouseConfig{Endpoint: "localhost:9000"}
	cfg.ApplyDefaults()

	assert.Equal(t, "default", cfg.Database)
	assert.Equal(t, "dashboard_results", cfg.Table)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.FlushInterval)
	require.NoError(t, cfg.Validate())

	require.Error(t, (&ClickHouseConfig{}).Validate())
}

func TestClickHouseConfig_DSN(t *testing.T) {
	cfg := ClickHouseConfig{Endpoint: "ch:9000", Database: "aquaboard"}
	assert.Equal(t, "clickhouse://ch:9000/aquaboard", cfg.DSN())

	cfg.Username = "writer"
	cfg.Password = "p@ss"
	assert.Equal(t, "clickhouse://writer:p%40ss@ch:9000/aquaboard", cfg.DSN())
}

func TestClickHouseWriter_NotStarted(t *testing.T) {
	w := NewClickHouseWriter(testLog(), ClickHouseConfig{Endpoint: "localhost:9000"})

	require.NoError(t, w.WriteRows(context.Background(), nil))
	require.Error(t, w.WriteRows(context.Background(), []ResultRow{{Kind: "stats"}}))
	require.NoError(t, w.Stop())
	assert.Equal(t, "dashboard_results", w.Config().Table)
}

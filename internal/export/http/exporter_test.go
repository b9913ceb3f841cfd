package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Kind   string `json:"kind"`
	Origin string `json:"origin"`
}

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

type capture struct {
	mu       sync.Mutex
	requests int
	body     []byte
	header   http.Header
}

func (c *capture) server(t *testing.T, status int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)

		c.mu.Lock()
		c.requests++
		c.body = raw
		c.header = r.Header.Clone()
		c.mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return server
}

func (c *capture) lines(t *testing.T) []string {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	decoded, err := Decode(c.header.Get("Content-Encoding"), c.body)
	require.NoError(t, err)

	return strings.Split(strings.TrimSpace(string(decoded)), "\n")
}

func TestExporter_ExportItems(t *testing.T) {
	var got capture

	server := got.server(t, http.StatusOK)

	exporter, err := NewExporter[testRecord](testLog(), Config{
		Enabled:     true,
		Address:     server.URL,
		Compression: CompressionZstd,
		Headers:     map[string]string{"X-Instance": "eu-1"},
	})
	require.NoError(t, err)
	defer exporter.Shutdown(context.Background())

	err = exporter.ExportItems(context.Background(), []*testRecord{
		{Kind: "stats", Origin: "live"},
		nil,
		{Kind: "trend", Origin: "fallback"},
	})
	require.NoError(t, err)

	assert.Equal(t, "application/x-ndjson", got.header.Get("Content-Type"))
	assert.Equal(t, "zstd", got.header.Get("Content-Encoding"))
	assert.Equal(t, "eu-1", got.header.Get("X-Instance"))
	assert.True(t, strings.HasPrefix(got.header.Get("User-Agent"), "aquaboard/"))

	lines := got.lines(t)
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"kind":"stats","origin":"live"}`, lines[0])
	assert.JSONEq(t, `{"kind":"trend","origin":"fallback"}`, lines[1])
}

func TestExporter_Uncompressed(t *testing.T) {
	var got capture

	server := got.server(t, http.StatusAccepted)

	exporter, err := NewExporter[testRecord](testLog(), Config{
		Enabled:     true,
		Address:     server.URL,
		Compression: CompressionNone,
	})
	require.NoError(t, err)

	require.NoError(t, exporter.ExportItems(context.Background(), []*testRecord{{Kind: "stats"}}))

	assert.Empty(t, got.header.Get("Content-Encoding"))
	assert.Contains(t, string(got.body), `"kind":"stats"`)
}

func TestExporter_ServerError(t *testing.T) {
	var got capture

	server := got.server(t, http.StatusBadGateway)

	exporter, err := NewExporter[testRecord](testLog(), Config{Enabled: true, Address: server.URL})
	require.NoError(t, err)

	err = exporter.ExportItems(context.Background(), []*testRecord{{Kind: "stats"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 502")
}

func TestExporter_EmptyBatchSendsNothing(t *testing.T) {
	var got capture

	server := got.server(t, http.StatusOK)

	exporter, err := NewExporter[testRecord](testLog(), Config{Enabled: true, Address: server.URL})
	require.NoError(t, err)

	require.NoError(t, exporter.ExportItems(context.Background(), nil))
	require.NoError(t, exporter.ExportItems(context.Background(), []*testRecord{nil}))
	assert.Zero(t, got.requests)
}

func TestNewProcessor_DeliversBatches(t *testing.T) {
	var got capture

	server := got.server(t, http.StatusOK)

	proc, err := NewProcessor[testRecord](testLog(), Config{
		Enabled:      true,
		Address:      server.URL,
		BatchSize:    2,
		BatchTimeout: 50 * time.Millisecond,
	}, "test_records")
	require.NoError(t, err)

	proc.Start(context.Background())

	require.NoError(t, proc.Write(context.Background(), []*testRecord{
		{Kind: "stats", Origin: "live"},
		{Kind: "by-type", Origin: "live"},
	}))

	require.Eventually(t, func() bool {
		got.mu.Lock()
		defer got.mu.Unlock()

		return got.requests > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, proc.Shutdown(context.Background()))
	assert.Len(t, got.lines(t), 2)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.Validate(), "disabled config is always valid")

	cfg = Config{Enabled: true}
	cfg.ApplyDefaults()
	require.Error(t, cfg.Validate())

	cfg.Address = "http://vector:8080"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, CompressionGzip, cfg.Compression)

	cfg.Compression = "lz4"
	require.Error(t, cfg.Validate())

	cfg.Compression = CompressionSnappy
	cfg.BatchSize = cfg.MaxQueueSize + 1
	require.Error(t, cfg.Validate())
}

package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stateBody struct {
	Loading  bool `json:"loading"`
	Snapshot *struct {
		Seq   uint64   `json:"seq"`
		Kinds []string `json:"kinds"`
	} `json:"snapshot"`
	Error string `json:"error"`
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateBody {
	t.Helper()

	var body stateBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func TestSnapshotHandler(t *testing.T) {
	agg := newAggregator(t, sources(liveStats(2)))
	handler := agg.SnapshotHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, SnapshotPath, nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeState(t, rec)
	assert.True(t, body.Loading)
	assert.Nil(t, body.Snapshot)

	_, err := agg.RunCycle(context.Background())
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, SnapshotPath, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body = decodeState(t, rec)
	assert.False(t, body.Loading)
	require.NotNil(t, body.Snapshot)
	assert.Equal(t, uint64(1), body.Snapshot.Seq)
	assert.Equal(t, []string{"stats"}, body.Snapshot.Kinds)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, SnapshotPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRefreshHandler(t *testing.T) {
	stats := liveStats(2)
	agg := newAggregator(t, sources(stats))
	handler := agg.RefreshHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RefreshPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Zero(t, stats.calls.Load())

	for want := uint64(1); want <= 2; want++ {
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, RefreshPath, nil))

		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeState(t, rec)
		require.NotNil(t, body.Snapshot)
		assert.Equal(t, want, body.Snapshot.Seq)
		assert.Empty(t, body.Error)
	}
}

func TestRefreshHandler_FailureKeepsSnapshot(t *testing.T) {
	agg := newAggregator(t, sources(liveStats(2)))

	_, err := agg.RunCycle(context.Background())
	require.NoError(t, err)

	require.NoError(t, agg.Stop())

	rec := httptest.NewRecorder()
	agg.RefreshHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, RefreshPath, nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeState(t, rec)
	require.NotNil(t, body.Snapshot)
	assert.Equal(t, uint64(1), body.Snapshot.Seq)
	assert.Equal(t, ErrStopped.Error(), body.Error)
}

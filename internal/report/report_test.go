package report

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquaguardian/aquaboard/internal/export"
	"github.com/aquaguardian/aquaboard/internal/source"
)

const demoUserID = "2caf16d3-740d-47d9-b8ce-a96d07ec3387"

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func validReport() *Report {
	return &Report{
		UserID:      demoUserID,
		Latitude:    19.076,
		Longitude:   72.8777,
		Type:        "Plastic Waste",
		Location:    "Juhu Beach",
		Description: "bottles along the tide line",
		Severity:    SeverityHigh,
		Attachment: &Attachment{
			Filename: "/tmp/photos/beach.jpg",
			Content:  strings.NewReader("jpeg-bytes"),
		},
	}
}

func newSubmitter(
	t *testing.T,
	handler http.HandlerFunc,
	health *export.HealthMetrics,
) *Submitter {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := source.NewClient(testLog(), source.Config{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	}, health)

	return NewSubmitter(testLog(), client, health)
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity("critical")
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, sev)

	_, err = ParseSeverity("apocalyptic")
	require.ErrorIs(t, err, ErrInvalidSeverity)

	for sev, want := range map[Severity]int{
		SeverityLow: 1, SeverityMedium: 5, SeverityHigh: 8, SeverityCritical: 10,
	} {
		got, err := sev.Score()
		require.NoError(t, err)
		assert.Equal(t, want, got, sev)
	}
}

func TestParseCoordinates(t *testing.T) {
	lat, lng, err := ParseCoordinates(" 19.076, 72.8777 ")
	require.NoError(t, err)
	assert.InDelta(t, 19.076, lat, 1e-9)
	assert.InDelta(t, 72.8777, lng, 1e-9)

	for _, in := range []string{"", "19.0", "a,b", "1,2,3", "91,0", "0,-181"} {
		_, _, err := ParseCoordinates(in)
		assert.ErrorIs(t, err, ErrInvalidCoordinates, in)
	}
}

func TestReport_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Report)
		want   error
	}{
		{"valid", func(*Report) {}, nil},
		{"bad user", func(r *Report) { r.UserID = "guest" }, ErrInvalidUserID},
		{"bad severity", func(r *Report) { r.Severity = "Extreme" }, ErrInvalidSeverity},
		{"bad latitude", func(r *Report) { r.Latitude = 100 }, ErrInvalidCoordinates},
		{"no attachment", func(r *Report) { r.Attachment = nil }, ErrMissingAttachment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReport()
			tt.mutate(r)

			err := r.Validate()
			if tt.want == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReport_FullDescription(t *testing.T) {
	r := validReport()
	assert.Equal(t, "Plastic Waste at Juhu Beach: bottles along the tide line", r.FullDescription())

	r.Location = ""
	assert.Equal(t, "Plastic Waste: bottles along the tide line", r.FullDescription())

	r.Type = ""
	assert.Equal(t, "bottles along the tide line", r.FullDescription())
}

func TestSubmit_SendsMultipartForm(t *testing.T) {
	var (
		fields    = map[string]string{}
		filename  string
		content   string
		requestID string
	)

	sub := newSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, Path, r.URL.Path)

		requestID = r.Header.Get("X-Request-ID")

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)

			return
		}
		defer f.Close()

		filename = hdr.Filename
		b, _ := io.ReadAll(f)
		content = string(b)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"r-1","user_id":"` + demoUserID +
			`","severity":8,"status":"pending","ai_class":"oil_spill","ai_confidence":0.91}`))
	}, nil)

	created, err := sub.Submit(context.Background(), validReport())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"user_id":     demoUserID,
		"latitude":    "19.076",
		"longitude":   "72.8777",
		"description": "Plastic Waste at Juhu Beach: bottles along the tide line",
		"severity":    "8",
	}, fields)
	assert.Equal(t, "beach.jpg", filename)
	assert.Equal(t, "jpeg-bytes", content)

	_, err = uuid.Parse(requestID)
	require.NoError(t, err)

	assert.Equal(t, "r-1", created.ID)
	assert.True(t, created.Classified())
	require.NotNil(t, created.AIConfidence)
	assert.InDelta(t, 0.91, *created.AIConfidence, 1e-9)
}

func TestSubmit_Unclassified(t *testing.T) {
	sub := newSubmitter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"r-2","status":"pending"}`))
	}, nil)

	created, err := sub.Submit(context.Background(), validReport())
	require.NoError(t, err)
	assert.False(t, created.Classified())
}

func TestSubmit_NonSuccessIsSubmitError(t *testing.T) {
	health := export.NewHealthMetrics(testLog(), export.HealthConfig{})

	sub := newSubmitter(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"Database insert failed"}`, http.StatusInternalServerError)
	}, health)

	_, err := sub.Submit(context.Background(), validReport())
	require.Error(t, err)

	var submitErr *SubmitError
	require.True(t, errors.As(err, &submitErr))
	assert.Equal(t, http.StatusInternalServerError, submitErr.Status)
	assert.Contains(t, submitErr.Body, "Database insert failed")

	assert.Equal(t, float64(1),
		testutil.ToFloat64(health.ReportSubmissions.WithLabelValues("rejected")))
}

func TestSubmit_InvalidInputSendsNothing(t *testing.T) {
	var calls atomic.Int32

	health := export.NewHealthMetrics(testLog(), export.HealthConfig{})
	sub := newSubmitter(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}, health)

	r := validReport()
	r.Severity = "Extreme"

	_, err := sub.Submit(context.Background(), r)
	require.ErrorIs(t, err, ErrInvalidSeverity)
	assert.Zero(t, calls.Load())
	assert.Equal(t, float64(1),
		testutil.ToFloat64(health.ReportSubmissions.WithLabelValues("invalid")))
}

func TestSubmit_ConfidenceOutOfRange(t *testing.T) {
	sub := newSubmitter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"r-3","ai_class":"plastic","ai_confidence":1.7}`))
	}, nil)

	_, err := sub.Submit(context.Background(), validReport())
	require.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestSubmit_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := source.NewClient(testLog(), source.Config{BaseURL: server.URL}, nil)
	sub := NewSubmitter(testLog(), client, nil)

	_, err := sub.Submit(context.Background(), validReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submitting report")

	var submitErr *SubmitError
	assert.False(t, errors.As(err, &submitErr))
}

package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/aquaguardian/aquaboard/internal/export"
	"github.com/aquaguardian/aquaboard/internal/source"
	"github.com/aquaguardian/aquaboard/internal/version"
)

// Path is the backend endpoint reports are posted to.
const Path = "/reports/"

const maxResponseBytes = 1 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Submitter posts reports over the shared backend client.
type Submitter struct {
	log    logrus.FieldLogger
	client *source.Client
	health *export.HealthMetrics
}

// NewSubmitter creates a submitter. health may be nil.
func NewSubmitter(
	log logrus.FieldLogger,
	client *source.Client,
	health *export.HealthMetrics,
) *Submitter {
	return &Submitter{
		log:    log.WithField("component", "report"),
		client: client,
		health: health,
	}
}

// Submit validates r, posts it as multipart form data and returns the
// stored report. A non-2xx answer is a *SubmitError.
func (s *Submitter) Submit(ctx context.Context, r *Report) (*Created, error) {
	if err := r.Validate(); err != nil {
		s.record("invalid")

		return nil, fmt.Errorf("validating report: %w", err)
	}

	body, contentType, err := encodeForm(r)
	if err != nil {
		s.record("error")

		return nil, fmt.Errorf("encoding report: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.client.BaseURL()+Path, body,
	)
	if err != nil {
		s.record("error")

		return nil, fmt.Errorf("creating report request: %w", err)
	}

	requestID := uuid.NewString()

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-ID", requestID)

	log := s.log.WithField("request_id", requestID)

	resp, err := s.client.HTTPClient().Do(req)
	if err != nil {
		s.record("error")

		return nil, fmt.Errorf("submitting report: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		s.record("error")

		return nil, fmt.Errorf("reading report response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.record("rejected")
		log.WithField("status", resp.StatusCode).Warn("Report rejected by backend")

		return nil, &SubmitError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(raw)),
		}
	}

	var created Created
	if err := json.Unmarshal(raw, &created); err != nil {
		s.record("error")

		return nil, fmt.Errorf("decoding created report: %w", err)
	}

	if c := created.AIConfidence; c != nil && (*c < 0 || *c > 1) {
		s.record("error")

		return nil, fmt.Errorf("report %s: %w: %g", created.ID, ErrInvalidConfidence, *c)
	}

	s.record("created")

	log.WithFields(logrus.Fields{
		"report_id":  created.ID,
		"ai_class":   created.AIClass,
		"classified": created.Classified(),
	}).Info("Report submitted")

	return &created, nil
}

func (s *Submitter) record(status string) {
	if s.health != nil {
		s.health.ReportSubmissions.WithLabelValues(status).Inc()
	}
}

func encodeForm(r *Report) (io.Reader, string, error) {
	score, err := r.Severity.Score()
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"user_id", r.UserID},
		{"latitude", strconv.FormatFloat(r.Latitude, 'f', -1, 64)},
		{"longitude", strconv.FormatFloat(r.Longitude, 'f', -1, 64)},
		{"description", r.FullDescription()},
		{"severity", strconv.Itoa(score)},
	}

	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f.name, err)
		}
	}

	name := filepath.Base(r.Attachment.Filename)
	if name == "." || name == "/" || name == "" {
		name = "report.jpg"
	}

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}

	if _, err := io.Copy(part, r.Attachment.Content); err != nil {
		return nil, "", fmt.Errorf("copying attachment: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

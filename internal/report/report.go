// Package report submits citizen pollution reports to the backend.
// Unlike dashboard reads, submissions are user intent: failures are
// returned to the caller and never retried or replaced.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidSeverity    = errors.New("invalid severity")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrMissingAttachment  = errors.New("an image attachment is required")
	ErrInvalidUserID      = errors.New("invalid user id")
	ErrInvalidConfidence  = errors.New("ai confidence outside [0,1]")
)

// Severity is the user-facing severity label.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

var severityScores = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   5,
	SeverityHigh:     8,
	SeverityCritical: 10,
}

// ParseSeverity accepts a label in any letter case.
func ParseSeverity(s string) (Severity, error) {
	for sev := range severityScores {
		if strings.EqualFold(string(sev), strings.TrimSpace(s)) {
			return sev, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}

// Score is the integer the backend stores for the label.
func (s Severity) Score() (int, error) {
	score, ok := severityScores[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeverity, string(s))
	}

	return score, nil
}

// ParseCoordinates parses "lat, lng".
func ParseCoordinates(s string) (lat, lng float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCoordinates, s)
	}

	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: latitude: %w", ErrInvalidCoordinates, err)
	}

	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: longitude: %w", ErrInvalidCoordinates, err)
	}

	return lat, lng, checkCoordinates(lat, lng)
}

func checkCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: (%g, %g) out of range", ErrInvalidCoordinates, lat, lng)
	}

	return nil
}

// Attachment is the photo sent with a report.
type Attachment struct {
	Filename string
	Content  io.Reader
}

// Report is a report as entered by the user.
type Report struct {
	UserID      string
	Latitude    float64
	Longitude   float64
	Type        string
	Location    string
	Description string
	Severity    Severity
	Attachment  *Attachment
}

// Validate checks the report before anything is sent.
func (r *Report) Validate() error {
	if _, err := uuid.Parse(r.UserID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUserID, err)
	}

	if err := checkCoordinates(r.Latitude, r.Longitude); err != nil {
		return err
	}

	if _, err := r.Severity.Score(); err != nil {
		return err
	}

	if r.Attachment == nil || r.Attachment.Content == nil {
		return ErrMissingAttachment
	}

	return nil
}

// FullDescription prefixes the description with the pollution type and
// location when they are known.
func (r *Report) FullDescription() string {
	switch {
	case r.Type != "" && r.Location != "":
		return fmt.Sprintf("%s at %s: %s", r.Type, r.Location, r.Description)
	case r.Type != "":
		return fmt.Sprintf("%s: %s", r.Type, r.Description)
	default:
		return r.Description
	}
}

// Created is the backend's view of a stored report.
type Created struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Description  string   `json:"description"`
	Severity     int      `json:"severity"`
	Status       string   `json:"status"`
	ImageURL     string   `json:"image_url,omitempty"`
	AIClass      string   `json:"ai_class,omitempty"`
	AIConfidence *float64 `json:"ai_confidence,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

// Classified reports whether the backend attached a model verdict.
func (c *Created) Classified() bool {
	return c.AIClass != "" && c.AIConfidence != nil && *c.AIConfidence > 0
}

// SubmitError is a non-2xx answer to a submission.
type SubmitError struct {
	Status int
	Body   string
}

func (e *SubmitError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("report rejected with status %d", e.Status)
	}

	return fmt.Sprintf("report rejected with status %d: %s", e.Status, e.Body)
}

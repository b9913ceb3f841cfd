package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aquaguardian/aquaboard/internal/export"
	"github.com/aquaguardian/aquaboard/internal/version"
)

// maxBodyBytes caps how much of a backend response is read.
const maxBodyBytes = 8 << 20

// Client issues GET requests against the reporting backend.
type Client struct {
	log     logrus.FieldLogger
	baseURL string
	http    *http.Client
	health  *export.HealthMetrics
}

// NewClient creates a backend API client. health may be nil.
func NewClient(
	log logrus.FieldLogger,
	cfg Config,
	health *export.HealthMetrics,
) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	return &Client{
		log:     log.WithField("component", "backend"),
		baseURL: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
		health: health,
	}
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the underlying client so other backend callers share
// its transport and timeout.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Get fetches path with query and returns the raw body. Transport
// failures and non-2xx statuses are errors. label tags metrics.
func (c *Client) Get(
	ctx context.Context,
	label string,
	path string,
	query url.Values,
) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()

	resp, err := c.http.Do(req)

	c.observe(label, start, resp, err)

	if err != nil {
		return nil, fmt.Errorf("executing request for %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf(
			"unexpected status %d from %s: %s",
			resp.StatusCode,
			path,
			strings.TrimSpace(string(body)),
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", path, err)
	}

	return body, nil
}

func (c *Client) observe(
	label string,
	start time.Time,
	resp *http.Response,
	err error,
) {
	if c.health == nil {
		return
	}

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	c.health.BackendRequests.WithLabelValues(label, status).Inc()
	c.health.BackendRequestDuration.WithLabelValues(label).
		Observe(time.Since(start).Seconds())
}

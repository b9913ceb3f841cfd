// Package source wraps each backend metric endpoint in a fetcher that
// never fails: unusable or unreachable data is replaced by its fallback.
package source

import (
	"context"
	"fmt"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/aquaguardian/aquaboard/internal/degrade"
	"github.com/aquaguardian/aquaboard/internal/export"
	"github.com/aquaguardian/aquaboard/internal/metric"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Source is the type-erased view of a fetcher consumed by the aggregator.
type Source interface {
	// Kind returns the metric kind this source produces.
	Kind() metric.Kind
	// Collect fetches the kind and returns an erased result. It must
	// return a result for every call.
	Collect(ctx context.Context, params metric.Params) metric.Result[any]
}

// Fetcher fetches one metric kind. Fetch never returns an error: every
// failure collapses into a fallback result.
type Fetcher[T any] struct {
	log      logrus.FieldLogger
	client   *Client
	health   *export.HealthMetrics
	kind     metric.Kind
	path     string
	query    func(metric.Params) url.Values
	fallback func(metric.Params) T
	now      func() time.Time
}

var _ Source = (*Fetcher[metric.Stats])(nil)

// Endpoint describes where a kind lives on the backend and how to
// substitute it.
type Endpoint[T any] struct {
	Kind     metric.Kind
	Path     string
	Query    func(metric.Params) url.Values
	Fallback func(metric.Params) T
}

// NewFetcher creates a fetcher for ep. health may be nil.
func NewFetcher[T any](
	log logrus.FieldLogger,
	client *Client,
	health *export.HealthMetrics,
	ep Endpoint[T],
	now func() time.Time,
) *Fetcher[T] {
	if now == nil {
		now = time.Now
	}

	return &Fetcher[T]{
		log:      log.WithField("kind", ep.Kind),
		client:   client,
		health:   health,
		kind:     ep.Kind,
		path:     ep.Path,
		query:    ep.Query,
		fallback: ep.Fallback,
		now:      now,
	}
}

// Kind returns the metric kind.
func (f *Fetcher[T]) Kind() metric.Kind {
	return f.kind
}

// Fetch issues a single request and returns the live value when it is
// usable, otherwise the fallback for params.
func (f *Fetcher[T]) Fetch(ctx context.Context, params metric.Params) metric.Result[T] {
	params = params.WithDefaults()

	var query url.Values
	if f.query != nil {
		query = f.query(params)
	}

	body, err := f.client.Get(ctx, string(f.kind), f.path, query)
	if err != nil {
		f.log.WithError(err).Warn("Backend unavailable, using fallback")

		return f.fallbackResult(params)
	}

	value, reason, err := decode[T](f.kind, body)
	if err != nil {
		f.log.WithError(err).Warn("Malformed backend response, using fallback")

		return f.fallbackResult(params)
	}

	if reason != degrade.Usable {
		f.log.WithField("reason", reason).
			Info("Backend value unusable, using fallback")

		if f.health != nil {
			f.health.SourceRejections.WithLabelValues(string(f.kind), string(reason)).Inc()
		}

		return f.fallbackResult(params)
	}

	f.record(metric.OriginLive)

	return metric.Live(f.kind, value, f.now())
}

// Collect implements Source.
func (f *Fetcher[T]) Collect(ctx context.Context, params metric.Params) metric.Result[any] {
	return f.Fetch(ctx, params).Erase()
}

// Fallback returns the substitute value for params without any network
// access.
func (f *Fetcher[T]) Fallback(params metric.Params) T {
	return f.fallback(params.WithDefaults())
}

func (f *Fetcher[T]) fallbackResult(params metric.Params) metric.Result[T] {
	f.record(metric.OriginFallback)

	return metric.Fallback(f.kind, f.fallback(params), f.now())
}

func (f *Fetcher[T]) record(origin metric.Origin) {
	if f.health == nil {
		return
	}

	f.health.SourceResults.WithLabelValues(string(f.kind), string(origin)).Inc()
}

// decode parses body generically for the degradation policy and then
// into T. A usable generic value that does not fit T is malformed.
func decode[T any](kind metric.Kind, body []byte) (T, degrade.Reason, error) {
	var (
		generic any
		typed   T
	)

	if err := json.Unmarshal(body, &generic); err != nil {
		return typed, degrade.Usable, fmt.Errorf("decoding %s body: %w", kind, err)
	}

	if reason := degrade.Check(kind, generic); reason != degrade.Usable {
		return typed, reason, nil
	}

	if err := json.Unmarshal(body, &typed); err != nil {
		return typed, degrade.Usable, fmt.Errorf("decoding %s value: %w", kind, err)
	}

	return typed, degrade.Usable, nil
}

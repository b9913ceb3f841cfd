package source

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aquaguardian/aquaboard/internal/export"
	"github.com/aquaguardian/aquaboard/internal/fallback"
	"github.com/aquaguardian/aquaboard/internal/metric"
)

// Registry holds one fetcher per metric kind.
type Registry struct {
	stats          *Fetcher[metric.Stats]
	timeline       *Fetcher[[]metric.TimelinePoint]
	byType         *Fetcher[[]metric.TypeCount]
	byStatus       *Fetcher[[]metric.StatusCount]
	heatmap        *Fetcher[[]metric.HeatmapPoint]
	severity       *Fetcher[[]metric.SeverityBucket]
	trend          *Fetcher[[]metric.TrendPoint]
	waterQuality   *Fetcher[metric.WaterQuality]
	waterHistory   *Fetcher[[]metric.WaterQualityReading]
	successStories *Fetcher[[]metric.SuccessStory]
	marineImpact   *Fetcher[metric.MarineImpact]

	byKind map[metric.Kind]Source
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	now func() time.Time
}

// WithClock sets the time source stamped on results.
func WithClock(now func() time.Time) RegistryOption {
	return func(o *registryOptions) {
		o.now = now
	}
}

// NewRegistry wires every backend endpoint to its fallback.
func NewRegistry(
	log logrus.FieldLogger,
	client *Client,
	catalog *fallback.Catalog,
	health *export.HealthMetrics,
	opts ...RegistryOption,
) *Registry {
	o := registryOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	log = log.WithField("component", "source")

	r := &Registry{
		stats: NewFetcher(log, client, health, Endpoint[metric.Stats]{
			Kind:     metric.KindStats,
			Path:     "/dashboard/stats",
			Fallback: static(catalog.Stats),
		}, o.now),
		timeline: NewFetcher(log, client, health, Endpoint[[]metric.TimelinePoint]{
			Kind:  metric.KindTimeline,
			Path:  "/dashboard/reports/timeline",
			Query: intParam("days", func(p metric.Params) int { return p.Days }),
			Fallback: func(p metric.Params) []metric.TimelinePoint {
				return catalog.Timeline(p.Days)
			},
		}, o.now),
		byType: NewFetcher(log, client, health, Endpoint[[]metric.TypeCount]{
			Kind:     metric.KindByType,
			Path:     "/dashboard/reports/by-type",
			Fallback: static(catalog.ByType),
		}, o.now),
		byStatus: NewFetcher(log, client, health, Endpoint[[]metric.StatusCount]{
			Kind:     metric.KindByStatus,
			Path:     "/dashboard/reports/by-status",
			Fallback: static(catalog.ByStatus),
		}, o.now),
		heatmap: NewFetcher(log, client, health, Endpoint[[]metric.HeatmapPoint]{
			Kind:     metric.KindGeoHeatmap,
			Path:     "/dashboard/reports/geographic-heatmap",
			Fallback: static(catalog.GeoHeatmap),
		}, o.now),
		severity: NewFetcher(log, client, health, Endpoint[[]metric.SeverityBucket]{
			Kind:     metric.KindSeverityDistribution,
			Path:     "/dashboard/reports/severity-distribution",
			Fallback: static(catalog.SeverityDistribution),
		}, o.now),
		trend: NewFetcher(log, client, health, Endpoint[[]metric.TrendPoint]{
			Kind:  metric.KindTrend,
			Path:  "/dashboard/reports/trend-comparison",
			Query: intParam("months", func(p metric.Params) int { return p.Months }),
			Fallback: func(p metric.Params) []metric.TrendPoint {
				return catalog.Trend(p.Months)
			},
		}, o.now),
		waterQuality: NewFetcher(log, client, health, Endpoint[metric.WaterQuality]{
			Kind:     metric.KindWaterQuality,
			Path:     "/dashboard/water-quality",
			Fallback: static(catalog.WaterQuality),
		}, o.now),
		waterHistory: NewFetcher(log, client, health, Endpoint[[]metric.WaterQualityReading]{
			Kind:  metric.KindWaterQualityHistory,
			Path:  "/dashboard/water-quality-history",
			Query: intParam("limit", func(p metric.Params) int { return p.Limit }),
			Fallback: func(p metric.Params) []metric.WaterQualityReading {
				return catalog.WaterQualityHistory(p.Limit)
			},
		}, o.now),
		successStories: NewFetcher(log, client, health, Endpoint[[]metric.SuccessStory]{
			Kind:     metric.KindSuccessStories,
			Path:     "/dashboard/success-stories",
			Fallback: static(catalog.SuccessStories),
		}, o.now),
		marineImpact: NewFetcher(log, client, health, Endpoint[metric.MarineImpact]{
			Kind:     metric.KindMarineImpact,
			Path:     "/dashboard/marine-impact/metrics",
			Fallback: static(catalog.MarineImpact),
		}, o.now),
	}

	r.byKind = map[metric.Kind]Source{
		metric.KindStats:                r.stats,
		metric.KindTimeline:             r.timeline,
		metric.KindByType:               r.byType,
		metric.KindByStatus:             r.byStatus,
		metric.KindGeoHeatmap:           r.heatmap,
		metric.KindSeverityDistribution: r.severity,
		metric.KindTrend:                r.trend,
		metric.KindWaterQuality:         r.waterQuality,
		metric.KindWaterQualityHistory:  r.waterHistory,
		metric.KindSuccessStories:       r.successStories,
		metric.KindMarineImpact:         r.marineImpact,
	}

	return r
}

// Source returns the erased fetcher for kind.
func (r *Registry) Source(kind metric.Kind) (Source, bool) {
	s, ok := r.byKind[kind]

	return s, ok
}

// Sources returns the erased fetchers for kinds, in order.
func (r *Registry) Sources(kinds []metric.Kind) ([]Source, error) {
	out := make([]Source, 0, len(kinds))

	for _, k := range kinds {
		s, ok := r.byKind[k]
		if !ok {
			return nil, fmt.Errorf("no source registered for kind %q", k)
		}

		out = append(out, s)
	}

	return out, nil
}

func (r *Registry) Stats() *Fetcher[metric.Stats] { return r.stats }
func (r *Registry) Timeline() *Fetcher[[]metric.TimelinePoint] { return r.timeline }
func (r *Registry) ByType() *Fetcher[[]metric.TypeCount] { return r.byType }
func (r *Registry) ByStatus() *Fetcher[[]metric.StatusCount] { return r.byStatus }
func (r *Registry) GeoHeatmap() *Fetcher[[]metric.HeatmapPoint] { return r.heatmap }
func (r *Registry) Severity() *Fetcher[[]metric.SeverityBucket] { return r.severity }
func (r *Registry) Trend() *Fetcher[[]metric.TrendPoint] { return r.trend }
func (r *Registry) WaterQuality() *Fetcher[metric.WaterQuality] { return r.waterQuality }
func (r *Registry) MarineImpact() *Fetcher[metric.MarineImpact] { return r.marineImpact }
func (r *Registry) SuccessStories() *Fetcher[[]metric.SuccessStory] { return r.successStories }
func (r *Registry) WaterQualityHistory() *Fetcher[[]metric.WaterQualityReading] {
	return r.waterHistory
}

func static[T any](fn func() T) func(metric.Params) T {
	return func(metric.Params) T {
		return fn()
	}
}

func intParam(name string, pick func(metric.Params) int) func(metric.Params) url.Values {
	return func(p metric.Params) url.Values {
		return url.Values{name: []string{strconv.Itoa(pick(p))}}
	}
}

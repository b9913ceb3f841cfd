// Package fallback supplies well-formed substitute values for every metric
// kind, used whenever a live source is unusable.
package fallback

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/aquaguardian/aquaboard/internal/metric"
)

const (
	dateLayout = "2006-01-02"
	hourLayout = "15:04"

	// Generated report counts fall in [minDailyReports, maxDailyReports).
	minDailyReports = 2
	maxDailyReports = 17
)

// Catalog produces fallback values. Static values are returned as fresh
// copies; generated values are recomputed on every call.
type Catalog struct {
	now     func() time.Time
	newRand func() *rand.Rand
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithNow overrides the time source used to anchor generated series.
func WithNow(now func() time.Time) Option {
	return func(c *Catalog) {
		c.now = now
	}
}

// WithRandSource makes generated series reproducible: every generation
// draws from a fresh source returned by fn.
func WithRandSource(fn func() rand.Source) Option {
	return func(c *Catalog) {
		c.newRand = func() *rand.Rand {
			return rand.New(fn())
		}
	}
}

// New creates a Catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		now: time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// For returns the fallback value for kind. Unknown kinds yield nil.
func (c *Catalog) For(kind metric.Kind, params metric.Params) any {
	params = params.WithDefaults()

	switch kind {
	case metric.KindStats:
		return c.Stats()
	case metric.KindTimeline:
		return c.Timeline(params.Days)
	case metric.KindByType:
		return c.ByType()
	case metric.KindByStatus:
		return c.ByStatus()
	case metric.KindGeoHeatmap:
		return c.GeoHeatmap()
	case metric.KindSeverityDistribution:
		return c.SeverityDistribution()
	case metric.KindTrend:
		return c.Trend(params.Months)
	case metric.KindWaterQuality:
		return c.WaterQuality()
	case metric.KindWaterQualityHistory:
		return c.WaterQualityHistory(params.Limit)
	case metric.KindSuccessStories:
		return c.SuccessStories()
	case metric.KindMarineImpact:
		return c.MarineImpact()
	default:
		return nil
	}
}

// Stats returns the demo headline counters.
func (c *Catalog) Stats() metric.Stats {
	return demoStats()
}

// ByType returns the demo report counts per pollution type.
func (c *Catalog) ByType() []metric.TypeCount {
	return demoByType()
}

// ByStatus returns the demo report counts per workflow status.
func (c *Catalog) ByStatus() []metric.StatusCount {
	return demoByStatus()
}

// GeoHeatmap returns a fixed list of monitored locations.
func (c *Catalog) GeoHeatmap() []metric.HeatmapPoint {
	return demoHeatmap()
}

// SeverityDistribution returns the demo severity bands with chart colors.
func (c *Catalog) SeverityDistribution() []metric.SeverityBucket {
	return demoSeverity()
}

// WaterQuality returns a fixed sensor reading.
func (c *Catalog) WaterQuality() metric.WaterQuality {
	return demoWaterQuality()
}

// SuccessStories returns the demo cleanup campaigns.
func (c *Catalog) SuccessStories() []metric.SuccessStory {
	return demoSuccessStories()
}

// MarineImpact returns the demo marine impact panels.
func (c *Catalog) MarineImpact() metric.MarineImpact {
	return demoMarineImpact()
}

// Trend returns the demo month comparison. The demo series is fixed and
// does not depend on the requested window.
func (c *Catalog) Trend(_ int) []metric.TrendPoint {
	return demoTrend()
}

// Timeline generates one point per day for the last days days, oldest
// first, the final point dated today.
func (c *Catalog) Timeline(days int) []metric.TimelinePoint {
	if days <= 0 {
		days = metric.DefaultParams().Days
	}

	now := c.now()
	rng := c.newRand()
	points := make([]metric.TimelinePoint, days)

	for i := range points {
		day := now.AddDate(0, 0, -(days - 1 - i))
		points[i] = metric.TimelinePoint{
			Date:  day.Format(dateLayout),
			Count: minDailyReports + rng.IntN(maxDailyReports-minDailyReports),
		}
	}

	return points
}

// WaterQualityHistory generates limit hourly readings, oldest first, the
// final reading at the current hour.
func (c *Catalog) WaterQualityHistory(limit int) []metric.WaterQualityReading {
	if limit <= 0 {
		limit = metric.DefaultParams().Limit
	}

	hour := c.now().Truncate(time.Hour)
	rng := c.newRand()
	readings := make([]metric.WaterQualityReading, limit)

	for i := range readings {
		at := hour.Add(-time.Duration(limit-1-i) * time.Hour)
		readings[i] = metric.WaterQualityReading{
			Time:        at.Format(hourLayout),
			PH:          between(rng, 7, 8),
			Oxygen:      between(rng, 6, 8),
			Turbidity:   between(rng, 1, 3),
			Temperature: between(rng, 25, 27),
			Salinity:    between(rng, 34, 35),
		}
	}

	return readings
}

// between draws from [lo, hi), truncated to two decimals.
func between(rng *rand.Rand, lo, hi float64) float64 {
	v := lo + rng.Float64()*(hi-lo)

	return math.Floor(v*100) / 100
}

package metric

import "fmt"

// Kind identifies one category of dashboard data.
type Kind string

const (
	KindStats                Kind = "stats"
	KindTimeline             Kind = "timeline"
	KindByType               Kind = "by-type"
	KindByStatus             Kind = "by-status"
	KindGeoHeatmap           Kind = "geo-heatmap"
	KindSeverityDistribution Kind = "severity-distribution"
	KindTrend                Kind = "trend"

	// Supplementary kinds served by the backend but not shown on the
	// main dashboard grid.
	KindWaterQuality        Kind = "water-quality"
	KindWaterQualityHistory Kind = "water-quality-history"
	KindSuccessStories      Kind = "success-stories"
	KindMarineImpact        Kind = "marine-impact"
)

var dashboardKinds = []Kind{
	KindStats,
	KindTimeline,
	KindByType,
	KindByStatus,
	KindGeoHeatmap,
	KindSeverityDistribution,
	KindTrend,
}

var supplementaryKinds = []Kind{
	KindWaterQuality,
	KindWaterQualityHistory,
	KindSuccessStories,
	KindMarineImpact,
}

// DashboardKinds returns the kinds polled by default, in display order.
func DashboardKinds() []Kind {
	out := make([]Kind, len(dashboardKinds))
	copy(out, dashboardKinds)

	return out
}

// AllKinds returns every known kind.
func AllKinds() []Kind {
	out := make([]Kind, 0, len(dashboardKinds)+len(supplementaryKinds))
	out = append(out, dashboardKinds...)

	return append(out, supplementaryKinds...)
}

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	for _, known := range AllKinds() {
		if k == known {
			return true
		}
	}

	return false
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts config text into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown metric kind %q", s)
	}

	return k, nil
}

// ParseKinds converts a list of names, rejecting unknown and duplicate
// entries.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	seen := make(map[Kind]struct{}, len(names))

	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}

		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("duplicate metric kind %q", name)
		}

		seen[k] = struct{}{}
		kinds = append(kinds, k)
	}

	return kinds, nil
}

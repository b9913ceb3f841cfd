package fallback

import "github.com/aquaguardian/aquaboard/internal/metric"

// Demo values shown while the backend is unreachable or empty.

func demoStats() metric.Stats {
	return metric.Stats{
		TotalReports:    125,
		ActiveUsers:     45,
		ResolvedReports: 82,
		AvgResponseTime: "2.5 days",
	}
}

func demoByType() []metric.TypeCount {
	return []metric.TypeCount{
		{Name: "Plastic Pollution", Value: 45},
		{Name: "Industrial Discharge", Value: 30},
		{Name: "Oil Spill", Value: 15},
		{Name: "Sewage Overflow", Value: 25},
		{Name: "Chemical Contamination", Value: 10},
	}
}

func demoByStatus() []metric.StatusCount {
	return []metric.StatusCount{
		{Status: "Pending", Count: 24},
		{Status: "Investigating", Count: 18},
		{Status: "Resolved", Count: 83},
	}
}

func demoHeatmap() []metric.HeatmapPoint {
	return []metric.HeatmapPoint{
		{Location: "Mumbai Harbor", Lat: 18.9438, Lng: 72.8354, Reports: 45, Severity: 85},
		{Location: "Ganges Delta", Lat: 22.6855, Lng: 88.3667, Reports: 32, Severity: 75},
		{Location: "Chennai Marina", Lat: 13.0500, Lng: 80.2824, Reports: 28, Severity: 65},
		{Location: "Kochi Backwaters", Lat: 9.9312, Lng: 76.2673, Reports: 20, Severity: 60},
	}
}

func demoSeverity() []metric.SeverityBucket {
	return []metric.SeverityBucket{
		{Name: "Critical", Value: 15, Fill: "#ef4444"},
		{Name: "High", Value: 35, Fill: "#f59e0b"},
		{Name: "Medium", Value: 45, Fill: "#eab308"},
		{Name: "Low", Value: 30, Fill: "#10b981"},
	}
}

func demoTrend() []metric.TrendPoint {
	return []metric.TrendPoint{
		{Month: "Jun", Reports: 45, Resolved: 30, AvgResponseTime: 3.2},
		{Month: "Jul", Reports: 52, Resolved: 35, AvgResponseTime: 3.0},
		{Month: "Aug", Reports: 48, Resolved: 40, AvgResponseTime: 2.8},
		{Month: "Sep", Reports: 60, Resolved: 45, AvgResponseTime: 2.5},
		{Month: "Oct", Reports: 55, Resolved: 48, AvgResponseTime: 2.2},
		{Month: "Nov", Reports: 65, Resolved: 55, AvgResponseTime: 2.0},
	}
}

func demoWaterQuality() metric.WaterQuality {
	return metric.WaterQuality{
		PH:          7.8,
		Turbidity:   2.4,
		Oxygen:      6.5,
		Salinity:    34.2,
		Temperature: 26.5,
	}
}

func demoSuccessStories() []metric.SuccessStory {
	return []metric.SuccessStory{
		{
			ID:          1,
			Title:       "Mumbai Harbor Cleanup",
			Location:    "Mumbai",
			Timeframe:   "2024",
			Description: "Removed 5 tons of plastic waste.",
			Image:       "https://images.unsplash.com/photo-1618477461853-5f8dd68aa395?q=80&w=1000&auto=format&fit=crop",
			Status:      "Completed",
			Impact: metric.StoryImpact{
				WaterQualityImproved: 15,
				SpeciesRecovered:     3,
				LivesImpacted:        2000,
				PollutionReduced:     25,
			},
			Challenges:   "High tides",
			Solutions:    "Floating barriers",
			Results:      []string{"Cleaner shoreline", "Reduced waste"},
			Stakeholders: []string{"Local NGOs", "Volunteers"},
		},
	}
}

func demoMarineImpact() metric.MarineImpact {
	return metric.MarineImpact{
		SpeciesImpact: []metric.SpeciesImpact{
			{Species: "Marine Fish", CurrentPopulation: 2500000, ProjectedChange: -15, Threats: []string{"Plastic", "Chemicals"}, ConservationStatus: "Vulnerable"},
			{Species: "Coral Reefs", CurrentPopulation: 850, ProjectedChange: -23, Threats: []string{"Acidification", "Warming"}, ConservationStatus: "Critical"},
			{Species: "Sea Turtles", CurrentPopulation: 45000, ProjectedChange: -8, Threats: []string{"Nets", "Plastic"}, ConservationStatus: "Endangered"},
			{Species: "Dolphins", CurrentPopulation: 12000, ProjectedChange: 3, Threats: []string{"Noise"}, ConservationStatus: "Stable"},
		},
		PollutionSources: []metric.PollutionSource{
			{Source: "Industrial", Impact: 35, Trend: "Increasing"},
			{Source: "Plastic", Impact: 28, Trend: "Stable"},
			{Source: "Agricultural", Impact: 22, Trend: "Decreasing"},
			{Source: "Sewage", Impact: 15, Trend: "Increasing"},
		},
		EcosystemHealth: metric.EcosystemHealth{
			WaterQuality:       82,
			Biodiversity:       75,
			PollutionLevel:     68,
			ConservationEffort: 91,
		},
		AIPredictions: []metric.Prediction{
			{Timeframe: "Next 5 Years", Prediction: "Moderate decline in biodiversity", Confidence: 87, Severity: "High"},
			{Timeframe: "Next 10 Years", Prediction: "Critical threshold for reefs", Confidence: 92, Severity: "Critical"},
		},
	}
}

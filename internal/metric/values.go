package metric

// Stats is the headline counter record.
type Stats struct {
	TotalReports    int    `json:"total_reports"`
	ActiveUsers     int    `json:"active_users"`
	ResolvedReports int    `json:"resolved_reports"`
	AvgResponseTime string `json:"avg_response_time"`
}

// TimelinePoint is one day of report counts. Date is YYYY-MM-DD.
type TimelinePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// TypeCount counts reports per pollution type.
type TypeCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// StatusCount counts reports per workflow status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// HeatmapPoint is a named location with its report volume and severity.
type HeatmapPoint struct {
	Location string  `json:"location"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Reports  int     `json:"reports"`
	Severity int     `json:"severity"`
}

// SeverityBucket counts reports per severity band. Fill is the chart color.
type SeverityBucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Fill  string `json:"fill"`
}

// TrendPoint compares one month of reports and resolutions.
type TrendPoint struct {
	Month           string  `json:"month"`
	Reports         int     `json:"reports"`
	Resolved        int     `json:"resolved"`
	AvgResponseTime float64 `json:"avgResponseTime"`
}

// WaterQuality is the latest sensor reading.
type WaterQuality struct {
	PH          float64 `json:"pH"`
	Turbidity   float64 `json:"turbidity"`
	Oxygen      float64 `json:"oxygen"`
	Salinity    float64 `json:"salinity"`
	Temperature float64 `json:"temperature"`
}

// WaterQualityReading is one point of the sensor history. Time is HH:MM.
type WaterQualityReading struct {
	Time        string  `json:"time"`
	PH          float64 `json:"pH"`
	Oxygen      float64 `json:"oxygen"`
	Turbidity   float64 `json:"turbidity"`
	Temperature float64 `json:"temperature"`
	Salinity    float64 `json:"salinity"`
}

// StoryImpact quantifies a completed cleanup.
type StoryImpact struct {
	WaterQualityImproved int `json:"waterQualityImproved"`
	SpeciesRecovered     int `json:"speciesRecovered"`
	LivesImpacted        int `json:"livesImpacted"`
	PollutionReduced     int `json:"pollutionReduced"`
}

// SuccessStory describes a cleanup campaign.
type SuccessStory struct {
	ID           int         `json:"id"`
	Title        string      `json:"title"`
	Location     string      `json:"location"`
	Timeframe    string      `json:"timeframe"`
	Description  string      `json:"description"`
	Image        string      `json:"image"`
	Status       string      `json:"status"`
	Impact       StoryImpact `json:"impact"`
	Challenges   string      `json:"challenges"`
	Solutions    string      `json:"solutions"`
	Results      []string    `json:"results"`
	Stakeholders []string    `json:"stakeholders"`
}

// SpeciesImpact projects the population change of one species group.
type SpeciesImpact struct {
	Species            string   `json:"species"`
	CurrentPopulation  int      `json:"currentPopulation"`
	ProjectedChange    int      `json:"projectedChange"`
	Threats            []string `json:"threats"`
	ConservationStatus string   `json:"conservationStatus"`
}

// PollutionSource ranks a pollution source by impact.
type PollutionSource struct {
	Source string `json:"source"`
	Impact int    `json:"impact"`
	Trend  string `json:"trend"`
}

// EcosystemHealth holds 0-100 ecosystem scores.
type EcosystemHealth struct {
	WaterQuality       int `json:"water_quality"`
	Biodiversity       int `json:"biodiversity"`
	PollutionLevel     int `json:"pollution_level"`
	ConservationEffort int `json:"conservation_effort"`
}

// Prediction is a model forecast with a 0-100 confidence.
type Prediction struct {
	Timeframe  string `json:"timeframe"`
	Prediction string `json:"prediction"`
	Confidence int    `json:"confidence"`
	Severity   string `json:"severity"`
}

// MarineImpact aggregates the marine impact panels.
type MarineImpact struct {
	SpeciesImpact    []SpeciesImpact   `json:"species_impact"`
	PollutionSources []PollutionSource `json:"pollution_sources"`
	EcosystemHealth  EcosystemHealth   `json:"ecosystem_health"`
	AIPredictions    []Prediction      `json:"ai_predictions"`
}

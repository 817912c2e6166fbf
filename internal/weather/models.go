package weather

import (
	"time"

	"github.com/i474232898/weather-anomaly/internal/anomaly"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
)

// Location represents a place whose current temperature we check.
// City is required; Country narrows the provider lookup. Lat/Lon are
// optional and filled by geocoding when a provider needs them.
type Location struct {
	City    string   `json:"city"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// WeatherSnapshot is the aggregated current reading at a point in time.
type WeatherSnapshot struct {
	Location    Location  `json:"location"`
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Temperature float64   `json:"temperatureC"`
	Condition   Condition `json:"condition"`

	// Providers contributing to this snapshot.
	Providers []ProviderContribution `json:"providers,omitempty"`
}

// ProviderContribution describes data coming from a single provider used in aggregation.
type ProviderContribution struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`
	Temperature  float64   `json:"temperatureC"`
}

// Assessment is the result of checking a current reading against the
// seasonal baseline of its city.
type Assessment struct {
	Snapshot WeatherSnapshot `json:"snapshot"`
	Verdict  anomaly.Verdict `json:"verdict"`
}

package weather

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/weather-anomaly/internal/anomaly"
	"github.com/i474232898/weather-anomaly/internal/dataset"
)

var (
	// ErrInvalidAPIKey is returned by providers whose credentials are rejected.
	ErrInvalidAPIKey = errors.New("invalid API key")
	// ErrNoProviders is returned when no provider is configured.
	ErrNoProviders = errors.New("no weather providers configured")
	// ErrNoReading is returned when every provider failed.
	ErrNoReading = errors.New("no successful provider readings")
)

// ProviderReading represents a single provider's normalized reading
// that can be aggregated into a WeatherSnapshot.
type ProviderReading struct {
	ProviderName string
	Timestamp    time.Time

	TemperatureC float64
	Condition    Condition
}

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (ProviderReading, error)
}

// Store is the contract the in-memory and SQLite stores satisfy. It keeps
// the current historical dataset and the fetched current snapshots.
type Store interface {
	SaveSnapshot(ctx context.Context, loc Location, snapshot WeatherSnapshot) error
	GetLatest(ctx context.Context, loc Location) (WeatherSnapshot, error)
	GetRange(ctx context.Context, loc Location, from, to time.Time) ([]WeatherSnapshot, error)

	// ReplaceHistory swaps the historical dataset for ds.
	ReplaceHistory(ctx context.Context, ds dataset.Dataset) error
	// ActiveDataset returns the metadata of the active dataset, without records.
	ActiveDataset(ctx context.Context) (dataset.Dataset, error)
	// History returns a city's historical records in upload order.
	History(ctx context.Context, city string) ([]anomaly.TemperatureRecord, error)
	// Cities lists the cities of the historical dataset in upload order.
	Cities(ctx context.Context) ([]string, error)
}

package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/i474232898/weather-anomaly/internal/anomaly"
	"github.com/i474232898/weather-anomaly/internal/dataset"
)

// Service ties the historical dataset, the current-weather providers and the
// anomaly detectors together.
type Service struct {
	store     Store
	providers []Provider
	clock     anomaly.Clock
	window    int
}

// NewService creates a new Service. A nil clock means the system clock and a
// window below 1 means anomaly.DefaultWindow.
func NewService(store Store, providers []Provider, clock anomaly.Clock, window int) *Service {
	if clock == nil {
		clock = anomaly.SystemClock
	}
	if window < 1 {
		window = anomaly.DefaultWindow
	}
	return &Service{
		store:     store,
		providers: providers,
		clock:     clock,
		window:    window,
	}
}

// ImportHistory parses a historical CSV and makes it the active dataset.
func (s *Service) ImportHistory(ctx context.Context, r io.Reader) (dataset.Dataset, error) {
	records, err := dataset.Parse(r)
	if err != nil {
		return dataset.Dataset{}, err
	}
	if len(records) == 0 {
		return dataset.Dataset{}, dataset.ErrEmpty
	}

	ds := dataset.New(records, s.clock.Now())
	if err := s.store.ReplaceHistory(ctx, ds); err != nil {
		return dataset.Dataset{}, fmt.Errorf("save history: %w", err)
	}

	log.Printf("INFO: loaded dataset %s with %d records for %d cities", ds.ID, ds.Size, len(ds.Cities))
	return ds, nil
}

// ActiveDataset describes the dataset currently used for baselines.
func (s *Service) ActiveDataset(ctx context.Context) (dataset.Dataset, error) {
	return s.store.ActiveDataset(ctx)
}

// Cities lists the cities of the active dataset.
func (s *Service) Cities(ctx context.Context) ([]string, error) {
	return s.store.Cities(ctx)
}

// Describe returns descriptive statistics of a city's history.
func (s *Service) Describe(ctx context.Context, city string) (anomaly.Summary, error) {
	records, err := s.store.History(ctx, city)
	if err != nil {
		return anomaly.Summary{}, err
	}
	return anomaly.Describe(records), nil
}

// Baselines computes the seasonal baselines of a city from its history.
func (s *Service) Baselines(ctx context.Context, city string) (anomaly.Baselines, error) {
	records, err := s.store.History(ctx, city)
	if err != nil {
		return nil, err
	}
	return anomaly.ComputeBaselines(records), nil
}

// RollingAnomalies runs the rolling detector over a city's history in upload
// order. A window below 1 uses the configured window.
func (s *Service) RollingAnomalies(ctx context.Context, city string, window int) ([]anomaly.RollingStats, error) {
	records, err := s.store.History(ctx, city)
	if err != nil {
		return nil, err
	}
	if window < 1 {
		window = s.window
	}
	return anomaly.DetectRolling(anomaly.SeriesOf(records), window), nil
}

// FetchCurrent fetches data from all providers concurrently for the given
// location and aggregates the successful readings. Partial success is fine;
// if every provider fails the joined provider errors are returned.
func (s *Service) FetchCurrent(ctx context.Context, loc Location) (WeatherSnapshot, error) {
	if len(s.providers) == 0 {
		log.Printf("ERROR: No providers available to fetch weather data for %s", loc.Key())
		return WeatherSnapshot{}, ErrNoProviders
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings []ProviderReading
		errs     []error
	)

	log.Printf("DEBUG: FetchCurrent called for %s with %d providers", loc.Key(), len(s.providers))

	for _, p := range s.providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()

			r, err := p.Fetch(ctx, loc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("provider %s fetch failed for %s: %v", p.Name(), loc.Key(), err)
				errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
				return
			}
			readings = append(readings, r)
		}(p)
	}

	wg.Wait()

	if len(readings) == 0 {
		return WeatherSnapshot{}, errors.Join(append([]error{ErrNoReading}, errs...)...)
	}

	return AggregateReadings(loc, readings, s.clock.Now()), nil
}

// FetchAndStore fetches the current reading for loc and stores it.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) (WeatherSnapshot, error) {
	snapshot, err := s.FetchCurrent(ctx, loc)
	if err != nil {
		// Do not overwrite the last good snapshot.
		log.Printf("no successful provider readings for %s; keeping last good snapshot if any", loc.Key())
		return WeatherSnapshot{}, err
	}
	if err := s.store.SaveSnapshot(ctx, loc, snapshot); err != nil {
		return WeatherSnapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	return snapshot, nil
}

// CheckCurrent fetches the current temperature for loc and classifies it
// against the baseline of the clock's current season.
func (s *Service) CheckCurrent(ctx context.Context, loc Location) (Assessment, error) {
	baselines, err := s.Baselines(ctx, loc.City)
	if err != nil {
		return Assessment{}, err
	}

	season, err := anomaly.CurrentSeason(s.clock)
	if err != nil {
		return Assessment{}, err
	}

	snapshot, err := s.FetchAndStore(ctx, loc)
	if err != nil {
		return Assessment{}, err
	}

	verdict, err := anomaly.Evaluate(snapshot.Temperature, season, baselines)
	if err != nil {
		return Assessment{}, err
	}

	return Assessment{Snapshot: snapshot, Verdict: verdict}, nil
}

// ClassifyReading classifies a supplied reading against a city's baselines.
// A reading without a season is resolved from the clock.
func (s *Service) ClassifyReading(ctx context.Context, city string, reading anomaly.CurrentReading) (anomaly.Verdict, error) {
	baselines, err := s.Baselines(ctx, city)
	if err != nil {
		return anomaly.Verdict{}, err
	}

	if reading.Season == "" {
		reading.Season, err = anomaly.CurrentSeason(s.clock)
		if err != nil {
			return anomaly.Verdict{}, err
		}
	}

	return anomaly.Evaluate(reading.Temperature, reading.Season, baselines)
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(ctx context.Context, loc Location) (WeatherSnapshot, error) {
	return s.store.GetLatest(ctx, loc)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(ctx context.Context, loc Location, from, to time.Time) ([]WeatherSnapshot, error) {
	return s.store.GetRange(ctx, loc, from, to)
}

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-anomaly/internal/anomaly"
	"github.com/i474232898/weather-anomaly/internal/dataset"
	"github.com/i474232898/weather-anomaly/internal/weather"
)

var (
	// ErrNotFound is returned when no data is available for a given location or city.
	ErrNotFound = errors.New("no weather data for location")
)

// SnapshotHistory holds a time-ordered list of weather snapshots for a location.
type SnapshotHistory struct {
	Snapshots []weather.WeatherSnapshot
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location key, value: history
	data map[string]*SnapshotHistory

	// active historical dataset, split per city in upload order
	active dataset.Dataset
	byCity map[string][]anomaly.TemperatureRecord

	// retention configuration
	maxHistory int           // max number of snapshots per location
	maxAge     time.Duration // optional max age for snapshots
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*SnapshotHistory),
		byCity:     make(map[string][]anomaly.TemperatureRecord),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot appends a new snapshot for a location and enforces retention.
func (s *MemoryStore) SaveSnapshot(_ context.Context, loc weather.Location, snapshot weather.WeatherSnapshot) error {
	key := loc.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &SnapshotHistory{}
		s.data[key] = history
	}

	history.Snapshots = append(history.Snapshots, snapshot)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Snapshots) > s.maxHistory {
		over := len(history.Snapshots) - s.maxHistory
		history.Snapshots = history.Snapshots[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Snapshots); i++ {
			if !history.Snapshots[i].Timestamp.Before(cutoff) {
				break
			}
		}
		if i > 0 && i < len(history.Snapshots) {
			history.Snapshots = history.Snapshots[i:]
		}
	}
	return nil
}

// GetLatest returns the most recent snapshot for a location.
func (s *MemoryStore) GetLatest(_ context.Context, loc weather.Location) (weather.WeatherSnapshot, error) {
	key := loc.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Snapshots) == 0 {
		return weather.WeatherSnapshot{}, ErrNotFound
	}
	return history.Snapshots[len(history.Snapshots)-1], nil
}

// GetRange returns all snapshots for a location between from and to (inclusive).
func (s *MemoryStore) GetRange(_ context.Context, loc weather.Location, from, to time.Time) ([]weather.WeatherSnapshot, error) {
	key := loc.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Snapshots) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.WeatherSnapshot
	for _, snap := range history.Snapshots {
		if !snap.Timestamp.Before(from) && !snap.Timestamp.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// ReplaceHistory makes ds the active historical dataset.
func (s *MemoryStore) ReplaceHistory(_ context.Context, ds dataset.Dataset) error {
	byCity := make(map[string][]anomaly.TemperatureRecord)
	for _, r := range ds.Records {
		byCity[r.City] = append(byCity[r.City], r)
	}

	meta := ds
	meta.Records = nil
	meta.Cities = dataset.Cities(ds.Records)
	meta.Size = len(ds.Records)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = meta
	s.byCity = byCity
	return nil
}

// ActiveDataset returns the metadata of the active dataset.
func (s *MemoryStore) ActiveDataset(_ context.Context) (dataset.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active.ID == "" {
		return dataset.Dataset{}, ErrNotFound
	}
	return s.active, nil
}

// History returns a copy of a city's records in upload order.
func (s *MemoryStore) History(_ context.Context, city string) ([]anomaly.TemperatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.byCity[city]
	if !ok || len(records) == 0 {
		return nil, ErrNotFound
	}
	out := make([]anomaly.TemperatureRecord, len(records))
	copy(out, records)
	return out, nil
}

// Cities lists the cities of the active dataset.
func (s *MemoryStore) Cities(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.active.Cities) == 0 {
		return nil, ErrNotFound
	}
	out := make([]string, len(s.active.Cities))
	copy(out, s.active.Cities)
	return out, nil
}

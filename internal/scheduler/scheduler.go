package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-anomaly/internal/anomaly"
	"github.com/i474232898/weather-anomaly/internal/store"
	"github.com/i474232898/weather-anomaly/internal/weather"
)

// Checker classifies the current temperature of a location.
type Checker interface {
	CheckCurrent(ctx context.Context, loc weather.Location) (weather.Assessment, error)
}

// Scheduler periodically checks the current temperature of the configured
// locations against their seasonal baselines.
type Scheduler struct {
	scheduler *gocron.Scheduler
	checker   Checker
	locations []weather.Location
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(locations []weather.Location, interval time.Duration, checker Checker) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		checker:   checker,
		locations: locations,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		log.Println("INFO: scheduler: no locations configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce checks every location concurrently and waits for all of them.
func (s *Scheduler) RunOnce() {
	log.Println("INFO: scheduler: running anomaly check job")

	var wg sync.WaitGroup
	for _, loc := range s.locations {
		wg.Add(1)
		go func(loc weather.Location) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			a, err := s.checker.CheckCurrent(ctx, loc)
			report(loc, a, err)
		}(loc)
	}
	wg.Wait()

	log.Println("INFO: scheduler: completed anomaly check job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func report(loc weather.Location, a weather.Assessment, err error) {
	switch {
	case err == nil && a.Verdict.Anomalous:
		log.Printf("WARN: unusual temperature in %s: %.1f°C outside [%.1f, %.1f] for %s",
			loc.Key(), a.Verdict.Temperature, a.Verdict.Lower, a.Verdict.Upper, a.Verdict.Season)
	case err == nil:
		log.Printf("INFO: temperature in %s is normal for %s: %.1f°C",
			loc.Key(), a.Verdict.Season, a.Verdict.Temperature)
	case errors.Is(err, anomaly.ErrInsufficientData):
		log.Printf("INFO: not enough historical data to classify %s: %v", loc.Key(), err)
	case errors.Is(err, anomaly.ErrUnknownSeason), errors.Is(err, store.ErrNotFound):
		log.Printf("INFO: no seasonal data for %s: %v", loc.Key(), err)
	case errors.Is(err, weather.ErrInvalidAPIKey):
		log.Printf("ERROR: weather provider rejected the API key for %s: %v", loc.Key(), err)
	default:
		log.Printf("ERROR: anomaly check failed for %s: %v", loc.Key(), err)
	}
}

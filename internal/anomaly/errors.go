package anomaly

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMonth     = errors.New("invalid month")
	ErrUnknownSeason    = errors.New("unknown season")
	ErrInsufficientData = errors.New("insufficient data")
)

// InvalidMonthError is returned for a month outside 1..12.
type InvalidMonthError struct {
	Month int
}

func (e *InvalidMonthError) Error() string {
	return fmt.Sprintf("invalid month %d: must be between 1 and 12", e.Month)
}

func (e *InvalidMonthError) Unwrap() error { return ErrInvalidMonth }

// UnknownSeasonError is returned when a season has no baseline, or, with
// Invalid set, when a season name cannot be parsed.
type UnknownSeasonError struct {
	Season  Season
	Invalid bool
}

func (e *UnknownSeasonError) Error() string {
	if e.Invalid {
		return fmt.Sprintf("invalid season name %q: want winter, spring, summer or autumn", string(e.Season))
	}
	return fmt.Sprintf("no seasonal data for season %q", string(e.Season))
}

func (e *UnknownSeasonError) Unwrap() error { return ErrUnknownSeason }

// InsufficientDataError is returned when a season's baseline has too few
// records to estimate a standard deviation.
type InsufficientDataError struct {
	Season Season
	Count  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("not enough data for season %q: %d record(s), need at least 2", string(e.Season), e.Count)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

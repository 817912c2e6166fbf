package anomaly

import (
	"strings"
	"time"
)

// Season is one of the four fixed Northern-Hemisphere calendar buckets.
type Season string

const (
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
)

// Seasons returns all seasons in calendar order.
func Seasons() []Season {
	return []Season{SeasonWinter, SeasonSpring, SeasonSummer, SeasonAutumn}
}

// ParseSeason accepts a season name regardless of case and surrounding spaces.
func ParseSeason(s string) (Season, error) {
	switch Season(strings.ToLower(strings.TrimSpace(s))) {
	case SeasonWinter:
		return SeasonWinter, nil
	case SeasonSpring:
		return SeasonSpring, nil
	case SeasonSummer:
		return SeasonSummer, nil
	case SeasonAutumn:
		return SeasonAutumn, nil
	}
	return "", &UnknownSeasonError{Season: Season(s), Invalid: true}
}

// SeasonOf maps a calendar month (1-12) to its season.
func SeasonOf(month int) (Season, error) {
	switch month {
	case 12, 1, 2:
		return SeasonWinter, nil
	case 3, 4, 5:
		return SeasonSpring, nil
	case 6, 7, 8:
		return SeasonSummer, nil
	case 9, 10, 11:
		return SeasonAutumn, nil
	}
	return "", &InvalidMonthError{Month: month}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// CurrentSeason resolves the season of the clock's current month.
func CurrentSeason(clock Clock) (Season, error) {
	return SeasonOf(int(clock.Now().Month()))
}

package anomaly

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSeasonOf(t *testing.T) {
	want := map[int]Season{
		1: SeasonWinter, 2: SeasonWinter, 3: SeasonSpring, 4: SeasonSpring,
		5: SeasonSpring, 6: SeasonSummer, 7: SeasonSummer, 8: SeasonSummer,
		9: SeasonAutumn, 10: SeasonAutumn, 11: SeasonAutumn, 12: SeasonWinter,
	}
	for month, season := range want {
		got, err := SeasonOf(month)
		require.NoError(t, err)
		require.Equal(t, season, got, "month %d", month)
	}
}

func TestSeasonOfInvalidMonth(t *testing.T) {
	for _, month := range []int{0, 13, -1, 100} {
		_, err := SeasonOf(month)
		var monthErr *InvalidMonthError
		require.ErrorAs(t, err, &monthErr)
		require.Equal(t, month, monthErr.Month)
		require.True(t, errors.Is(err, ErrInvalidMonth))
	}
}

func TestCurrentSeasonUsesClock(t *testing.T) {
	clock := ClockFunc(func() time.Time {
		return time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC)
	})
	season, err := CurrentSeason(clock)
	require.NoError(t, err)
	require.Equal(t, SeasonSummer, season)

	clock = ClockFunc(func() time.Time {
		return time.Date(2023, time.December, 31, 23, 59, 0, 0, time.UTC)
	})
	season, err = CurrentSeason(clock)
	require.NoError(t, err)
	require.Equal(t, SeasonWinter, season)
}

func TestParseSeason(t *testing.T) {
	got, err := ParseSeason("  Autumn ")
	require.NoError(t, err)
	require.Equal(t, SeasonAutumn, got)

	_, err = ParseSeason("fall")
	require.ErrorIs(t, err, ErrUnknownSeason)
	require.EqualError(t, err, `invalid season name "fall": want winter, spring, summer or autumn`)

	var seasonErr *UnknownSeasonError
	require.ErrorAs(t, err, &seasonErr)
	require.True(t, seasonErr.Invalid)

	missing := &UnknownSeasonError{Season: SeasonWinter}
	require.EqualError(t, missing, `no seasonal data for season "winter"`)
}

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestISOWeekKey(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{name: "Monday of week 1", date: day(2024, 1, 1), want: "2024-W01"},
		{name: "Sunday in January belongs to previous year", date: day(2023, 1, 1), want: "2022-W52"},
		{name: "53-week year", date: day(2021, 1, 3), want: "2020-W53"},
		{name: "Late December rolls into next year", date: day(2024, 12, 30), want: "2025-W01"},
		{name: "Mid year", date: day(2024, 6, 15), want: "2024-W24"},
		{name: "Leap day", date: day(2024, 2, 29), want: "2024-W09"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ISOWeekKey(tt.date))
		})
	}
}

func TestISOWeekOf_MatchesStandardLibrary(t *testing.T) {
	for d := day(2015, 12, 1); d.Before(day(2030, 2, 1)); d = d.AddDate(0, 0, 1) {
		year, week := d.ISOWeek()
		got := ISOWeekOf(d)
		if !assert.Equal(t, ISOWeek{Year: year, Week: week}, got, "date %s", DayKey(d)) {
			return
		}
	}
}

func TestISOWeek_Compare(t *testing.T) {
	a := ISOWeek{Year: 2023, Week: 52}
	b := ISOWeek{Year: 2024, Week: 1}
	c := ISOWeek{Year: 2024, Week: 10}

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, c.Compare(b))
	assert.Equal(t, 0, b.Compare(ISOWeek{Year: 2024, Week: 1}))
	assert.True(t, b.Before(c))
	assert.False(t, c.Before(a))
}

func TestDayKeyAndParseDay(t *testing.T) {
	t.Run("Round trip", func(t *testing.T) {
		d, err := ParseDay("2024-03-09")
		require.NoError(t, err)
		assert.Equal(t, day(2024, 3, 9), d)
		assert.Equal(t, "2024-03-09", DayKey(d))
	})

	t.Run("Time of day is ignored", func(t *testing.T) {
		assert.Equal(t, "2024-03-09", DayKey(time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)))
	})

	for _, bad := range []string{"", "2024-3-9", "09/03/2024", "2024-02-30", "2024-03-09T10:00:00Z"} {
		bad := bad
		t.Run("Malformed "+bad, func(t *testing.T) {
			_, err := ParseDay(bad)
			assert.ErrorIs(t, err, domain.ErrMalformedDate)
		})
	}
}

func TestCalendar_Today(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	instant := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)

	t.Run("Reference zone decides the calendar day", func(t *testing.T) {
		cal := NewCalendar(tokyo, func() time.Time { return instant })
		assert.Equal(t, day(2024, 1, 2), cal.Today())
	})

	t.Run("Defaults to UTC", func(t *testing.T) {
		cal := NewCalendar(nil, func() time.Time { return instant })
		assert.Equal(t, day(2024, 1, 1), cal.Today())
		assert.Equal(t, time.UTC, cal.Location())
	})
}

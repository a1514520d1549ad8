// Package engine computes habit streaks and completion analytics from
// snapshots of stored entries. Every function is pure over its input: the
// package performs no I/O and holds no locks.
package engine

import (
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
)

// Calendar projects instants onto calendar days of a single reference zone.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar returns a calendar for loc. A nil loc means UTC and a nil now
// means time.Now.
func NewCalendar(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Day returns the calendar day t falls on in the reference zone.
func (c *Calendar) Day(t time.Time) time.Time {
	return domain.CalendarDay(t.In(c.loc))
}

func (c *Calendar) Today() time.Time {
	return c.Day(c.now())
}

// DayKey formats a calendar day as YYYY-MM-DD.
func DayKey(day time.Time) string {
	return domain.CalendarDay(day).Format(domain.DayLayout)
}

// ParseDay parses a strict YYYY-MM-DD calendar day.
func ParseDay(s string) (time.Time, error) {
	day, err := time.Parse(domain.DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrMalformedDate, s)
	}
	return day, nil
}

// ISOWeek identifies an ISO-8601 week.
type ISOWeek struct {
	Year int
	Week int
}

// ISOWeekOf returns the ISO week of a calendar day. The week belongs to the
// year of its Thursday, so late December can land in week 1 of the next year
// and early January in week 52 or 53 of the previous one.
func ISOWeekOf(day time.Time) ISOWeek {
	d := domain.CalendarDay(day)

	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	thursday := d.AddDate(0, 0, 4-weekday)

	jan1 := time.Date(thursday.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	daysSinceJan1 := int(thursday.Sub(jan1).Hours() / 24)

	return ISOWeek{
		Year: thursday.Year(),
		Week: (daysSinceJan1+1+6) / 7,
	}
}

// ISOWeekKey formats the ISO week of a calendar day as "<year>-W<week>".
func ISOWeekKey(day time.Time) string {
	return ISOWeekOf(day).String()
}

func (w ISOWeek) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Week)
}

// Compare returns -1, 0 or +1 depending on whether w is before, equal to or
// after other.
func (w ISOWeek) Compare(other ISOWeek) int {
	switch {
	case w.Year < other.Year:
		return -1
	case w.Year > other.Year:
		return 1
	case w.Week < other.Week:
		return -1
	case w.Week > other.Week:
		return 1
	}
	return 0
}

func (w ISOWeek) Before(other ISOWeek) bool {
	return w.Compare(other) < 0
}

package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
)

var ErrInvalidWindow = errors.New("window start is after its end")

// Window is an inclusive range of calendar days.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow returns the window of the given number of days ending on to.
func NewWindow(to time.Time, days int) Window {
	if days < 1 {
		days = 1
	}
	to = domain.CalendarDay(to)
	return Window{From: to.AddDate(0, 0, -(days - 1)), To: to}
}

func (w Window) Validate() error {
	if domain.CalendarDay(w.From).After(domain.CalendarDay(w.To)) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidWindow, DayKey(w.From), DayKey(w.To))
	}
	return nil
}

func (w Window) Contains(day time.Time) bool {
	day = domain.CalendarDay(day)
	return !day.Before(domain.CalendarDay(w.From)) && !day.After(domain.CalendarDay(w.To))
}

// Days lists every calendar day of the window, oldest first.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d, end := domain.CalendarDay(w.From), domain.CalendarDay(w.To); !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// DailySeries returns, for each day of the window, the COMPLETED entries of
// that day across all habits divided by the current habit count. Days without
// entries count as 0. The denominator is today's habit count for every day,
// so a habit added mid-window lowers the rates of the days before it existed.
func DailySeries(w Window, entries []domain.HabitEntry, habitCount int) ([]domain.DailyAggregatePoint, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	completedByDay := make(map[string]int)
	for _, e := range entries {
		completed, err := isCompleted(e.Status)
		if err != nil {
			return nil, err
		}
		if completed && w.Contains(e.Date) {
			completedByDay[DayKey(e.Date)]++
		}
	}

	denominator := float64(max(1, habitCount))

	days := w.Days()
	series := make([]domain.DailyAggregatePoint, 0, len(days))
	for _, d := range days {
		key := DayKey(d)
		series = append(series, domain.DailyAggregatePoint{
			Date:           key,
			CompletionRate: float64(completedByDay[key]) / denominator,
		})
	}

	return series, nil
}

// PerHabitSeries rates each habit as completed entries over recorded entries
// inside the window. Days without an entry are left out of the denominator,
// unlike DailySeries. Streaks come from the persisted state; habits without
// one report zero.
func PerHabitSeries(w Window, habits []*domain.Habit, entries []domain.HabitEntry, streaks map[string]domain.StreakState) ([]domain.PerHabitAggregate, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	type counts struct{ completed, total int }

	byHabit := make(map[string]*counts, len(habits))
	for _, h := range habits {
		byHabit[h.ID] = &counts{}
	}

	for _, e := range entries {
		completed, err := isCompleted(e.Status)
		if err != nil {
			return nil, err
		}
		c, ok := byHabit[e.HabitID]
		if !ok || !w.Contains(e.Date) {
			continue
		}
		c.total++
		if completed {
			c.completed++
		}
	}

	result := make([]domain.PerHabitAggregate, 0, len(habits))
	for _, h := range habits {
		c := byHabit[h.ID]

		rate := 0.0
		if c.total > 0 {
			rate = float64(c.completed) / float64(c.total)
		}

		s := streaks[h.ID]
		result = append(result, domain.PerHabitAggregate{
			HabitID:        h.ID,
			Title:          h.Title,
			Frequency:      h.Frequency,
			CompletionRate: rate,
			Classification: Classify(rate),
			CurrentStreak:  s.CurrentStreak,
			LongestStreak:  s.LongestStreak,
		})
	}

	return result, nil
}

// BuildReport assembles the dashboard analytics of one user.
func BuildReport(w Window, habits []*domain.Habit, entries []domain.HabitEntry, streaks []domain.StreakState) (*domain.AnalyticsReport, error) {
	daily, err := DailySeries(w, entries, len(habits))
	if err != nil {
		return nil, err
	}

	streakByHabit := make(map[string]domain.StreakState, len(streaks))
	for _, s := range streaks {
		streakByHabit[s.HabitID] = s
	}

	perHabit, err := PerHabitSeries(w, habits, entries, streakByHabit)
	if err != nil {
		return nil, err
	}

	report := &domain.AnalyticsReport{
		From:     DayKey(w.From),
		To:       DayKey(w.To),
		Daily:    daily,
		PerHabit: perHabit,
		Stats: domain.AnalyticsSummary{
			TotalHabits: len(habits),
		},
	}
	if len(daily) > 0 {
		report.Stats.CompletionToday = daily[len(daily)-1].CompletionRate
	}

	return report, nil
}

package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
)

// Streak holds the current and the longest run of kept periods.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// WeekBucket collapses all entries of one ISO week. A week is completed when
// any of its entries is COMPLETED.
type WeekBucket struct {
	Week      ISOWeek
	Completed bool
}

// RunLength scans kept flags ordered most recent first. Longest is the longest
// maximal run of true values; Current counts the leading true values.
// Adjacency of the underlying periods is not checked: a run is defined over
// the sequence as given.
func RunLength(kept []bool) Streak {
	var s Streak

	run := 0
	for _, k := range kept {
		if k {
			run++
		} else {
			run = 0
		}
		if run > s.Longest {
			s.Longest = run
		}
	}

	for _, k := range kept {
		if !k {
			break
		}
		s.Current++
	}

	return s
}

// Snapshot prepares a most-recent-first history for the calculator. Entries
// dated after today are dropped and, for daily habits, a transient MISSED
// entry is prepended when nothing was recorded today, so an unrecorded today
// breaks the current streak. The input slice is never modified.
func Snapshot(frequency domain.Frequency, history []domain.HabitEntry, today time.Time) []domain.HabitEntry {
	today = domain.CalendarDay(today)

	snap := make([]domain.HabitEntry, 0, len(history)+1)
	for _, e := range history {
		if e.Date.After(today) {
			continue
		}
		snap = append(snap, e)
	}

	if frequency == domain.FrequencyDaily && (len(snap) == 0 || !snap[0].Date.Equal(today)) {
		missed := domain.HabitEntry{Date: today, Status: domain.StatusMissed}
		if len(history) > 0 {
			missed.HabitID = history[0].HabitID
		}
		snap = append([]domain.HabitEntry{missed}, snap...)
	}

	return snap
}

// DailyStreak runs the calculator over per-day statuses, most recent first.
func DailyStreak(history []domain.HabitEntry) (Streak, error) {
	kept := make([]bool, len(history))
	for i, e := range history {
		completed, err := isCompleted(e.Status)
		if err != nil {
			return Streak{}, err
		}
		kept[i] = completed
	}
	return RunLength(kept), nil
}

// BucketWeeks groups entries by ISO week, most recent week first.
func BucketWeeks(history []domain.HabitEntry) ([]WeekBucket, error) {
	index := make(map[ISOWeek]int)
	var buckets []WeekBucket

	for _, e := range history {
		completed, err := isCompleted(e.Status)
		if err != nil {
			return nil, err
		}

		week := ISOWeekOf(e.Date)
		i, ok := index[week]
		if !ok {
			index[week] = len(buckets)
			buckets = append(buckets, WeekBucket{Week: week, Completed: completed})
			continue
		}
		buckets[i].Completed = buckets[i].Completed || completed
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[j].Week.Before(buckets[i].Week)
	})

	return buckets, nil
}

func WeeklyStreak(history []domain.HabitEntry) (Streak, error) {
	buckets, err := BucketWeeks(history)
	if err != nil {
		return Streak{}, err
	}

	kept := make([]bool, len(buckets))
	for i, b := range buckets {
		kept[i] = b.Completed
	}
	return RunLength(kept), nil
}

// Calculate computes the streak of a habit from its full history, most
// recent first, as of today.
func Calculate(frequency domain.Frequency, history []domain.HabitEntry, today time.Time) (Streak, error) {
	switch frequency {
	case domain.FrequencyDaily:
		return DailyStreak(Snapshot(frequency, history, today))
	case domain.FrequencyWeekly:
		return WeeklyStreak(Snapshot(frequency, history, today))
	}
	return Streak{}, fmt.Errorf("%w: %s", domain.ErrUnknownFrequency, frequency)
}

func isCompleted(status domain.EntryStatus) (bool, error) {
	switch status {
	case domain.StatusCompleted:
		return true, nil
	case domain.StatusPartial, domain.StatusMissed:
		return false, nil
	}
	return false, fmt.Errorf("%w: %s", domain.ErrUnknownStatus, status)
}

package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// DayLayout is the canonical calendar-day format used in storage keys and
// on the wire.
const DayLayout = "2006-01-02"

var (
	ErrInvalidEntry  = errors.New("invalid habit entry data")
	ErrMalformedDate = errors.New("malformed date (expected YYYY-MM-DD)")
)

// HabitEntry is the status of one habit on one calendar day. Date carries no
// time of day: it is always midnight UTC of the calendar day it names.
type HabitEntry struct {
	ID      string `json:"id" db:"id"`
	HabitID string `json:"habit_id" db:"habit_id"`

	Date   time.Time   `json:"date" db:"entry_date"`
	Status EntryStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CalendarDay strips the time of day from t, keeping the year, month and day
// as they read in t's own location.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func NewHabitEntry(habitID string, date time.Time, status EntryStatus) *HabitEntry {
	now := time.Now().UTC()

	return &HabitEntry{
		HabitID:   habitID,
		Date:      CalendarDay(date),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *HabitEntry) Validate() error {
	if strings.TrimSpace(e.HabitID) == "" {
		return errors.New("habit_id is required")
	}
	if e.Date.IsZero() {
		return errors.New("date is required")
	}
	if !e.Status.Valid() {
		return ErrUnknownStatus
	}
	return nil
}

func (e HabitEntry) MarshalJSON() ([]byte, error) {
	type entryAlias HabitEntry
	return json.Marshal(struct {
		entryAlias
		Date string `json:"date"`
	}{
		entryAlias: entryAlias(e),
		Date:       e.Date.Format(DayLayout),
	})
}

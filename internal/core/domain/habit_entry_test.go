package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHabitEntry(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Rome")
	if loc == nil {
		loc = time.UTC
	}

	inputDate := time.Date(2026, 1, 28, 23, 30, 0, 0, loc)
	entry := NewHabitEntry("habit-123", inputDate, StatusPartial)

	t.Run("Should set core identity fields correctly", func(t *testing.T) {
		assert.Equal(t, "habit-123", entry.HabitID)
		assert.Equal(t, StatusPartial, entry.Status)
		assert.False(t, entry.CreatedAt.IsZero(), "CreatedAt must be set")
	})

	t.Run("Should keep the calendar day and drop the time of day", func(t *testing.T) {
		assert.Equal(t, time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC), entry.Date)
		assert.Equal(t, "UTC", entry.Date.Location().String())
	})
}

func TestHabitEntry_Validate(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, NewHabitEntry("h1", day, StatusCompleted).Validate())
	assert.Error(t, NewHabitEntry("", day, StatusCompleted).Validate())
	assert.Error(t, (&HabitEntry{HabitID: "h1", Status: StatusMissed}).Validate())
	assert.ErrorIs(t, NewHabitEntry("h1", day, EntryStatus(0)).Validate(), ErrUnknownStatus)
}

func TestHabitEntry_MarshalJSON(t *testing.T) {
	entry := HabitEntry{
		ID:      "e1",
		HabitID: "h1",
		Date:    time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Status:  StatusCompleted,
	}

	raw, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "2024-01-03", decoded["date"])
	assert.Equal(t, "COMPLETED", decoded["status"])
	assert.Equal(t, "h1", decoded["habit_id"])
}

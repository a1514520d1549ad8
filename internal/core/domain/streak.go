package domain

import "time"

// StreakState is the persisted streak of one habit. It is always replaced as
// a whole by a recompute, never patched.
type StreakState struct {
	HabitID       string    `json:"habit_id" db:"habit_id"`
	CurrentStreak int       `json:"current_streak" db:"current_streak"`
	LongestStreak int       `json:"longest_streak" db:"longest_streak"`
	UpdatedAt     time.Time `json:"-" db:"updated_at"`
}

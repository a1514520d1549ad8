package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEntryNotFound = errors.New("habit entry not found")
)

type HabitEntryRepository interface {
	// Upsert stores the entry for (HabitID, Date), overwriting the status of
	// an existing one. The entry is refreshed with the stored id and timestamps.
	Upsert(ctx context.Context, entry *HabitEntry) error

	// CreateMissing records a MISSED entry on date for every habit that has
	// none yet, returning how many rows were inserted.
	CreateMissing(ctx context.Context, habitIDs []string, date time.Time) (int, error)

	GetByID(ctx context.Context, id string) (*HabitEntry, error)

	Delete(ctx context.Context, id string) error

	// ListHistory returns every entry of a habit dated on or before until,
	// most recent first. This is the snapshot the streak calculator consumes.
	ListHistory(ctx context.Context, habitID string, until time.Time) ([]HabitEntry, error)

	// ListByHabitID retrieves entries for a habit within [from, to], most recent first.
	ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]HabitEntry, error)

	// ListByUserIDAndDateRange retrieves the entries of all habits of a user within [from, to].
	ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]HabitEntry, error)
}

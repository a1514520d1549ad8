package domain

import (
	"context"
	"errors"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
	ErrHabitConflict = errors.New("habit version conflict")
)

type HabitRepository interface {
	// Create persists a new habit definition in the storage.
	Create(ctx context.Context, habit *Habit) error

	// GetByID retrieves a habit by its unique identifier.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// ListByUserID retrieves all habits of a user, oldest first.
	ListByUserID(ctx context.Context, userID string) ([]*Habit, error)

	// ListIDs returns the ids of every habit in the system.
	ListIDs(ctx context.Context) ([]string, error)

	// Update modifies an existing habit.
	// Implementations must reject stale versions with ErrHabitConflict.
	Update(ctx context.Context, habit *Habit) error

	// Delete permanently removes a habit together with its entries and streak.
	Delete(ctx context.Context, id string) error
}

type StreakRepository interface {
	// Upsert replaces the whole streak state of a habit.
	Upsert(ctx context.Context, state StreakState) error

	// GetByHabitID returns the persisted state, or a zero state when the
	// habit has never been recomputed.
	GetByHabitID(ctx context.Context, habitID string) (StreakState, error)

	// ListByUserID returns the persisted states of all habits of a user.
	ListByUserID(ctx context.Context, userID string) ([]StreakState, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Delete(ctx context.Context, id string) error
}

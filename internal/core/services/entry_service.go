package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habits/internal/core/engine"
)

// DefaultEntryRangeDays is the span listed when no start date is given.
const DefaultEntryRangeDays = 30

type streakRecomputer interface {
	Recompute(ctx context.Context, habitID string) (domain.StreakState, error)
}

type EntryService struct {
	habitRepo domain.HabitRepository
	entryRepo domain.HabitEntryRepository
	streaks   streakRecomputer
	calendar  *engine.Calendar
}

func NewEntryService(
	habitRepo domain.HabitRepository,
	entryRepo domain.HabitEntryRepository,
	streaks streakRecomputer,
	calendar *engine.Calendar,
) *EntryService {
	return &EntryService{
		habitRepo: habitRepo,
		entryRepo: entryRepo,
		streaks:   streaks,
		calendar:  calendar,
	}
}

type UpsertEntryInput struct {
	HabitID string
	UserID  string
	Date    string
	Status  string
}

type ListEntriesInput struct {
	HabitID string
	UserID  string
	From    string
	To      string
}

// EntryResult is a stored entry together with the streak it produced.
type EntryResult struct {
	Entry  *domain.HabitEntry `json:"entry"`
	Streak domain.StreakState `json:"streak"`
}

// Upsert records the status of a habit on a day, replacing any status already
// recorded for that day, then recomputes the habit's streak.
func (s *EntryService) Upsert(ctx context.Context, input UpsertEntryInput) (*EntryResult, error) {
	if strings.TrimSpace(input.HabitID) == "" {
		return nil, fmt.Errorf("%w: habit_id is required", domain.ErrInvalidEntry)
	}

	date, err := engine.ParseDay(input.Date)
	if err != nil {
		return nil, err
	}

	status, err := domain.ParseEntryStatus(input.Status)
	if err != nil {
		return nil, err
	}

	if _, err := s.ownedHabit(ctx, input.HabitID, input.UserID); err != nil {
		return nil, err
	}

	entry := domain.NewHabitEntry(input.HabitID, date, status)
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEntry, err)
	}

	if err := s.entryRepo.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("entry service: failed to save entry: %w", err)
	}

	state, err := s.streaks.Recompute(ctx, input.HabitID)
	if err != nil {
		return nil, fmt.Errorf("entry service: entry saved but streak not updated: %w", err)
	}

	return &EntryResult{Entry: entry, Streak: state}, nil
}

func (s *EntryService) Delete(ctx context.Context, entryID, userID string) (domain.StreakState, error) {
	entry, err := s.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		return domain.StreakState{}, err
	}

	if _, err := s.ownedHabit(ctx, entry.HabitID, userID); err != nil {
		if errors.Is(err, domain.ErrHabitNotFound) {
			return domain.StreakState{}, domain.ErrEntryNotFound
		}
		return domain.StreakState{}, err
	}

	if err := s.entryRepo.Delete(ctx, entryID); err != nil {
		return domain.StreakState{}, fmt.Errorf("entry service: failed to delete entry: %w", err)
	}

	return s.streaks.Recompute(ctx, entry.HabitID)
}

// ListByHabitID returns the entries of a habit within [From, To], most recent
// first. To defaults to today and From to the DefaultEntryRangeDays days
// ending on To.
func (s *EntryService) ListByHabitID(ctx context.Context, input ListEntriesInput) ([]domain.HabitEntry, error) {
	if _, err := s.ownedHabit(ctx, input.HabitID, input.UserID); err != nil {
		return nil, err
	}

	to := s.calendar.Today()
	if input.To != "" {
		parsed, err := engine.ParseDay(input.To)
		if err != nil {
			return nil, err
		}
		to = parsed
	}

	window := engine.NewWindow(to, DefaultEntryRangeDays)
	if input.From != "" {
		from, err := engine.ParseDay(input.From)
		if err != nil {
			return nil, err
		}
		window.From = from
	}

	if err := window.Validate(); err != nil {
		return nil, err
	}

	entries, err := s.entryRepo.ListByHabitID(ctx, input.HabitID, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("entry service: failed to list entries: %w", err)
	}

	return entries, nil
}

// ownedHabit loads a habit and hides habits of other users as not found.
func (s *EntryService) ownedHabit(ctx context.Context, habitID, userID string) (*domain.Habit, error) {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

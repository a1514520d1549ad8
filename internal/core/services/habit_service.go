package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habits/internal/core/engine"
)

// StreakEnqueuer schedules an asynchronous streak recomputation. HabitService
// only uses it to retry a recompute that failed inline.
type StreakEnqueuer interface {
	Enqueue(habitID string)
}

type HabitService struct {
	repo       domain.HabitRepository
	entryRepo  domain.HabitEntryRepository
	streakRepo domain.StreakRepository
	streaks    streakRecomputer
	queue      StreakEnqueuer
	calendar   *engine.Calendar
	log        logrus.FieldLogger
}

func NewHabitService(
	repo domain.HabitRepository,
	entryRepo domain.HabitEntryRepository,
	streakRepo domain.StreakRepository,
	streaks streakRecomputer,
	queue StreakEnqueuer,
	calendar *engine.Calendar,
	log logrus.FieldLogger,
) *HabitService {
	return &HabitService{
		repo:       repo,
		entryRepo:  entryRepo,
		streakRepo: streakRepo,
		streaks:    streaks,
		queue:      queue,
		calendar:   calendar,
		log:        log.WithField("component", "habit_service"),
	}
}

type CreateHabitInput struct {
	UserID      string
	Title       string
	Description string
	Color       string
	Frequency   string
}

// UpdateHabitInput carries a partial update: nil fields keep their value.
// A positive Version must match the stored one.
type UpdateHabitInput struct {
	ID          string
	UserID      string
	Title       *string
	Description *string
	Color       *string
	Frequency   *string
	Version     int
}

// DayListing is the dashboard view of every habit of a user on one day.
type DayListing struct {
	Date   string            `json:"date"`
	Habits []domain.HabitDay `json:"habits"`
}

func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error) {
	var frequency domain.Frequency
	if input.Frequency != "" {
		parsed, err := domain.ParseFrequency(input.Frequency)
		if err != nil {
			return nil, err
		}
		frequency = parsed
	}

	habit, err := domain.NewHabit(input.UserID, input.Title, input.Description, input.Color, frequency)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, err
	}

	if err := s.streakRepo.Upsert(ctx, domain.StreakState{HabitID: habit.ID, UpdatedAt: habit.CreatedAt}); err != nil {
		return nil, fmt.Errorf("habit service: failed to initialise streak: %w", err)
	}

	return habit, nil
}

// ListForDay returns every habit of the user with its status on date (today
// when empty). For a past day, habits with nothing recorded are marked
// MISSED so the analytics of that day stay stable, and their streaks are
// recomputed before the listing is built.
func (s *HabitService) ListForDay(ctx context.Context, userID, date string) (*DayListing, error) {
	today := s.calendar.Today()
	day := today
	if date != "" {
		parsed, err := engine.ParseDay(date)
		if err != nil {
			return nil, err
		}
		day = parsed
	}

	habits, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses, err := s.statusesOn(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	if day.Before(today) {
		var missing []string
		for _, h := range habits {
			if _, ok := statuses[h.ID]; !ok {
				missing = append(missing, h.ID)
			}
		}

		if len(missing) > 0 {
			created, err := s.entryRepo.CreateMissing(ctx, missing, day)
			if err != nil {
				return nil, fmt.Errorf("habit service: failed to fill missed entries: %w", err)
			}
			if created > 0 {
				s.log.WithFields(logrus.Fields{
					"user_id": userID,
					"date":    engine.DayKey(day),
					"created": created,
				}).Info("filled missed entries")

				for _, id := range missing {
					if _, err := s.streaks.Recompute(ctx, id); err != nil {
						return nil, err
					}
				}

				if statuses, err = s.statusesOn(ctx, userID, day); err != nil {
					return nil, err
				}
			}
		}
	}

	states, err := s.streakRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("habit service: failed to load streaks: %w", err)
	}
	byHabit := make(map[string]domain.StreakState, len(states))
	for _, st := range states {
		byHabit[st.HabitID] = st
	}

	listing := &DayListing{
		Date:   engine.DayKey(day),
		Habits: make([]domain.HabitDay, 0, len(habits)),
	}
	for _, h := range habits {
		hd := domain.HabitDay{
			Habit:         h,
			CurrentStreak: byHabit[h.ID].CurrentStreak,
			LongestStreak: byHabit[h.ID].LongestStreak,
		}
		if st, ok := statuses[h.ID]; ok {
			hd.Status = &st
		}
		listing.Habits = append(listing.Habits, hd)
	}

	return listing, nil
}

func (s *HabitService) statusesOn(ctx context.Context, userID string, day time.Time) (map[string]domain.EntryStatus, error) {
	entries, err := s.entryRepo.ListByUserIDAndDateRange(ctx, userID, day, day)
	if err != nil {
		return nil, fmt.Errorf("habit service: failed to load entries: %w", err)
	}

	statuses := make(map[string]domain.EntryStatus, len(entries))
	for _, e := range entries {
		statuses[e.HabitID] = e.Status
	}
	return statuses, nil
}

func (s *HabitService) Get(ctx context.Context, id, userID string) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}

	return habit, nil
}

func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.Get(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Version > 0 && habit.Version != input.Version {
		return nil, fmt.Errorf("%w: client v%d vs server v%d", domain.ErrHabitConflict, input.Version, habit.Version)
	}

	title := mergeString(input.Title, habit.Title)
	desc := mergeString(input.Description, habit.Description)
	color := mergeString(input.Color, habit.Color)

	frequency := habit.Frequency
	if input.Frequency != nil {
		if frequency, err = domain.ParseFrequency(*input.Frequency); err != nil {
			return nil, err
		}
	}

	frequencyChanged, err := habit.Update(title, desc, color, frequency)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}

	if frequencyChanged {
		s.recomputeForCadence(ctx, habit)
	}

	return habit, nil
}

// recomputeForCadence brings the persisted streak in line with the new
// frequency before Update returns. The habit itself is already saved, so a
// failed recompute is handed to the worker instead of failing the request.
func (s *HabitService) recomputeForCadence(ctx context.Context, habit *domain.Habit) {
	entry := s.log.WithFields(logrus.Fields{
		"habit_id":  habit.ID,
		"frequency": habit.Frequency.String(),
	})

	if _, err := s.streaks.Recompute(ctx, habit.ID); err != nil {
		entry.WithError(err).Warn("streak recompute after cadence change failed, retrying in background")
		s.queue.Enqueue(habit.ID)
		return
	}
	entry.Info("cadence changed, streak recomputed")
}

func (s *HabitService) Delete(ctx context.Context, id string, userID string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}

func mergeString(newVal *string, oldVal string) string {
	if newVal == nil {
		return oldVal
	}
	return *newVal
}

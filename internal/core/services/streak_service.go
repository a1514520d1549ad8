package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habits/internal/core/engine"
	"github.com/comitanigiacomo/kanso-habits/internal/metrics"
)

// StreakService keeps the persisted StreakState of each habit in line with
// its entries.
type StreakService struct {
	habitRepo  domain.HabitRepository
	entryRepo  domain.HabitEntryRepository
	streakRepo domain.StreakRepository
	calendar   *engine.Calendar
	log        logrus.FieldLogger

	locks habitLocks
}

func NewStreakService(
	habitRepo domain.HabitRepository,
	entryRepo domain.HabitEntryRepository,
	streakRepo domain.StreakRepository,
	calendar *engine.Calendar,
	log logrus.FieldLogger,
) *StreakService {
	return &StreakService{
		habitRepo:  habitRepo,
		entryRepo:  entryRepo,
		streakRepo: streakRepo,
		calendar:   calendar,
		log:        log.WithField("component", "streak_service"),
		locks:      habitLocks{held: make(map[string]*habitLock)},
	}
}

// Recompute reads the whole history of a habit, recalculates its streak and
// overwrites the stored state. Calls for the same habit are serialized.
// When the habit or one of its entries carries an unknown cadence or status
// nothing is written.
func (s *StreakService) Recompute(ctx context.Context, habitID string) (domain.StreakState, error) {
	unlock := s.locks.lock(habitID)
	defer unlock()

	start := time.Now()

	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return domain.StreakState{}, fmt.Errorf("streak service: load habit: %w", err)
	}

	frequency := habit.Frequency.String()
	today := s.calendar.Today()

	history, err := s.entryRepo.ListHistory(ctx, habitID, today)
	if err != nil {
		metrics.RecordStreakRecompute(frequency, "storage_error", time.Since(start))
		return domain.StreakState{}, fmt.Errorf("streak service: load history: %w", err)
	}

	streak, err := engine.Calculate(habit.Frequency, history, today)
	if err != nil {
		metrics.RecordStreakRecompute(frequency, "config_error", time.Since(start))
		s.log.WithError(err).WithField("habit_id", habitID).Error("streak not recomputed")
		return domain.StreakState{}, err
	}

	state := domain.StreakState{
		HabitID:       habitID,
		CurrentStreak: streak.Current,
		LongestStreak: streak.Longest,
		UpdatedAt:     time.Now().UTC(),
	}

	if err := s.streakRepo.Upsert(ctx, state); err != nil {
		metrics.RecordStreakRecompute(frequency, "storage_error", time.Since(start))
		return domain.StreakState{}, fmt.Errorf("streak service: save streak: %w", err)
	}

	metrics.RecordStreakRecompute(frequency, "ok", time.Since(start))
	s.log.WithFields(logrus.Fields{
		"habit_id": habitID,
		"current":  state.CurrentStreak,
		"longest":  state.LongestStreak,
	}).Debug("streak recomputed")

	return state, nil
}

// RecomputeAll recomputes every habit in the system, continuing past
// failures. It returns how many habits were updated and the joined errors.
func (s *StreakService) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.habitRepo.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("streak service: list habits: %w", err)
	}

	var (
		updated int
		errs    []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Recompute(ctx, id); err != nil {
			// A habit deleted since ListIDs is not a failure.
			if errors.Is(err, domain.ErrHabitNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("habit %s: %w", id, err))
			continue
		}
		updated++
	}

	return updated, errors.Join(errs...)
}

type habitLock struct {
	mu   sync.Mutex
	refs int
}

// habitLocks hands out one mutex per habit id and forgets it once no caller
// holds or waits on it.
type habitLocks struct {
	mu   sync.Mutex
	held map[string]*habitLock
}

func (l *habitLocks) lock(id string) func() {
	l.mu.Lock()
	hl, ok := l.held[id]
	if !ok {
		hl = &habitLock{}
		l.held[id] = hl
	}
	hl.refs++
	l.mu.Unlock()

	hl.mu.Lock()

	return func() {
		hl.mu.Unlock()

		l.mu.Lock()
		hl.refs--
		if hl.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}

package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habits/internal/core/engine"
	"github.com/comitanigiacomo/kanso-habits/internal/metrics"
)

const (
	DefaultAnalyticsDays = 365
	MaxAnalyticsDays     = 365
)

type AnalyticsService struct {
	habitRepo  domain.HabitRepository
	entryRepo  domain.HabitEntryRepository
	streakRepo domain.StreakRepository
	calendar   *engine.Calendar
}

func NewAnalyticsService(
	habitRepo domain.HabitRepository,
	entryRepo domain.HabitEntryRepository,
	streakRepo domain.StreakRepository,
	calendar *engine.Calendar,
) *AnalyticsService {
	return &AnalyticsService{
		habitRepo:  habitRepo,
		entryRepo:  entryRepo,
		streakRepo: streakRepo,
		calendar:   calendar,
	}
}

// ClampDays bounds a requested window length to [1, MaxAnalyticsDays]; zero
// selects DefaultAnalyticsDays.
func ClampDays(days int) int {
	switch {
	case days == 0:
		return DefaultAnalyticsDays
	case days < 1:
		return 1
	case days > MaxAnalyticsDays:
		return MaxAnalyticsDays
	}
	return days
}

// Report builds the completion analytics of a user over the last days days,
// today included.
func (s *AnalyticsService) Report(ctx context.Context, userID string, days int) (*domain.AnalyticsReport, error) {
	start := time.Now()
	window := engine.NewWindow(s.calendar.Today(), ClampDays(days))

	var (
		habits  []*domain.Habit
		entries []domain.HabitEntry
		streaks []domain.StreakState
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		habits, err = s.habitRepo.ListByUserID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.entryRepo.ListByUserIDAndDateRange(gctx, userID, window.From, window.To)
		return err
	})
	g.Go(func() error {
		var err error
		streaks, err = s.streakRepo.ListByUserID(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analytics service: failed to load data: %w", err)
	}

	report, err := engine.BuildReport(window, habits, entries, streaks)
	if err != nil {
		return nil, err
	}

	metrics.RecordAnalyticsReport(time.Since(start))
	return report, nil
}

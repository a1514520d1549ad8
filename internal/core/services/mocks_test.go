package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
)

type MockHabitRepository struct {
	mock.Mock
}

func (m *MockHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	args := m.Called(ctx, habit)
	return args.Error(0)
}

func (m *MockHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Habit), args.Error(1)
}

func (m *MockHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Habit), args.Error(1)
}

func (m *MockHabitRepository) ListIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	args := m.Called(ctx, habit)
	return args.Error(0)
}

func (m *MockHabitRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) Upsert(ctx context.Context, entry *domain.HabitEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepository) CreateMissing(ctx context.Context, habitIDs []string, date time.Time) (int, error) {
	args := m.Called(ctx, habitIDs, date)
	return args.Int(0), args.Error(1)
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id string) (*domain.HabitEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HabitEntry), args.Error(1)
}

func (m *MockEntryRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEntryRepository) ListHistory(ctx context.Context, habitID string, until time.Time) ([]domain.HabitEntry, error) {
	args := m.Called(ctx, habitID, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HabitEntry), args.Error(1)
}

func (m *MockEntryRepository) ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]domain.HabitEntry, error) {
	args := m.Called(ctx, habitID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HabitEntry), args.Error(1)
}

func (m *MockEntryRepository) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]domain.HabitEntry, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HabitEntry), args.Error(1)
}

type MockStreakRepository struct {
	mock.Mock
}

func (m *MockStreakRepository) Upsert(ctx context.Context, state domain.StreakState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockStreakRepository) GetByHabitID(ctx context.Context, habitID string) (domain.StreakState, error) {
	args := m.Called(ctx, habitID)
	return args.Get(0).(domain.StreakState), args.Error(1)
}

func (m *MockStreakRepository) ListByUserID(ctx context.Context, userID string) ([]domain.StreakState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreakState), args.Error(1)
}

type MockRecomputer struct {
	mock.Mock
}

func (m *MockRecomputer) Recompute(ctx context.Context, habitID string) (domain.StreakState, error) {
	args := m.Called(ctx, habitID)
	return args.Get(0).(domain.StreakState), args.Error(1)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(habitID string) {
	m.Called(habitID)
}

package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
)

// MemoryStore keeps every table in process memory behind one lock, so the
// repositories built on it can cascade deletes the way the database does.
// Values are copied in and out; callers never share state with the store.
type MemoryStore struct {
	mu sync.RWMutex

	users   map[string]domain.User
	habits  map[string]domain.Habit
	entries map[string]domain.HabitEntry
	streaks map[string]domain.StreakState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		habits:  make(map[string]domain.Habit),
		entries: make(map[string]domain.HabitEntry),
		streaks: make(map[string]domain.StreakState),
	}
}

func (s *MemoryStore) Habits() *InMemoryHabitRepository   { return &InMemoryHabitRepository{s} }
func (s *MemoryStore) Entries() *InMemoryEntryRepository  { return &InMemoryEntryRepository{s} }
func (s *MemoryStore) Streaks() *InMemoryStreakRepository { return &InMemoryStreakRepository{s} }
func (s *MemoryStore) Users() *InMemoryUserRepository     { return &InMemoryUserRepository{s} }

var (
	_ domain.HabitRepository      = (*InMemoryHabitRepository)(nil)
	_ domain.HabitEntryRepository = (*InMemoryEntryRepository)(nil)
	_ domain.StreakRepository     = (*InMemoryStreakRepository)(nil)
	_ domain.UserRepository       = (*InMemoryUserRepository)(nil)
)

type InMemoryHabitRepository struct {
	s *MemoryStore
}

func (r *InMemoryHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	habit.Version = 1
	r.s.habits[habit.ID] = *habit
	return nil
}

func (r *InMemoryHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	habit, ok := r.s.habits[id]
	if !ok {
		return nil, domain.ErrHabitNotFound
	}
	return &habit, nil
}

func (r *InMemoryHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	habits := []*domain.Habit{}
	for _, h := range r.s.habits {
		if h.UserID == userID {
			h := h
			habits = append(habits, &h)
		}
	}

	sort.Slice(habits, func(i, j int) bool {
		if habits[i].CreatedAt.Equal(habits[j].CreatedAt) {
			return habits[i].ID < habits[j].ID
		}
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})

	return habits, nil
}

func (r *InMemoryHabitRepository) ListIDs(ctx context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]string, 0, len(r.s.habits))
	for id := range r.s.habits {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *InMemoryHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.habits[habit.ID]
	if !ok {
		return domain.ErrHabitNotFound
	}
	if stored.Version != habit.Version {
		return domain.ErrHabitConflict
	}

	habit.Version++
	r.s.habits[habit.ID] = *habit
	return nil
}

func (r *InMemoryHabitRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.habits[id]; !ok {
		return domain.ErrHabitNotFound
	}

	r.s.deleteHabitLocked(id)
	return nil
}

func (s *MemoryStore) deleteHabitLocked(id string) {
	delete(s.habits, id)
	delete(s.streaks, id)
	for entryID, e := range s.entries {
		if e.HabitID == id {
			delete(s.entries, entryID)
		}
	}
}

type InMemoryEntryRepository struct {
	s *MemoryStore
}

func (r *InMemoryEntryRepository) Upsert(ctx context.Context, entry *domain.HabitEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.habits[entry.HabitID]; !ok {
		return domain.ErrHabitNotFound
	}

	entry.Date = domain.CalendarDay(entry.Date)
	for id, e := range r.s.entries {
		if e.HabitID == entry.HabitID && e.Date.Equal(entry.Date) {
			e.Status = entry.Status
			e.UpdatedAt = entry.UpdatedAt
			r.s.entries[id] = e
			*entry = e
			return nil
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	r.s.entries[entry.ID] = *entry
	return nil
}

func (r *InMemoryEntryRepository) CreateMissing(ctx context.Context, habitIDs []string, date time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	date = domain.CalendarDay(date)
	recorded := make(map[string]bool)
	for _, e := range r.s.entries {
		if e.Date.Equal(date) {
			recorded[e.HabitID] = true
		}
	}

	created := 0
	for _, habitID := range habitIDs {
		if recorded[habitID] {
			continue
		}
		if _, ok := r.s.habits[habitID]; !ok {
			continue
		}
		e := domain.NewHabitEntry(habitID, date, domain.StatusMissed)
		e.ID = uuid.NewString()
		r.s.entries[e.ID] = *e
		recorded[habitID] = true
		created++
	}
	return created, nil
}

func (r *InMemoryEntryRepository) GetByID(ctx context.Context, id string) (*domain.HabitEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return &e, nil
}

func (r *InMemoryEntryRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.entries[id]; !ok {
		return domain.ErrEntryNotFound
	}
	delete(r.s.entries, id)
	return nil
}

func (r *InMemoryEntryRepository) ListHistory(ctx context.Context, habitID string, until time.Time) ([]domain.HabitEntry, error) {
	until = domain.CalendarDay(until)
	return r.filter(func(e domain.HabitEntry) bool {
		return e.HabitID == habitID && !e.Date.After(until)
	}, true), nil
}

func (r *InMemoryEntryRepository) ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]domain.HabitEntry, error) {
	from, to = domain.CalendarDay(from), domain.CalendarDay(to)
	return r.filter(func(e domain.HabitEntry) bool {
		return e.HabitID == habitID && !e.Date.Before(from) && !e.Date.After(to)
	}, true), nil
}

func (r *InMemoryEntryRepository) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]domain.HabitEntry, error) {
	from, to = domain.CalendarDay(from), domain.CalendarDay(to)

	r.s.mu.RLock()
	owned := make(map[string]bool)
	for id, h := range r.s.habits {
		if h.UserID == userID {
			owned[id] = true
		}
	}
	r.s.mu.RUnlock()

	return r.filter(func(e domain.HabitEntry) bool {
		return owned[e.HabitID] && !e.Date.Before(from) && !e.Date.After(to)
	}, false), nil
}

func (r *InMemoryEntryRepository) filter(keep func(domain.HabitEntry) bool, desc bool) []domain.HabitEntry {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.HabitEntry{}
	for _, e := range r.s.entries {
		if keep(e) {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].HabitID < out[j].HabitID
		}
		if desc {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

type InMemoryStreakRepository struct {
	s *MemoryStore
}

func (r *InMemoryStreakRepository) Upsert(ctx context.Context, state domain.StreakState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.habits[state.HabitID]; !ok {
		return domain.ErrHabitNotFound
	}
	r.s.streaks[state.HabitID] = state
	return nil
}

func (r *InMemoryStreakRepository) GetByHabitID(ctx context.Context, habitID string) (domain.StreakState, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if st, ok := r.s.streaks[habitID]; ok {
		return st, nil
	}
	return domain.StreakState{HabitID: habitID}, nil
}

func (r *InMemoryStreakRepository) ListByUserID(ctx context.Context, userID string) ([]domain.StreakState, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	states := []domain.StreakState{}
	for id, st := range r.s.streaks {
		if r.s.habits[id].UserID == userID {
			states = append(states, st)
		}
	}
	sort.Slice(states, func(i, j int) bool { return states[i].HabitID < states[j].HabitID })
	return states, nil
}

type InMemoryUserRepository struct {
	s *MemoryStore
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrEmailAlreadyExists
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *InMemoryUserRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.s.users, id)

	for habitID, h := range r.s.habits {
		if h.UserID == id {
			r.s.deleteHabitLocked(habitID)
		}
	}
	return nil
}

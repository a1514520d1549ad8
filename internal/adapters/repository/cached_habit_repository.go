package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
)

var _ domain.HabitRepository = (*CachedHabitRepository)(nil)

const (
	habitListTTL = 30 * time.Minute
	habitItemTTL = 10 * time.Minute

	userHabitsKeyPrefix = "kanso:habits:user:"
	habitKeyPrefix      = "kanso:habits:id:"

	// Generation counters outlive any value they guard.
	generationTTL = habitListTTL + time.Minute
)

var errStaleRead = errors.New("habit cache: invalidated during read")

// CachedHabitRepository caches the per-user habit list and single habits in
// Redis in front of next. Every write drops both the habit and its owner's
// list and bumps their generation counters; a read-through only fills the
// cache when the generation it saw before reading next is still current, so
// a read racing a write cannot put the old habit back. Redis failures
// degrade to a direct read and never fail the call.
type CachedHabitRepository struct {
	next domain.HabitRepository
	rdb  *redis.Client
	log  logrus.FieldLogger
}

func NewCachedHabitRepository(next domain.HabitRepository, rdb *redis.Client, log logrus.FieldLogger) *CachedHabitRepository {
	return &CachedHabitRepository{
		next: next,
		rdb:  rdb,
		log:  log.WithField("component", "habit_cache"),
	}
}

func userHabitsKey(userID string) string { return userHabitsKeyPrefix + userID }
func habitKey(id string) string          { return habitKeyPrefix + id }
func generationKey(key string) string    { return key + ":gen" }

// generation returns the invalidation counter of key. ok is false when Redis
// could not be read, in which case the caller must not fill the cache.
func (r *CachedHabitRepository) generation(ctx context.Context, key string) (gen string, ok bool) {
	gen, err := r.rdb.Get(ctx, generationKey(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.log.WithError(err).WithField("key", key).Warn("habit cache read failed")
		return "", false
	}
	return gen, true
}

// load decodes key into dst. It reports false on a miss, a Redis error or a
// corrupted value; corrupted values are removed.
func (r *CachedHabitRepository) load(ctx context.Context, key string, dst any) bool {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WithError(err).WithField("key", key).Warn("habit cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.log.WithField("key", key).Warn("corrupted habit cache entry, dropping it")
		r.rdb.Del(ctx, key)
		return false
	}
	return true
}

// store writes v under key unless key was invalidated since gen was read.
func (r *CachedHabitRepository) store(ctx context.Context, key, gen string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}

	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey(key)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, raw, ttl)
			return nil
		})
		return err
	}, generationKey(key))

	switch {
	case err == nil:
	case errors.Is(err, errStaleRead), errors.Is(err, redis.TxFailedErr):
		r.log.WithField("key", key).Debug("habit cache fill skipped, entry invalidated meanwhile")
	default:
		r.log.WithError(err).WithField("key", key).Warn("habit cache write failed")
	}
}

// forget drops keys and bumps their generations in one round trip.
func (r *CachedHabitRepository) forget(ctx context.Context, keys ...string) {
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, key := range keys {
			p.Del(ctx, key)
			p.Incr(ctx, generationKey(key))
			p.Expire(ctx, generationKey(key), generationTTL)
		}
		return nil
	})
	if err != nil {
		r.log.WithError(err).WithField("keys", keys).Warn("habit cache invalidation failed")
	}
}

func (r *CachedHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	key := userHabitsKey(userID)

	var cached []*domain.Habit
	if r.load(ctx, key, &cached) {
		return cached, nil
	}

	gen, fill := r.generation(ctx, key)

	habits, err := r.next.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if fill {
		r.store(ctx, key, gen, habits, habitListTTL)
	}
	return habits, nil
}

// GetByID serves the ownership lookups done on every entry write.
func (r *CachedHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	key := habitKey(id)

	var cached domain.Habit
	if r.load(ctx, key, &cached) {
		return &cached, nil
	}

	gen, fill := r.generation(ctx, key)

	habit, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if fill {
		r.store(ctx, key, gen, habit, habitItemTTL)
	}
	return habit, nil
}

// ListIDs feeds the rollover job and is never cached.
func (r *CachedHabitRepository) ListIDs(ctx context.Context) ([]string, error) {
	return r.next.ListIDs(ctx)
}

func (r *CachedHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Create(ctx, habit); err != nil {
		return err
	}
	r.forget(ctx, habitKey(habit.ID), userHabitsKey(habit.UserID))
	return nil
}

func (r *CachedHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	err := r.next.Update(ctx, habit)
	// A conflict means the cached copy may be the stale one.
	if err == nil || errors.Is(err, domain.ErrHabitConflict) {
		r.forget(ctx, habitKey(habit.ID), userHabitsKey(habit.UserID))
	}
	return err
}

func (r *CachedHabitRepository) Delete(ctx context.Context, id string) error {
	habit, lookupErr := r.next.GetByID(ctx, id)

	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}

	if lookupErr == nil {
		r.forget(ctx, habitKey(id), userHabitsKey(habit.UserID))
	} else {
		r.forget(ctx, habitKey(id))
	}
	return nil
}

package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habits/internal/logger"
)

type fakeRecomputer struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	seen  chan string
}

func newFakeRecomputer() *fakeRecomputer {
	return &fakeRecomputer{fail: map[string]error{}, seen: make(chan string, 64)}
}

func (f *fakeRecomputer) Recompute(_ context.Context, habitID string) (domain.StreakState, error) {
	f.mu.Lock()
	f.calls = append(f.calls, habitID)
	err := f.fail[habitID]
	f.mu.Unlock()

	f.seen <- habitID
	if err != nil {
		return domain.StreakState{}, err
	}
	return domain.StreakState{HabitID: habitID, CurrentStreak: 1, LongestStreak: 1}, nil
}

type fakeLister struct {
	ids []string
	err error
}

func (f fakeLister) ListIDs(context.Context) ([]string, error) {
	return f.ids, f.err
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for recompute of %s", want)
	}
}

func TestStreakWorker_ProcessesQueue(t *testing.T) {
	t.Run("Success: Enqueued habits are recomputed in order", func(t *testing.T) {
		rec := newFakeRecomputer()
		rec.fail["bad"] = errors.New("boom")
		w := NewStreakWorker(rec, fakeLister{}, 8, logger.Discard())

		ctx, cancel := context.WithCancel(context.Background())
		w.Start(ctx)

		w.Enqueue("a")
		w.Enqueue("bad")
		w.Enqueue("b")

		waitFor(t, rec.seen, "a")
		waitFor(t, rec.seen, "bad")
		waitFor(t, rec.seen, "b")

		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
		defer stopCancel()
		w.Stop(stopCtx)
	})
}

func TestStreakWorker_Enqueue(t *testing.T) {
	t.Run("Success: Full queue drops instead of blocking", func(t *testing.T) {
		w := NewStreakWorker(newFakeRecomputer(), fakeLister{}, 1, logger.Discard())

		w.Enqueue("a")
		w.Enqueue("b")

		require.Len(t, w.jobs, 1)
		assert.Equal(t, "a", (<-w.jobs).HabitID)
	})

	t.Run("Success: Non positive size falls back to the default", func(t *testing.T) {
		w := NewStreakWorker(newFakeRecomputer(), fakeLister{}, 0, logger.Discard())
		assert.Equal(t, DefaultQueueSize, cap(w.jobs))
	})
}

func TestStreakWorker_Rollover(t *testing.T) {
	t.Run("Success: Queues every habit", func(t *testing.T) {
		w := NewStreakWorker(newFakeRecomputer(), fakeLister{ids: []string{"a", "b", "c"}}, 8, logger.Discard())

		n, err := w.Rollover(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Len(t, w.jobs, 3)
	})

	t.Run("Success: Waits for room when the queue is full", func(t *testing.T) {
		rec := newFakeRecomputer()
		w := NewStreakWorker(rec, fakeLister{ids: []string{"a", "b", "c", "d"}}, 1, logger.Discard())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w.Start(ctx)

		n, err := w.Rollover(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		for _, id := range []string{"a", "b", "c", "d"} {
			waitFor(t, rec.seen, id)
		}
	})

	t.Run("Fail: Cancelled context stops queueing", func(t *testing.T) {
		w := NewStreakWorker(newFakeRecomputer(), fakeLister{ids: []string{"a", "b", "c"}}, 1, logger.Discard())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		n, err := w.Rollover(ctx)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, n)
	})

	t.Run("Fail: Listing error", func(t *testing.T) {
		w := NewStreakWorker(newFakeRecomputer(), fakeLister{err: errors.New("db down")}, 1, logger.Discard())

		_, err := w.Rollover(context.Background())

		assert.ErrorContains(t, err, "db down")
	})
}

func TestStreakWorker_ScheduleRollover(t *testing.T) {
	t.Run("Success: Valid schedule starts and stops", func(t *testing.T) {
		w := NewStreakWorker(newFakeRecomputer(), fakeLister{}, 1, logger.Discard())
		ctx, cancel := context.WithCancel(context.Background())
		w.Start(ctx)

		rome, err := time.LoadLocation("Europe/Rome")
		require.NoError(t, err)
		require.NoError(t, w.ScheduleRollover(ctx, "5 0 * * *", rome))
		assert.Len(t, w.cron.Entries(), 1)

		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
		defer stopCancel()
		w.Stop(stopCtx)
	})

	t.Run("Fail: Invalid schedule", func(t *testing.T) {
		w := NewStreakWorker(newFakeRecomputer(), fakeLister{}, 1, logger.Discard())

		err := w.ScheduleRollover(context.Background(), "every midnight", nil)

		assert.ErrorContains(t, err, "invalid rollover schedule")
		assert.Nil(t, w.cron)
	})
}

func TestStreakWorker_Stop(t *testing.T) {
	t.Run("Success: Never started worker stops at once", func(t *testing.T) {
		log, hook := logtest.NewNullLogger()
		w := NewStreakWorker(newFakeRecomputer(), fakeLister{}, 1, log)

		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		start := time.Now()
		w.Stop(stopCtx)

		assert.Less(t, time.Since(start), time.Second)
		assert.NoError(t, stopCtx.Err())
		for _, e := range hook.AllEntries() {
			assert.NotEqual(t, logrus.WarnLevel, e.Level, e.Message)
		}
	})

	t.Run("Success: Second Start is ignored", func(t *testing.T) {
		rec := newFakeRecomputer()
		w := NewStreakWorker(rec, fakeLister{}, 4, logger.Discard())

		ctx, cancel := context.WithCancel(context.Background())
		w.Start(ctx)
		w.Start(ctx)

		w.Enqueue("a")
		waitFor(t, rec.seen, "a")

		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
		defer stopCancel()
		w.Stop(stopCtx)
		assert.NoError(t, stopCtx.Err())
	})
}

package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habits/internal/metrics"
)

const DefaultQueueSize = 256

type Recomputer interface {
	Recompute(ctx context.Context, habitID string) (domain.StreakState, error)
}

type HabitLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

type StreakJob struct {
	HabitID string
}

// StreakWorker recomputes streaks off the request path: retries of failed
// inline recomputes, and every habit once a day so current streaks follow the
// calendar without a write.
type StreakWorker struct {
	streaks Recomputer
	habits  HabitLister
	jobs    chan StreakJob
	log     logrus.FieldLogger

	cron    *cron.Cron
	started atomic.Bool
	done    chan struct{}
	once    sync.Once
}

func NewStreakWorker(streaks Recomputer, habits HabitLister, queueSize int, log logrus.FieldLogger) *StreakWorker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &StreakWorker{
		streaks: streaks,
		habits:  habits,
		jobs:    make(chan StreakJob, queueSize),
		log:     log.WithField("component", "streak_worker"),
		done:    make(chan struct{}),
	}
}

// Start drains the queue in the background until ctx is cancelled. Only the
// first call has an effect.
func (w *StreakWorker) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(w.done)
		w.log.Info("streak worker started")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				w.log.Info("streak worker shutting down")
				return
			}
		}
	}()
}

// Enqueue never blocks: when the queue is full the job is dropped.
func (w *StreakWorker) Enqueue(habitID string) {
	select {
	case w.jobs <- StreakJob{HabitID: habitID}:
	default:
		metrics.RecordStreakJobDropped()
		w.log.WithField("habit_id", habitID).Warn("streak queue full, dropping job")
	}
}

// Rollover queues every habit, waiting for room in the queue. It returns the
// number of habits queued.
func (w *StreakWorker) Rollover(ctx context.Context) (int, error) {
	ids, err := w.habits.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("streak worker: list habits: %w", err)
	}

	for i, id := range ids {
		select {
		case w.jobs <- StreakJob{HabitID: id}:
		case <-ctx.Done():
			return i, ctx.Err()
		}
	}

	return len(ids), nil
}

// ScheduleRollover runs Rollover on a standard five-field cron spec evaluated
// in loc.
func (w *StreakWorker) ScheduleRollover(ctx context.Context, spec string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	cronLog := cron.PrintfLogger(w.log)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	_, err := c.AddFunc(spec, func() {
		start := time.Now()
		n, err := w.Rollover(ctx)
		entry := w.log.WithFields(logrus.Fields{"queued": n, "took": time.Since(start).String()})
		if err != nil {
			entry.WithError(err).Error("streak rollover failed")
			return
		}
		entry.Info("streak rollover queued")
	})
	if err != nil {
		return fmt.Errorf("streak worker: invalid rollover schedule %q: %w", spec, err)
	}

	w.cron = c
	c.Start()
	w.log.WithField("schedule", spec).Info("streak rollover scheduled")
	return nil
}

// Stop halts the rollover schedule and waits, bounded by ctx, for the queue
// consumer to exit. The consumer exits once the context given to Start ends.
// A worker that was never started returns immediately.
func (w *StreakWorker) Stop(ctx context.Context) {
	w.once.Do(func() {
		if w.cron != nil {
			<-w.cron.Stop().Done()
		}
	})

	if !w.started.Load() {
		return
	}

	select {
	case <-w.done:
	case <-ctx.Done():
		w.log.Warn("streak worker did not stop in time")
	}
}

func (w *StreakWorker) processJob(ctx context.Context, job StreakJob) {
	state, err := w.streaks.Recompute(ctx, job.HabitID)
	if err != nil {
		w.log.WithError(err).WithField("habit_id", job.HabitID).Error("streak recompute failed")
		return
	}

	w.log.WithFields(logrus.Fields{
		"habit_id": job.HabitID,
		"current":  state.CurrentStreak,
		"longest":  state.LongestStreak,
	}).Debug("streak updated")
}

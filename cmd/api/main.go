package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/comitanigiacomo/kanso-habits/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-habits/internal/adapters/database"
	adapterHTTP "github.com/comitanigiacomo/kanso-habits/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-habits/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-habits/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-habits/internal/config"
	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habits/internal/core/engine"
	"github.com/comitanigiacomo/kanso-habits/internal/core/services"
	"github.com/comitanigiacomo/kanso-habits/internal/core/workers"
	"github.com/comitanigiacomo/kanso-habits/internal/logger"
)

// @title                      Kanso Habits API
// @version                    1.0
// @description                Habit tracking with streaks and completion analytics.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("kanso habits stopped")
	}
}

type app struct {
	router *gin.Engine
	worker *workers.StreakWorker
	db     *sqlx.DB
	redis  *redis.Client
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

type storage struct {
	habits  domain.HabitRepository
	entries domain.HabitEntryRepository
	streaks domain.StreakRepository
	users   domain.UserRepository
	db      *sqlx.DB
}

func openStorage(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*storage, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		store := repository.NewMemoryStore()
		return &storage{
			habits:  store.Habits(),
			entries: store.Entries(),
			streaks: store.Streaks(),
			users:   store.Users(),
		}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := database.Connect(connectCtx, cfg.DB, log)
	if err != nil {
		return nil, err
	}

	if cfg.DB.MigrateOnStart {
		if err := database.Migrate(db, log); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &storage{
		habits:  repository.NewPostgresHabitRepository(db),
		entries: repository.NewPostgresEntryRepository(db),
		streaks: repository.NewPostgresStreakRepository(db),
		users:   repository.NewPostgresUserRepository(db),
		db:      db,
	}, nil
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &app{db: store.db}

	habitRepo := store.habits
	var limiter middleware.Limiter = middleware.NewLocalLimiter()

	if cfg.Redis.Enabled() {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, running without cache and with local rate limits")
		} else {
			a.redis = rdb
			habitRepo = repository.NewCachedHabitRepository(habitRepo, rdb, log)
			limiter = middleware.NewRedisLimiter(rdb)
		}
	}

	calendar := engine.NewCalendar(cfg.Location(), nil)

	tokenService := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenDuration, store.users)
	authService := services.NewAuthService(store.users, tokenService)
	// Recomputes read the cadence from storage, never from the cache.
	streakService := services.NewStreakService(store.habits, store.entries, store.streaks, calendar, log)

	a.worker = workers.NewStreakWorker(streakService, store.habits, cfg.StreakQueueSize, log)

	habitService := services.NewHabitService(habitRepo, store.entries, store.streaks, streakService, a.worker, calendar, log)
	entryService := services.NewEntryService(habitRepo, store.entries, streakService, calendar)
	analyticsService := services.NewAnalyticsService(habitRepo, store.entries, store.streaks, calendar)

	a.router = adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:      adapterHTTP.NewAuthHandler(authService),
		HabitHandler:     adapterHTTP.NewHabitHandler(habitService),
		EntryHandler:     adapterHTTP.NewEntryHandler(entryService),
		AnalyticsHandler: adapterHTTP.NewAnalyticsHandler(analyticsService),
		Tokens:           tokenService,
		Limiter:          limiter,
		AllowedOrigins:   cfg.AllowedOrigins(),
		DB:               store.db,
		Redis:            a.redis,
		Log:              log,
		StartTime:        time.Now(),
	})

	return a, nil
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	a.worker.Start(workerCtx)
	if err := a.worker.ScheduleRollover(workerCtx, cfg.StreakRolloverCron, cfg.Location()); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "storage": cfg.Storage, "timezone": cfg.Timezone}).Info("kanso habits listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("stop signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}

	stopWorker()
	a.worker.Stop(shutdownCtx)

	log.Info("server stopped gracefully")
	return nil
}

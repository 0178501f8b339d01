package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/api"
	"github.com/Freeeeeet/tutor_scheduler/internal/app"
	"github.com/Freeeeeet/tutor_scheduler/internal/config"
	"github.com/Freeeeeet/tutor_scheduler/internal/lock"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/postgres"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/remote"
	"github.com/Freeeeeet/tutor_scheduler/internal/scheduling"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	bookings     repository.BookingStore
	availability repository.AvailabilityStore
	reviews      repository.ReviewStore
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting tutor scheduler",
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.Store),
		zap.String("tutor_timezone", cfg.TutorTimezone.String()),
		zap.Bool("reseed_each_request", cfg.ReseedEachRequest))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.close()

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer closeLocker()

	notifier := newNotifier(cfg, logger)

	bookingService := service.NewBookingService(
		st.bookings,
		st.availability,
		scheduling.NewAllocator(cfg.TutorTimezone, cfg.MaxSessionDuration),
		scheduling.NewLifecycle(cfg.CancellationGrace),
		scheduling.NewConflictIndex(),
		locker,
		notifier,
		logger,
		service.WithReseedEachRequest(cfg.ReseedEachRequest),
	)
	availabilityService := service.NewAvailabilityService(st.availability, locker, cfg.AvailabilityCacheTTL, logger)
	reviewService := service.NewReviewService(st.reviews, st.bookings, logger)

	scheduler := app.NewScheduler(bookingService, cfg.IndexPruneInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	handler := api.NewHandler(bookingService, availabilityService, reviewService, cfg.TutorTimezone, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		Production:     cfg.IsProduction(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	logger.Info("Tutor scheduler stopped")
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("create pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		logger.Info("Connected to database")

		if cfg.RunMigrations {
			if err := migrate(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}

		return &stores{
			bookings:     postgres.NewBookingRepository(pool),
			availability: postgres.NewAvailabilityRepository(pool),
			reviews:      postgres.NewReviewRepository(pool),
			close:        pool.Close,
		}, nil

	case config.StoreRemote:
		client := remote.NewClient(remote.ClientConfig{
			BaseURL: cfg.BackendURL,
			Token:   cfg.BackendToken,
			Timeout: cfg.BackendTimeout,
			Retries: cfg.BackendRetries,
		}, logger)
		logger.Info("Using marketplace backend store", zap.String("url", cfg.BackendURL))

		return &stores{
			bookings:     remote.NewBookingRepository(client),
			availability: remote.NewAvailabilityRepository(client),
			reviews:      remote.NewReviewRepository(client),
			close:        func() {},
		}, nil

	default:
		logger.Warn("Using in-memory store, data is lost on restart")
		return &stores{
			bookings:     memory.NewBookingStore(),
			availability: memory.NewAvailabilityStore(),
			reviews:      memory.NewReviewStore(),
			close:        func() {},
		}, nil
	}
}

func migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	migrator, err := app.NewMigrator(pool, postgres.Migrations, postgres.MigrationsDir, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	return migrator.Run(ctx)
}

// newLocker выбирает блокировку расписания: Redis, если несколько экземпляров, иначе мьютекс процесса
func newLocker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return lock.NewKeyedMutex(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("Using redis schedule lock",
		zap.String("addr", cfg.RedisAddr),
		zap.Duration("ttl", cfg.LockTTL))

	closeFn := func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	return lock.NewRedisLocker(rdb, "tutor-schedule", cfg.LockTTL, logger), closeFn, nil
}

func newNotifier(cfg *config.Config, logger *zap.Logger) notify.Notifier {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		return notify.NewLogNotifier(logger)
	}

	b, err := notify.NewTelegramBot(cfg.TelegramToken)
	if err != nil {
		logger.Warn("Telegram notifications disabled", zap.Error(err))
		return notify.NewLogNotifier(logger)
	}
	logger.Info("Telegram notifications enabled", zap.Int64("chat_id", cfg.TelegramChatID))
	return notify.NewTelegramNotifier(b, cfg.TelegramChatID, cfg.TutorTimezone, logger)
}

// Package main - точка входа фонового процесса (Worker) Lingo Progress Hub.
//
// Worker отвечает за периодические задачи:
// - Полный rebuild ранжирующего кеша из авторитетного хранилища
//
// Инкрементальные обновления кеша делает API на каждом completion;
// rebuild устраняет дрейф после потерянных обновлений или рестарта Redis.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lingo-hub/lingo-progress-hub/config"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/messaging"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/persistence/postgres"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/persistence/redis"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/scheduler"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/scheduler/jobs"
	"github.com/lingo-hub/lingo-progress-hub/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required for the worker")
	}
	if cfg.Redis.Disabled {
		return fmt.Errorf("worker requires Redis: the only job maintains the Redis ranking cache")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = logger.ParseFormat(cfg.Observability.LogFormat)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	log := logger.New(opts)

	log.Info("starting Lingo Progress Hub Worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.Duration("rebuild_interval", cfg.Scheduler.RebuildRankingInterval),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, postgres.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	// Worker тоже должен работать с актуальной схемой.
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ПОДКЛЮЧЕНИЕ К REDIS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to Redis...")
	redisCache, err := redis.NewCache(ctx, redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisCache.Close()
	log.Info("Redis connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log

	eventBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client:         redisCache.Client(),
		Logger:         log,
		LocalBusConfig: busConfig,
	})
	if err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. РЕГИСТРАЦИЯ ЗАДАЧ И ЗАПУСК ПЛАНИРОВЩИКА
	// ─────────────────────────────────────────────────────────────────────────
	rankingView := postgres.NewRankingView(dbConn)
	rankingCache := redis.NewRankingCache(redisCache)

	jobConfig := jobs.DefaultRebuildRankingConfig()
	jobConfig.Timeout = cfg.Scheduler.JobTimeout
	rebuildJob := jobs.NewRebuildRankingJob(rankingView, rankingCache, eventBus, log, jobConfig)

	sched := scheduler.New(scheduler.Config{Logger: log})
	if err := sched.Register(rebuildJob, scheduler.Every(cfg.Scheduler.RebuildRankingInterval)); err != nil {
		return fmt.Errorf("failed to register job: %w", err)
	}

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled by configuration, worker will idle")
	} else {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		// Тёплый кеш сразу после старта, не дожидаясь первого тика.
		if _, err := sched.RunNow(ctx, rebuildJob.Name()); err != nil {
			log.Warn("initial ranking rebuild failed", logger.Err(err))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Lingo Progress Hub Worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	if sched.IsRunning() {
		if err := sched.Stop(); err != nil {
			log.Warn("scheduler stop failed", logger.Err(err))
		}
	}

	log.Info("shutdown completed successfully")
	return nil
}

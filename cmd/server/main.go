// Package main - точка входа HTTP-сервера Lingo Progress Hub.
//
// Сервер обслуживает единственный путь записи (ApplyCompletion) и
// read-модели: лидерборд, позицию аккаунта, снапшот прогресса и
// каталог бейджей.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lingo-hub/lingo-progress-hub/config"
	"github.com/lingo-hub/lingo-progress-hub/internal/application/command"
	"github.com/lingo-hub/lingo-progress-hub/internal/application/query"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/account"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/badge"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/ranking"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/messaging"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/persistence/memory"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/persistence/postgres"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/persistence/redis"
	httpapi "github.com/lingo-hub/lingo-progress-hub/internal/interface/http"
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

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Lingo Progress Hub API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К ХРАНИЛИЩАМ
	// ─────────────────────────────────────────────────────────────────────────
	// Без DATABASE_URL (только в development) сервер работает целиком
	// на in-memory хранилищах.
	var (
		accounts     account.Repository
		awards       badge.AwardRepository
		view         ranking.View
		rankingCache ranking.Cache
		health       map[string]httpapi.Pinger
	)

	health = make(map[string]httpapi.Pinger)

	if cfg.Database.URL != "" {
		log.Info("connecting to database...")
		dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, postgres.PoolOptions{
			MaxConns:        int32(cfg.Database.MaxOpenConns),
			MinConns:        int32(cfg.Database.MaxIdleConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbConn.Close()
		health["postgres"] = dbConn

		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		accounts = postgres.NewAccountRepository(dbConn)
		pgAwards := postgres.NewAwardRepository(dbConn)
		awards = pgAwards
		view = postgres.NewRankingView(dbConn)

		// Каталог бейджей хранится в коде; таблица badge_catalog ведётся
		// для отчётности и join-ов.
		if err := pgAwards.SyncCatalog(ctx, badge.DefaultCatalog()); err != nil {
			log.Warn("failed to sync badge catalog", logger.Err(err))
		}
	} else {
		if cfg.IsProduction() {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
		log.Warn("DATABASE_URL not set, using in-memory stores")

		memAccounts := memory.NewAccountRepository()
		accounts = memAccounts
		awards = memory.NewAwardRepository()
		view = memory.NewRankingView(memAccounts)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCache, err = redis.NewCache(ctx, redis.Options{
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
			log.Warn("failed to connect to Redis, ranking served from store", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			health["redis"] = redisCache

			rc := redis.NewRankingCache(redisCache)
			rankingCache = rc
			// Чтения идут из сортированного множества; холодный или
			// упавший кеш прозрачно уходит в авторитетное представление,
			// фоновый rebuild в worker-е лечит рассинхронизацию.
			view = ranking.NewFallbackView(rc, view)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	var publisher shared.EventPublisher

	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log

	if redisCache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redisCache.Client(),
			Logger:         log,
			LocalBusConfig: busConfig,
		})
		if err != nil {
			return fmt.Errorf("failed to start redis event bus: %w", err)
		}
		defer func() { _ = redisBus.Close() }()
		publisher = redisBus
	} else {
		localBus := messaging.NewInMemoryEventBus(busConfig)
		defer func() { _ = localBus.Close() }()
		publisher = localBus
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. СБОРКА ОБРАБОТЧИКОВ (CQRS)
	// ─────────────────────────────────────────────────────────────────────────
	evaluator, err := badge.NewEvaluator(badge.DefaultCatalog())
	if err != nil {
		return fmt.Errorf("invalid badge catalog: %w", err)
	}

	deps := httpapi.Dependencies{
		ApplyCompletionHandler: command.NewApplyCompletionHandler(accounts, awards, evaluator, publisher, rankingCache, log),
		CreateAccountHandler:   command.NewCreateAccountHandler(accounts, log),
		GetLeaderboardHandler:  query.NewGetLeaderboardHandler(view),
		GetAccountRankHandler:  query.NewGetAccountRankHandler(view),
		GetSnapshotHandler:     query.NewGetSnapshotHandler(accounts),
		ListBadgesHandler:      query.NewListBadgesHandler(evaluator, awards),
		Logger:                 log,
	}
	if len(health) > 0 {
		deps.HealthChecker = httpapi.NewStoreHealthChecker(health)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ЗАПУСК HTTP-СЕРВЕРА
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.EnableCORS = cfg.HTTP.EnableCORS
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.EnableMetrics = cfg.HTTP.EnableMetrics
	serverCfg.RateLimitPerSecond = cfg.HTTP.RateLimitPerSecond
	serverCfg.RateLimitBurst = cfg.HTTP.RateLimitBurst
	serverCfg.APIKeyHashes = cfg.HTTP.APIKeyHashes

	server := httpapi.NewServer(serverCfg, deps)
	errCh := server.StartAsync()

	log.Info("Lingo Progress Hub API is running", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = logger.ParseFormat(cfg.Observability.LogFormat)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}

	return logger.New(opts)
}

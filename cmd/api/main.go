// Command api serves the road damage portal HTTP API.
//
// @title                       Road Damage Portal API
// @version                     1.0
// @description                 Authentication and damage report retrieval for the municipal road damage dashboard.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/roadwatch/damage-portal/internal/api"
	"github.com/roadwatch/damage-portal/internal/api/handler"
	"github.com/roadwatch/damage-portal/internal/core/ports"
	"github.com/roadwatch/damage-portal/internal/core/service"
	"github.com/roadwatch/damage-portal/internal/infrastructure/db/mongo"
	"github.com/roadwatch/damage-portal/internal/infrastructure/db/redis"
	"github.com/roadwatch/damage-portal/internal/infrastructure/db/sqlite"
	"github.com/roadwatch/damage-portal/internal/infrastructure/jobs"
	"github.com/roadwatch/damage-portal/internal/infrastructure/queue"
	"github.com/roadwatch/damage-portal/internal/pkg/config"
	"github.com/roadwatch/damage-portal/internal/pkg/password"
	"github.com/roadwatch/damage-portal/internal/pkg/token"
	"github.com/roadwatch/damage-portal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// stores bundles the repositories of the selected backing.
type stores struct {
	users   ports.UserRepository
	damages ports.DamageRepository
	pinger  handler.Pinger
	close   func(ctx context.Context) error
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "road-damage-api",
	})

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}

	readiness := map[string]handler.Pinger{cfg.StoreDriver: st.pinger}

	// Redis is optional: without it logout is an acknowledgement only and
	// dashboard stats are computed on every request.
	var (
		rdb         *goredis.Client
		revocations ports.RevocationStore
		statsCache  ports.StatsCache
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		revocations = redis.NewTokenDenylist(rdb)
		statsCache = redis.NewStatsCache(rdb, cfg.Stats.CacheTTL)
		readiness["redis"] = redis.Pinger{Client: rdb}
	}

	hasher := password.New(cfg.BcryptCost)
	tokens, err := token.NewManager(cfg.JWTSecret, token.DefaultTTL, token.WithLeeway(cfg.TokenLeeway))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token manager")
	}

	if cfg.Seed.Enabled {
		seeder := service.NewSeeder(st.users, hasher, service.DefaultAccounts(cfg.Seed), log)
		report := seeder.Run(ctx)
		log.Info().
			Strs("created", report.Created).
			Strs("skipped", report.Skipped).
			Strs("failed", report.Failed).
			Msg("bootstrap accounts seeded")
	}

	authService := service.NewAuthService(st.users, hasher, tokens, revocations, log)
	damageService := service.NewDamageService(st.damages, log)
	statsService := service.NewStatsService(st.users, st.damages, statsCache, cfg.Stats.CacheTTL, log)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	dispatcher := queue.NewDispatcher(cfg.Ingest.Workers, damageService, log)
	dispatcher.Start(workerCtx)

	var scheduler *jobs.Scheduler
	if statsCache != nil {
		scheduler = jobs.NewScheduler(statsService, cfg.Stats.RefreshSpec, log)
		if err := scheduler.Start(); err != nil {
			log.Error().Err(err).Msg("scheduler start failed")
		}
	}

	e := api.NewRouter(api.Deps{
		Auth:        authService,
		Damages:     damageService,
		Stats:       statsService,
		Dispatcher:  dispatcher,
		Tokens:      tokens,
		Revocations: revocations,
		Readiness:   readiness,
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("driver", cfg.StoreDriver).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(log, e, scheduler, stopWorkers, st, rdb)
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.DSN, log)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:   sqlite.NewUserRepository(db),
			damages: sqlite.NewDamageRepository(db),
			pinger:  sqlite.Pinger{DB: db},
			close:   func(context.Context) error { return db.Close() },
		}, nil
	default:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &stores{
			users:   mongo.NewUserRepository(db),
			damages: mongo.NewDamageRepository(db),
			pinger:  mongo.Pinger{DB: db},
			close:   client.Disconnect,
		}, nil
	}
}

func waitForShutdown(
	log zerolog.Logger,
	e *echo.Echo,
	scheduler *jobs.Scheduler,
	stopWorkers context.CancelFunc,
	st *stores,
	rdb *goredis.Client,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		if err := e.Close(); err != nil {
			log.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	stopWorkers()

	if err := st.close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("store close error")
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("redis close error")
		}
	}

	log.Info().Msg("server exited cleanly")
}

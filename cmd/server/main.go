package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-stand-manager/internal/config"
	"github.com/iliyamo/parking-stand-manager/internal/database"
	"github.com/iliyamo/parking-stand-manager/internal/handler"
	"github.com/iliyamo/parking-stand-manager/internal/logging"
	"github.com/iliyamo/parking-stand-manager/internal/metrics"
	"github.com/iliyamo/parking-stand-manager/internal/middleware"
	"github.com/iliyamo/parking-stand-manager/internal/queue"
	"github.com/iliyamo/parking-stand-manager/internal/repository"
	"github.com/iliyamo/parking-stand-manager/internal/router"
	"github.com/iliyamo/parking-stand-manager/internal/service"
	"github.com/iliyamo/parking-stand-manager/internal/validation"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.IsDevelopment())
	log := logging.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store repository.Store
		db    *sql.DB
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		store = repository.NewMemoryStore()
		log.Warn().Msg("using in-memory store; data is lost on restart")
	default:
		var err error
		db, err = database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()
		store = repository.NewMySQLStore(db)
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn().Msg("redis unreachable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	var events service.Publisher = service.NopPublisher{}
	if cfg.EventsOn {
		events = service.NewAMQPPublisher(cfg.RabbitURL)
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.RabbitURL, cfg.AuditLogPath); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("audit consumer stopped")
			}
		}()
	}

	m := metrics.New()
	sessions := service.NewSessionService(store, events, m, cfg.Session)
	stands := service.NewStandService(store, m)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.EchoValidator{}
	e.Use(middleware.Recover(), middleware.RequestLogger())

	var health echo.HandlerFunc
	if db != nil {
		health = handler.Health(db)
	} else {
		health = handler.Health(nil)
	}
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, health, m.Handler())
	router.RegisterSessions(e, handler.NewSessionHandler(sessions), cfg.JWTSecret, limit)
	router.RegisterStands(e, handler.NewStandHandler(stands, sessions), cfg.JWTSecret, limit, cache)

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

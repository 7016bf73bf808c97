package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/fishing-club-booking/internal/config"
	"github.com/iliyamo/fishing-club-booking/internal/database"
	"github.com/iliyamo/fishing-club-booking/internal/handler"
	"github.com/iliyamo/fishing-club-booking/internal/logger"
	"github.com/iliyamo/fishing-club-booking/internal/middleware"
	"github.com/iliyamo/fishing-club-booking/internal/queue"
	"github.com/iliyamo/fishing-club-booking/internal/realtime"
	"github.com/iliyamo/fishing-club-booking/internal/repository"
	"github.com/iliyamo/fishing-club-booking/internal/router"
	"github.com/iliyamo/fishing-club-booking/internal/service"
)

func main() {
	// a missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := middleware.InitTracing("fishing-club-booking", config.TracingEndpoint())

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	sqlStore := repository.NewStore(db)
	store := service.NewSQLStorage(sqlStore)

	broker := config.LoadBrokerConfig()
	rdb := config.NewRedisClient(config.LoadRedisConfig())

	accounts := service.NewAccountService(store, cfg.BcryptCost)
	reservations := service.NewReservationService(store, cfg.BookingTZ, broker.Queue, cfg.PageSize)
	inventory := service.NewInventoryService(store)
	availability := service.NewAvailabilityService(store, cfg.BookingTZ)
	ratings := service.NewRatingService(store)
	notifications := service.NewNotificationService(store)
	weather := service.NewWeatherClient(config.LoadWeatherConfig())

	storageCfg := config.LoadStorageConfig()
	logos, err := service.NewLogoStorage(storageCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init logo storage")
	}

	hub := realtime.NewHub(cfg.CORSOrigins)
	push, err := service.NewFirebasePush(ctx, config.LoadPushConfig().ServiceAccountPath, store)
	if err != nil {
		log.Fatal().Err(err).Msg("init push")
	}
	sinks := []queue.Sink{hub}
	if push != nil {
		sinks = append(sinks, push)
	}

	publisher := queue.NewPublisher(broker.URL)
	defer publisher.Close()
	relay := service.NewOutboxRelay(store, publisher, broker.PollInterval, broker.BatchSize, broker.MaxAttempts)
	consumer := queue.NewConsumer(broker.URL, broker.Queue, sinks...)
	if rdb != nil {
		consumer.WithDeduper(queue.NewRedisDeduper(rdb, "events:seen", 24*time.Hour))
	}

	var workers sync.WaitGroup
	for _, run := range []func(context.Context){hub.Run, relay.Run, consumer.Run} {
		workers.Add(1)
		go func(run func(context.Context)) {
			defer workers.Done()
			run(ctx)
		}(run)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.RouteNotFound("/*", router.NotFound)

	e.Use(echomw.Recover())
	cors := echomw.DefaultCORSConfig
	if len(cfg.CORSOrigins) > 0 {
		cors.AllowOrigins = cfg.CORSOrigins
	}
	cors.AllowHeaders = []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.HeaderIdempotencyKey, middleware.HeaderRequestID}
	e.Use(echomw.CORSWithConfig(cors))
	e.Use(middleware.RequestID())
	e.Use(middleware.Tracing())
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	if !storageCfg.UseS3() {
		e.Static("/uploads", storageCfg.UploadDir)
	}

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, accounts, repository.NewTokenRepo(db)), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(inventory, availability, ratings, weather), config.LoadCacheConfig(), rdb)
	router.RegisterFisher(e, handler.NewFisherHandler(reservations, ratings), cfg.JWTSecret, router.FisherOptions{
		Redis:          rdb,
		BookingLimit:   config.LoadBookingRateLimitConfig(),
		IdempotencyTTL: config.IdempotencyTTL(),
	})
	router.RegisterClub(e,
		handler.NewClubHandler(inventory, ratings, logos),
		handler.NewClubReservationHandler(reservations),
		cfg.JWTSecret, logos.MaxBytes())
	router.RegisterNotifications(e, handler.NewNotificationHandler(notifications, hub), cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	logger.LogError(e.Shutdown(shutdownCtx), "http shutdown")
	workers.Wait()
	shutdownTracing(shutdownCtx)
	if rdb != nil {
		logger.LogError(rdb.Close(), "close redis")
	}
	logger.LogError(db.Close(), "close database")
}

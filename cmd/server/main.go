package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/parceltrack/courier-system/internal/api"
	"github.com/parceltrack/courier-system/internal/core/service"
	"github.com/parceltrack/courier-system/internal/infrastructure/config"
	mongodb "github.com/parceltrack/courier-system/internal/infrastructure/db/mongo"
	redisdb "github.com/parceltrack/courier-system/internal/infrastructure/db/redis"
	"github.com/parceltrack/courier-system/internal/realtime"
	"github.com/parceltrack/courier-system/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	users := mongodb.NewUserRepository(db)
	parcels := mongodb.NewParcelRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("user index creation failed")
	}
	if err := parcels.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("parcel index creation failed")
	}

	presence := redisdb.NewAgentPresence(rdb)

	// --- Services ---
	authService := service.NewAuthService(users, cfg.JWTSecret, cfg.TokenTTL)
	parcelService := service.NewParcelService(parcels, users, log)

	// --- Realtime tracking channel ---
	registry := realtime.NewRegistry(log)
	hub := realtime.NewHub(registry, cfg.Realtime.Workers, log)
	hub.Start(ctx)

	verifier := realtime.NewVerifier(cfg.JWTSecret, users)
	handlers := realtime.NewHandlers(parcels, presence, registry, hub, log)
	gateway := realtime.NewGateway(verifier, registry, handlers, presence, realtime.Config{
		ReadTimeout: cfg.Realtime.ReadTimeout,
		SendBuffer:  cfg.Realtime.SendBuffer,
	}, log)

	// --- HTTP ---
	e := api.NewRouter(cfg, api.Deps{
		Auth:     authService,
		Parcels:  parcelService,
		Presence: presence,
		Gateway:  gateway,
		Mongo:    db,
		Redis:    rdb,
	}, log)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	gateway.Shutdown("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("server stopped")
}

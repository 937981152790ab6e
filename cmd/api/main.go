package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gearrent/internal/config"
	"gearrent/internal/database"
	"gearrent/internal/events"
	"gearrent/internal/idempotency"
	"gearrent/internal/logger"
	"gearrent/internal/modules/realtime"
	"gearrent/internal/pkg/jwt"
	"gearrent/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger.Initialize(cfg.LogLevel, cfg.LogFormat)
	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	var idem idempotency.Store = idempotency.NewMemoryStore(cfg.IdempotencyTTL)
	if cfg.RedisAddr != "" {
		rdb := idempotency.NewRedisClient(cfg.RedisAddr)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, idempotency requests will degrade", "addr", cfg.RedisAddr, "error", err)
		}
		idem = idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
	}

	var publishers []events.Publisher
	var kafkaPub *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, 1024)
		kafkaPub.Start(ctx)
		publishers = append(publishers, kafkaPub)
		logger.Info("kafka publisher enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	hub := realtime.NewHub()
	router := server.NewRouter(server.Deps{
		DB:                db,
		JWT:               jwt.New(cfg.JWTSecret, cfg.JWTTTL),
		Hub:               hub,
		Publishers:        publishers,
		Idempotency:       idem,
		StrictTransitions: cfg.StrictTransitions,
		RentalNamePrefix:  cfg.RentalNamePrefix,
		CORSOrigins:       cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	hub.Close()

	if kafkaPub != nil {
		kafkaPub.Close()
		cancel()
		kafkaPub.WaitClosed()
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

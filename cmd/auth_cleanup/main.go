package main

import (
	"context"
	"os"
	"time"

	"gearrent/internal/config"
	"gearrent/internal/database"
	"gearrent/internal/logger"
	"gearrent/internal/repository"

	"github.com/joho/godotenv"
)

// auth_cleanup clears login lockouts that have already expired. Intended for cron.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger.Initialize(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := repository.NewUserRepository(db).ClearExpiredLocks(ctx, time.Now())
	if err != nil {
		logger.Error("clear expired locks failed", "error", err)
		os.Exit(1)
	}
	logger.Info("auth cleanup completed", "unlocked_users", n)
}

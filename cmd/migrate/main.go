package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
	"github.com/hackgods/clinic-appointment-booking/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	version, err := db.Migrate(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	log.Info("migrations applied", zap.Uint("version", version))
}

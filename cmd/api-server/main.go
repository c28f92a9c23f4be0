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

	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/api"
	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/catalog"
	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
	"github.com/hackgods/clinic-appointment-booking/internal/idgen"
	"github.com/hackgods/clinic-appointment-booking/internal/logger"
	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
	"github.com/hackgods/clinic-appointment-booking/internal/notify"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load error: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("cancellation_policy", string(cfg.CancellationPolicy)),
		zap.Bool("verify_identity", cfg.VerifyIdentity),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresPool)
	cancelPg()
	if err != nil {
		return fmt.Errorf("postgres connection error: %w", err)
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	if cfg.AutoMigrate {
		v, err := db.Migrate(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("schema migrated", zap.Uint("version", v))
	}

	// Connect Redis. The slot lock is an extra guard, so a missing Redis only
	// degrades the service.
	var locker redisclient.Locker
	var redisPing api.Pinger
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable, booking without slot locks", zap.Error(err))
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("error closing redis", zap.Error(err))
			}
		}()
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		redisPing = api.RedisPinger(rdb)
		log.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
	}

	collector := metrics.NewCollector(nil)

	var notifier notify.Notifier = notify.Nop{Log: log}
	var dispatcher *notify.Dispatcher
	if cfg.WebhookURL != "" {
		sender := notify.NewWebhookSender(cfg.WebhookURL, notify.WebhookOptions{Timeout: cfg.NotifyTimeout}, log)
		dispatcher = notify.NewDispatcher(sender, notify.DispatcherOptions{
			Workers:   cfg.NotifyWorkers,
			QueueSize: cfg.NotifyQueueSize,
			Timeout:   cfg.NotifyTimeout,
		}, log, collector)
		notifier = dispatcher
		log.Info("webhook notifications enabled", zap.Int("workers", cfg.NotifyWorkers))
	}

	catalogRepo := catalog.NewPgRepository(pgPool)
	svc := appointment.NewService(appointment.Deps{
		Repo:     appointment.NewPgRepository(pgPool),
		Catalog:  catalogRepo,
		IDs:      idgen.NewRandGenerator(0),
		Locker:   locker,
		Notifier: notifier,
		Log:      log,
		Metrics:  collector,
	}, appointment.Options{
		CancellationPolicy: cfg.CancellationPolicy,
		VerifyIdentity:     cfg.VerifyIdentity,
	})

	router := api.NewRouter(api.RouterConfig{
		Service:            svc,
		Catalog:            catalogRepo,
		Postgres:           pgPool,
		Redis:              redisPing,
		Log:                log,
		Metrics:            collector,
		Env:                cfg.Env,
		Version:            version,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-rootCtx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	// drain queued notifications after the last request has finished
	if dispatcher != nil {
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			log.Warn("notification queue not drained", zap.Error(err))
		}
	}

	log.Info("api-server stopped")
	return nil
}

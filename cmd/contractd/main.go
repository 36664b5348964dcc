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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gym-contracts-backend/config"
	"gym-contracts-backend/internal/api"
	"gym-contracts-backend/internal/calendar"
	"gym-contracts-backend/internal/db"
	"gym-contracts-backend/internal/lifecycle"
	"gym-contracts-backend/internal/lock"
	"gym-contracts-backend/internal/notification"
	"gym-contracts-backend/internal/store"
	"gym-contracts-backend/internal/sweeper"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath), zap.String("timezone", cfg.Calendar.Timezone))

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	clock := calendar.SystemClock{Location: cfg.Calendar.Location}

	var webpushOptions *webpush.Options
	var notifier notification.Dispatcher = notification.Discard{}
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions, logger.Named("notification"))
		pool.Start(ctx)
		notifier = pool
	} else {
		logger.Warn("VAPID keys are not configured, push notifications are disabled")
	}

	service := lifecycle.NewService(appStore, clock, notifier, logger.Named("lifecycle"))

	// Shared with the router so sweeper commits drop stale GET responses.
	responses := api.NewResponseCache(cfg.Server.CacheTTL)
	service.OnSweepCommit(api.InvalidateContract(responses))

	if cfg.Sweeper.Enabled {
		var locker lock.Locker = lock.Nop{}
		if cfg.Redis.Enabled {
			redisClient, err := db.NewRedisClient(&cfg.Redis)
			if err != nil {
				logger.Fatal("failed to connect to redis", zap.Error(err))
			}
			defer redisClient.Close()
			locker = lock.NewRedis(redisClient, "gym-contracts:lock:")
		}
		sweeperSvc := sweeper.NewService(appStore, service, locker, cfg.Sweeper.Interval, cfg.Sweeper.LockTTL, logger.Named("sweeper"))
		go sweeperSvc.Run(ctx)
	} else {
		logger.Info("sweeper is disabled")
	}

	// Initialize router
	router := api.NewRouter(service, appStore, webpushOptions, api.RouterConfig{
		RateLimit: cfg.Server.RateLimitPerSec,
		Burst:     cfg.Server.RateLimitBurst,
		CacheTTL:  cfg.Server.CacheTTL,
		Responses: responses,
	}, logger.Named("http"))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}

// newLogger builds the production (or development) zap logger at the configured level.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

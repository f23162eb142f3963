package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chatgrpc "intern-portal/backend/internal/grpc"
	"intern-portal/backend/internal/models"
	"intern-portal/backend/pkg/config"
	"intern-portal/backend/pkg/di"
	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/observability"
	"intern-portal/backend/pkg/redis"
	"intern-portal/backend/pkg/router"
	"intern-portal/backend/pkg/secrets"
)

func main() {
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"), "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.LogError(err, "Server exited with error")
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.Vault.Addr != "" {
		vm, err := secrets.NewVaultManager(ctx, secrets.VaultConfig{
			Address:     cfg.Vault.Addr,
			Token:       cfg.Vault.Token,
			SecretsPath: cfg.Vault.Path,
			Timeout:     10 * time.Second,
			MaxRetries:  3,
			CacheTTL:    5 * time.Minute,
		}, log)
		if err != nil {
			return err
		}
		if err := secrets.ResolveConfig(ctx, vm, cfg, log); err != nil {
			return err
		}
		config.Set(cfg)
	}

	if cfg.IsProduction() && os.Getenv("JWT_SECRET") == "" && cfg.Vault.Addr == "" {
		log.Warn("JWT_SECRET is not set, tokens are signed with the default secret")
	}

	db, err := config.NewDB(ctx, cfg)
	if err != nil {
		return err
	}
	if err := models.Migrate(db); err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.LogError(err, "Redis unavailable, continuing without cache and cross-instance fan-out")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	var telemetry *observability.Telemetry
	if cfg.Telemetry.EnableMetrics || cfg.Telemetry.TraceStdout {
		telemetry, err = observability.Setup(observability.Config{
			ServiceName: cfg.Telemetry.ServiceName,
			TraceStdout: cfg.Telemetry.TraceStdout,
		}, log)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetry.Shutdown(shutdownCtx); err != nil {
				log.LogError(err, "Telemetry shutdown failed")
			}
		}()
	}

	container, err := di.New(ctx, cfg, di.Deps{
		DB:        db,
		Redis:     rdb,
		Telemetry: telemetry,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	defer container.Close()
	container.Start(ctx)

	r := router.New(ctx, container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	var grpcServer *chatgrpc.Server
	if cfg.GRPC.Enabled {
		grpcServer = chatgrpc.New(container.Health, log)
		if err := grpcServer.Start(":" + cfg.GRPC.Port); err != nil {
			return err
		}
		go grpcServer.Run(ctx, 10*time.Second)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
		return err
	}
	return nil
}

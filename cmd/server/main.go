// Package main provides the API server entry point for the soltrees service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soltrees/api/internal/ambience"
	"github.com/soltrees/api/internal/api"
	"github.com/soltrees/api/internal/avatar"
	"github.com/soltrees/api/internal/config"
	"github.com/soltrees/api/internal/logging"
	"github.com/soltrees/api/internal/payment"
	"github.com/soltrees/api/internal/service"
	"github.com/soltrees/api/internal/solana"
	"github.com/soltrees/api/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Initialize repositories
	userRepo := storage.NewUserRepository(postgres)
	treeRepo := storage.NewTreeRepository(postgres)
	categoryRepo := storage.NewCategoryRepository(postgres)
	treeCache := storage.NewTreeCache(redis, cfg.Cache.TTL, logger)

	clickEvents := storage.NewClickEventStore(clickhouse)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := clickEvents.EnsureSchema(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to apply ClickHouse schema")
		}
		cancel()
	}

	// Initialize ledger verification
	rpcClient := solana.NewHTTPClient(cfg.Solana.RPCEndpoint,
		solana.WithTimeout(cfg.Solana.RequestTimeout),
	)
	verifier, err := payment.NewSolanaVerifier(rpcClient, &payment.Config{
		TreasuryAddress: cfg.Solana.TreasuryAddress,
		LookbackWindow:  cfg.Solana.LookbackWindow,
		SignatureLimit:  cfg.Solana.SignatureLimit,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create payment verifier")
	}
	logger.WithFields(map[string]interface{}{
		"endpoint": cfg.Solana.RPCEndpoint,
		"lookback": cfg.Solana.LookbackWindow.String(),
	}).Info("Payment verifier initialized")

	avatars := avatar.NewHTTPResolver(&avatar.Config{
		BaseURL:      cfg.Avatar.BaseURL,
		DefaultImage: cfg.Avatar.DefaultImage,
		Timeout:      cfg.Avatar.Timeout,
	}, logger)

	// Initialize services
	placementService := service.NewPlacementService(treeRepo, userRepo, categoryRepo, verifier, avatars, treeCache, logger)
	treeService := service.NewTreeService(treeRepo, userRepo, treeCache, clickEvents, logger)
	userService := service.NewUserService(userRepo, logger)
	categoryService := service.NewCategoryService(categoryRepo, logger)

	logger.Info("Services initialized")

	// Start the ambient simulation
	ambienceCtx, stopAmbience := context.WithCancel(context.Background())
	defer stopAmbience()

	hub := ambience.NewHub(&cfg.Ambience, logger)
	go hub.Run(ambienceCtx)

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:  cfg.RateLimit.Burst,
	}

	server := api.NewServer(serverConfig, placementService, treeService, userService, categoryService, hub, logger)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopAmbience()

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/api"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/cache"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/config"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/database"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/engine"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/fx"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/kafka"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/logger"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/retry"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/service"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting fincast")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(cfg.Database.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Report cache: Redis when reachable, in-process otherwise
	var reportCache cache.Cache = cache.NewMemory()
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-memory report cache")
		} else {
			defer redisCache.Close()
			reportCache = redisCache
		}
	}

	// Exchange rates
	rates := fx.NewClient(cfg.FX.BaseURL, cfg.FX.Timeout, log,
		retry.WithMaxAttempts(cfg.FX.MaxAttempts),
		retry.WithBaseDelay(cfg.FX.BaseDelay),
	)

	// Engine
	engineOpts := []engine.Option{
		engine.WithLogger(log),
		engine.WithRequireFullTTM(cfg.Engine.RequireFullTTM),
		engine.WithMaxHistoryPeriods(cfg.Engine.MaxHistoryPeriods),
	}
	if cfg.Engine.HeuristicsFile != "" {
		heuristics, err := engine.LoadHeuristics(cfg.Engine.HeuristicsFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Engine.HeuristicsFile).Msg("Failed to load currency heuristics")
		}
		engineOpts = append(engineOpts, engine.WithHeuristics(heuristics))
	}
	eng := engine.New(rates, engineOpts...)

	serviceOpts := []service.Option{
		service.WithCache(reportCache, cfg.Redis.TTL),
		service.WithLogger(log),
	}

	// Kafka
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.FinancialsTopic)
		defer producer.Close()
		serviceOpts = append(serviceOpts, service.WithPublisher(producer))

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.IngestTopic, cfg.Kafka.GroupID, db, reportCache, log)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Kafka consumer stopped")
			}
		}()
	}

	financials := service.NewFinancialsService(db, eng, serviceOpts...)

	// Initialize HTTP server
	handler := api.NewHandler(financials, db, log)
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      api.SetupRoutes(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

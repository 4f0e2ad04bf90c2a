package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/clients/yahoo"
	"github.com/hozumi/portfolio-sentry/internal/config"
	"github.com/hozumi/portfolio-sentry/internal/database"
	"github.com/hozumi/portfolio-sentry/internal/modules/analysis"
	"github.com/hozumi/portfolio-sentry/internal/modules/marketdata"
	"github.com/hozumi/portfolio-sentry/internal/modules/portfolio"
	"github.com/hozumi/portfolio-sentry/internal/scheduler"
	"github.com/hozumi/portfolio-sentry/internal/server"
	"github.com/hozumi/portfolio-sentry/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Portfolio Sentry")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Market data: Yahoo upstream, SQLite caches in front of it
	yahooClient := yahoo.NewClient(cfg.YahooBaseURL, log)
	store := marketdata.NewStore(db.Conn(), log)
	history := marketdata.NewHistoryDB(cfg.HistoryDir, log)
	provider := marketdata.NewProvider(yahooClient, store, history, log)

	// Portfolio ledger and snapshot builder
	positions := portfolio.NewPositionRepository(db.Conn(), log)
	snapshots := portfolio.NewService(positions, provider, provider, log)
	portfolioHandler := portfolio.NewHandler(positions, snapshots, log)

	// Analytics
	analysisService := analysis.New(analysis.Config{
		Snapshots:   snapshots,
		Market:      provider,
		HistoryDays: cfg.HistoryDays,
		Log:         log,
	})

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	if err := registerJobs(sched, log, positions, yahooClient, store, history, cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		Log:       log,
		Config:    cfg,
		Portfolio: portfolioHandler,
		Analysis:  analysisService,
		DevMode:   cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(
	sched *scheduler.Scheduler,
	log zerolog.Logger,
	positions *portfolio.PositionRepository,
	upstream marketdata.Upstream,
	store *marketdata.Store,
	history *marketdata.HistoryDB,
	cfg *config.Config,
) error {
	priceSync := scheduler.NewPriceSyncJob(scheduler.PriceSyncConfig{
		Log:         log,
		Ledger:      positions,
		Upstream:    upstream,
		Store:       store,
		History:     history,
		HistoryDays: cfg.HistoryDays,
	})

	// Once per day after the US close, JST
	return sched.AddJob("0 0 7 * * *", priceSync)
}

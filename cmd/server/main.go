package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Simplici0/woodshop/internal/config"
	"github.com/Simplici0/woodshop/internal/db"
	"github.com/Simplici0/woodshop/internal/migrations"
	"github.com/Simplici0/woodshop/internal/obs"
	"github.com/Simplici0/woodshop/internal/pricesheet"
	"github.com/Simplici0/woodshop/internal/seed"
	"github.com/Simplici0/woodshop/internal/settings"
)

type server struct {
	db        *sql.DB
	settings  *settings.Store
	sheet     *pricesheet.Service
	logger    zerolog.Logger
	metrics   *obs.Metrics
	maxMargin float64
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}
	if cfg.SeedOnStart {
		stats, err := seed.Run(database)
		if err != nil {
			logger.Fatal().Err(err).Msg("seed database")
		}
		logger.Info().Int("inserts", stats.Inserts).Int("updates", stats.Updates).Msg("seed complete")
	}

	var (
		metrics  *obs.Metrics
		registry *prometheus.Registry
	)
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = obs.NewMetrics(cfg.MetricsNamespace, registry)
	}

	rates := settings.NewStore(database)
	srv := &server{
		db:       database,
		settings: rates,
		sheet: pricesheet.NewService(pricesheet.NewStore(database), rates,
			pricesheet.WithLogger(logger),
			pricesheet.WithMetrics(metrics),
			pricesheet.WithMaxMargin(cfg.MaxMarginPercent),
		),
		logger:    logger,
		metrics:   metrics,
		maxMargin: cfg.MaxMarginPercent,
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.routes(cfg.CORSAllowedOrigins, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("addr", httpServer.Addr).Str("env", cfg.AppEnv).Msg("server starting")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

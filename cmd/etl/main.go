package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/mpls-liquor-etl/internal/adapter/arcgis"
	httpadapter "github.com/couchcryptid/mpls-liquor-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/mpls-liquor-etl/internal/adapter/kafka"
	"github.com/couchcryptid/mpls-liquor-etl/internal/adapter/shapefile"
	"github.com/couchcryptid/mpls-liquor-etl/internal/config"
	"github.com/couchcryptid/mpls-liquor-etl/internal/observability"
	"github.com/couchcryptid/mpls-liquor-etl/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		os.Exit(1)
	}
}

// run executes the pipeline once, writes the plots and, when the dashboard is
// enabled, serves it until SIGINT or SIGTERM. Errors are logged before return.
func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	feed := arcgis.NewClient(cfg.FeedURL, cfg.FeedTimeout, metrics, logger)
	wards := shapefile.NewReader(cfg.WardShapefile, logger)

	var loader pipeline.DatasetLoader
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, metrics, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loader = writer
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka sink disabled")
	}

	p := pipeline.New(feed, wards, loader, logger, metrics)

	var results httpadapter.ResultSource
	if cfg.ServeDashboard {
		results = p
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, results, httpadapter.DashboardOptions{
		Endorsement: cfg.Endorsement,
		Format:      cfg.PlotFormat,
		CacheSize:   cfg.PlotCacheSize,
	}, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	defer func() {
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}()

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}
	if err := writePlots(res, cfg.OutputDir, cfg.PlotFormat, cfg.Endorsement, metrics, logger); err != nil {
		logger.Error("write plots failed", "error", err)
		return err
	}

	if cfg.ServeDashboard {
		logger.Info("dashboard ready", "addr", cfg.HTTPAddr)
		<-ctx.Done()
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/hrdps-weather-service/internal/adapter/geomet"
	httpadapter "github.com/couchcryptid/hrdps-weather-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hrdps-weather-service/internal/adapter/kafka"
	"github.com/couchcryptid/hrdps-weather-service/internal/config"
	"github.com/couchcryptid/hrdps-weather-service/internal/domain"
	"github.com/couchcryptid/hrdps-weather-service/internal/observability"
	"github.com/couchcryptid/hrdps-weather-service/internal/probe"
	"github.com/couchcryptid/hrdps-weather-service/internal/resolver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	catalog := domain.DefaultCatalog()
	client := geomet.NewClient(cfg.GeoMetBaseURL, nil, logger, metrics)

	var source domain.ScalarSource
	if cfg.GeoMetEncoding == "wms" {
		source = geomet.NewWMSSource(client)
	} else {
		source = geomet.NewWCSSource(client)
	}
	logger.Info("geomet upstream configured",
		"base_url", cfg.GeoMetBaseURL,
		"encoding", cfg.GeoMetEncoding,
	)

	res := resolver.New(source, catalog, logger, metrics, cfg.FetchTimeout)

	// Assessment audit trail (feature-flagged via KAFKA_BROKERS / AUDIT_ENABLED).
	var publisher httpadapter.AssessmentPublisher
	var auditWriter *kafkaadapter.Writer
	if cfg.AuditEnabled {
		auditWriter = kafkaadapter.NewWriter(cfg, logger)
		publisher = auditWriter
		logger.Info("assessment audit trail enabled", "topic", cfg.AuditTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("assessment audit trail disabled")
	}

	var upstreamProbe *probe.Probe
	var ready httpadapter.ReadinessChecker
	if cfg.ProbeEnabled {
		upstreamProbe = probe.New(source, cfg.ProbeInterval, cfg.FetchTimeout, logger, metrics)
		ready = upstreamProbe
	} else {
		logger.Info("upstream probe disabled")
	}

	srv := httpadapter.NewServer(httpadapter.ServerConfig{
		Addr:           cfg.HTTPAddr,
		Resolver:       res,
		Catalog:        catalog,
		Publisher:      publisher,
		Ready:          ready,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
		Metrics:        metrics,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if upstreamProbe != nil {
		if err := upstreamProbe.Start(); err != nil {
			logger.Error("failed to start upstream probe", "error", err)
			os.Exit(1)
		}
		logger.Info("upstream probe started", "interval", cfg.ProbeInterval)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if upstreamProbe != nil {
		upstreamProbe.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if auditWriter != nil {
		if err := auditWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

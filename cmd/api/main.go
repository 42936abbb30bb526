package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/reytechinc/scprs-backend/api/routes"
	"github.com/reytechinc/scprs-backend/internal/knowledge"
	"github.com/reytechinc/scprs-backend/internal/portal"
	"github.com/reytechinc/scprs-backend/internal/pricestore"
	"github.com/reytechinc/scprs-backend/internal/pricing"
	"github.com/reytechinc/scprs-backend/internal/seeder"
	"github.com/reytechinc/scprs-backend/pkg/config"
	"github.com/reytechinc/scprs-backend/pkg/db"
	"github.com/reytechinc/scprs-backend/pkg/logger"
	"github.com/reytechinc/scprs-backend/pkg/metrics"
	"github.com/reytechinc/scprs-backend/pkg/pacer"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.Store, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open price store", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing price store", err)
		}
	}()

	registry := prometheus.NewRegistry()
	portalMetrics := metrics.NewPortalMetrics(registry)

	session, err := portal.NewSession(cfg.Portal, logg, portalMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create portal session", err)
		os.Exit(1)
	}

	store := pricestore.NewRepository(dbClient.DB())

	var ingestor knowledge.Ingestor = knowledge.Nop{}
	if cfg.Knowledge.Enabled() {
		client, err := knowledge.NewClient(cfg.Knowledge, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create knowledge client", err)
			os.Exit(1)
		}
		ingestor = client
	}

	searchPacer := pacer.New(cfg.Pacing.SearchInterval)
	detailPacer := pacer.New(cfg.Pacing.DetailInterval)

	pricingService, err := pricing.NewService(pricing.ServiceParams{
		Portal:      session,
		Store:       store,
		Ingestor:    ingestor,
		Logger:      logg,
		Metrics:     portalMetrics,
		SearchPacer: searchPacer,
		DetailPacer: detailPacer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	seederService, err := seeder.NewService(seeder.ServiceParams{
		Portal:            session,
		Store:             store,
		Ingestor:          ingestor,
		Logger:            logg,
		Metrics:           portalMetrics,
		SearchPacer:       searchPacer,
		DetailPacer:       detailPacer,
		CategoryPacer:     pacer.New(cfg.Pacing.CategoryInterval),
		MaxCategories:     cfg.Seeder.MaxCategories,
		MaxPOsPerCategory: cfg.Seeder.MaxPOsPerCategory,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seeder service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			Store:      dbClient,
			Prober:     session,
			Pricing:    pricingService,
			Seeder:     seederService,
			Prometheus: registry,
		}),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
		seederService.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

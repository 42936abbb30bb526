package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/reytechinc/scprs-backend/internal/knowledge"
	"github.com/reytechinc/scprs-backend/internal/portal"
	"github.com/reytechinc/scprs-backend/internal/pricestore"
	"github.com/reytechinc/scprs-backend/internal/seeder"
	"github.com/reytechinc/scprs-backend/pkg/config"
	"github.com/reytechinc/scprs-backend/pkg/db"
	"github.com/reytechinc/scprs-backend/pkg/logger"
	"github.com/reytechinc/scprs-backend/pkg/metrics"
	"github.com/reytechinc/scprs-backend/pkg/pacer"
)

// One-shot bulk seed: runs a full pull for the given priority tier and exits.
func main() {
	priority := flag.String("priority", seeder.PriorityP0, "category tier to seed (P0, P1, P2)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "seeder"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "seeder",
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

	portalMetrics := metrics.NewPortalMetrics(prometheus.NewRegistry())

	session, err := portal.NewSession(cfg.Portal, logg, portalMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create portal session", err)
		os.Exit(1)
	}

	var ingestor knowledge.Ingestor = knowledge.Nop{}
	if cfg.Knowledge.Enabled() {
		client, err := knowledge.NewClient(cfg.Knowledge, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create knowledge client", err)
			os.Exit(1)
		}
		ingestor = client
	}

	svc, err := seeder.NewService(seeder.ServiceParams{
		Portal:            session,
		Store:             pricestore.NewRepository(dbClient.DB()),
		Ingestor:          ingestor,
		Logger:            logg,
		Metrics:           portalMetrics,
		SearchPacer:       pacer.New(cfg.Pacing.SearchInterval),
		DetailPacer:       pacer.New(cfg.Pacing.DetailInterval),
		CategoryPacer:     pacer.New(cfg.Pacing.CategoryInterval),
		MaxCategories:     cfg.Seeder.MaxCategories,
		MaxPOsPerCategory: cfg.Seeder.MaxPOsPerCategory,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seeder service", err)
		os.Exit(1)
	}

	status, err := svc.Start(seeder.StartOptions{Priority: *priority})
	if err != nil {
		logg.Error(context.Background(), "failed to start seed run", err)
		os.Exit(1)
	}

	ctx := logg.WithFields(context.Background(), map[string]any{
		"run_id":   status.RunID,
		"priority": status.Priority,
	})
	logg.Info(ctx, "seed run started")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-interrupt:
			logg.Info(ctx, "interrupt received, stopping seed run")
			svc.Stop()
		case <-ticker.C:
		}

		status = svc.Status()
		if status.Running {
			continue
		}

		done := logg.WithFields(ctx, map[string]any{
			"categories": status.CategoriesDone,
			"records":    status.RecordsIngested,
			"errors":     len(status.Errors),
		})
		if len(status.Errors) > 0 {
			logg.Warn(done, "seed run finished with errors")
		} else {
			logg.Info(done, "seed run finished")
		}
		return
	}
}

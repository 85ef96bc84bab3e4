package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/partshelf/partshelf-backend/api/routes"
	"github.com/partshelf/partshelf-backend/internal/aliases"
	"github.com/partshelf/partshelf-backend/internal/allocation"
	"github.com/partshelf/partshelf-backend/internal/assemblies"
	"github.com/partshelf/partshelf-backend/internal/bom"
	"github.com/partshelf/partshelf-backend/internal/events"
	"github.com/partshelf/partshelf-backend/internal/orders"
	"github.com/partshelf/partshelf-backend/internal/parts"
	"github.com/partshelf/partshelf-backend/internal/projects"
	"github.com/partshelf/partshelf-backend/internal/stock"
	"github.com/partshelf/partshelf-backend/pkg/config"
	"github.com/partshelf/partshelf-backend/pkg/db"
	"github.com/partshelf/partshelf-backend/pkg/logger"
	"github.com/partshelf/partshelf-backend/pkg/metrics"
	"github.com/partshelf/partshelf-backend/pkg/migrate"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	allocationMetrics := metrics.NewAllocationMetrics(registry)

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	gdb := dbClient.DB()
	stockRepo := stock.NewRepository(gdb)
	partsRepo := parts.NewRepository(gdb)

	partsSvc, err := parts.NewService(partsRepo)
	exitOnError(logg, "parts service", err)

	aliasSvc, err := aliases.NewService(aliases.NewRepository(gdb), dbClient)
	exitOnError(logg, "alias service", err)

	allocationSvc, err := allocation.NewService(
		allocation.NewRepository(gdb), stockRepo, dbClient, bus, allocationMetrics, aliasSvc,
	)
	exitOnError(logg, "allocation service", err)

	bomSvc, err := bom.NewService(bom.NewRepository(gdb), partsRepo, stockRepo, dbClient, allocationSvc)
	exitOnError(logg, "bom service", err)

	assemblySvc, err := assemblies.NewService(assemblies.NewRepository(gdb), stockRepo, dbClient, allocationSvc)
	exitOnError(logg, "assemblies service", err)

	orderSvc, err := orders.NewService(orders.NewRepository(gdb), stockRepo, dbClient, bus)
	exitOnError(logg, "orders service", err)

	projectSvc, err := projects.NewService(projects.NewRepository(gdb), dbClient, allocationSvc)
	exitOnError(logg, "projects service", err)

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
		Handler: routes.NewRouter(cfg, logg, dbClient, registry, routes.Services{
			Parts:      partsSvc,
			Assemblies: assemblySvc,
			BOM:        bomSvc,
			Allocation: allocationSvc,
			Aliases:    aliasSvc,
			Orders:     orderSvc,
			Projects:   projectSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func exitOnError(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}

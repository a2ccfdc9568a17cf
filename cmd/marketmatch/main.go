package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/efreitasn/marketmatch/internal/config"
	"github.com/efreitasn/marketmatch/internal/engine"
	"github.com/efreitasn/marketmatch/internal/handler"
	"github.com/efreitasn/marketmatch/internal/service"
	"github.com/efreitasn/marketmatch/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Instantiate stores.
	partyStore := store.NewPartyStore()
	instrumentStore := store.NewInstrumentStore()
	orderStore := store.NewOrderStore()
	tradeStore := store.NewTradeStore()
	sessionStore := store.NewSessionStore()
	webhookStore := store.NewWebhookStore()

	// Metrics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := engine.NewMetrics(registry)

	// Webhook service first, the clearer dispatches through it.
	webhookSvc := service.NewWebhookService(webhookStore, partyStore, cfg.WebhookTimeout, logger)

	// Engine.
	books := engine.NewBookManager()
	clearer := engine.NewClearer(books, instrumentStore, orderStore, tradeStore, sessionStore, metrics, webhookSvc, logger)
	scheduler := engine.NewScheduler(cfg.ClearingInterval, clearer, instrumentStore, logger)

	partySvc := service.NewPartyService(partyStore)
	instrumentSvc := service.NewInstrumentService(instrumentStore, sessionStore, books, clearer, service.InstrumentDefaults{
		Algorithm:     cfg.MatchingAlgorithm,
		Rationing:     cfg.RationingAlgorithm,
		Inhomogeneity: cfg.RationingInhomogeneity,
		Seed:          cfg.RandomSeed,
	})
	orderSvc := service.NewOrderService(clearer, partyStore, instrumentStore, orderStore, webhookSvc)

	// Router.
	router := handler.NewRouter(partySvc, instrumentSvc, orderSvc, webhookSvc, registry, logger)

	// Start the clearing scheduler with cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler.Start(ctx)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, cancel context (stops the scheduler).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}

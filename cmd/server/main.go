package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/yourusername/sonova-go/api"
	"github.com/yourusername/sonova-go/api/handlers"
	"github.com/yourusername/sonova-go/internal/app"
	"github.com/yourusername/sonova-go/internal/domain"
	"github.com/yourusername/sonova-go/internal/infrastructure"
	"github.com/yourusername/sonova-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (defaults to ./configs/config.yaml)")

func main() {
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := run(config); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func run(config *domain.Config) error {
	baseLog, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	multiLog, err := logger.NewMultiLogger(baseLog, logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Logging.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize categorized loggers: %w", err)
	}
	defer multiLog.Close()

	log := multiLog.Base()

	log.Info("Starting Sonova server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("worker", config.Worker.BaseURL))

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infrastructure.NewMetrics(registry)

	// Extraction worker
	workerHTTP := infrastructure.NewHTTPClient(config.Worker.RequestTimeout, config.Worker.RequestTimeout)
	var worker domain.ExtractionWorker = infrastructure.NewWorkerClient(&config.Worker, workerHTTP, multiLog.Resolve())
	if !worker.Configured() {
		log.Warn("Extraction worker is not configured, resolution requests will fail")
	}

	// Resolution pipeline
	catalog := domain.DefaultQualityCatalog()
	poller := app.NewProgressPoller(worker, multiLog.Resolve())
	resolver := app.NewResolver(worker, poller, catalog, &config.Resolver, metrics, multiLog.Resolve())
	links := app.NewLinkBuilder(config.Server.PublicBaseURL)
	catalogBuilder := app.NewCatalogBuilder(resolver, catalog, links, &config.Resolver, multiLog.Resolve())

	// Media proxy
	origins := domain.NewAllowedOriginSet(config.Proxy.AllowedHosts)
	log.Info("Media proxy origins", zap.Strings("allowed_hosts", origins.Hosts()))
	proxy := app.NewMediaProxy(origins, nil, &config.Proxy, metrics, log, multiLog.Abuse())

	router := api.SetupRouter(api.Dependencies{
		Resolver:  resolver,
		Catalog:   catalogBuilder,
		Proxy:     proxy,
		Worker:    worker,
		Links:     links,
		Gatherer:  registry,
		RateLimit: config.RateLimit,
		Logger:    log,
		AccessLog: multiLog.Access(),
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"urbanisme-platform/internal/clients"
	"urbanisme-platform/internal/config"
	"urbanisme-platform/internal/handlers"
	"urbanisme-platform/internal/repository"
	"urbanisme-platform/internal/services"
	"urbanisme-platform/pkg/database"
	"urbanisme-platform/pkg/logging"
	"urbanisme-platform/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logLevel := logging.InfoLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("urbanisme-api", "1.0.0", logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting urbanisme platform API server", logging.Fields{
		"version":     "1.0.0",
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_host":     cfg.Database.Host,
		"db_name":     cfg.Database.Database,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("urbanisme_platform")

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize upstream clients
	gpuClient := clients.NewGPUClient(cfg.Geo.GPUBaseURL, cfg.Geo.QueryTimeout, logger)
	riskClient := clients.NewRiskClient(cfg.Geo.RiskBaseURL, cfg.Geo.QueryTimeout, logger)
	registryClient := clients.NewRegistryClient(cfg.Geo.RegistryBaseURL, cfg.Geo.QueryTimeout, logger)
	directoryClient := clients.NewDirectoryClient(cfg.Geo.DirectoryBaseURL, cfg.Geo.QueryTimeout, logger)
	geocodingClient := clients.NewGeocodingClient(cfg.Geo.GeocodingBaseURL, cfg.Geo.QueryTimeout, logger)
	extractorClient := clients.NewHTTPExtractor(
		cfg.Extraction.BaseURL,
		cfg.Extraction.APIKey,
		cfg.Extraction.Model,
		cfg.Extraction.Timeout,
		logger,
	)

	// Initialize repository
	ruleCacheRepo := repository.NewRuleCacheRepository(db, logger, metricsCollector)

	// Initialize services
	territoryNamer := services.NewTerritoryNamer(directoryClient, logger)
	geoService := services.NewGeoQueryService(gpuClient, riskClient, territoryNamer, logger, metricsCollector, cfg.Geo.QueryTimeout)
	documentResolver := services.NewDocumentResolver(gpuClient, registryClient, logger)
	ruleExtractor := services.NewRuleExtractor(extractorClient, cfg.Geo.DocumentTimeout, logger, metricsCollector)
	ruleSetService := services.NewRuleSetService(ruleCacheRepo, documentResolver, ruleExtractor, cfg.Cache.TTL, logger, metricsCollector)
	suggestionService := services.NewSuggestionService(logger)

	// Initialize handlers
	planningHandler := handlers.NewPlanningHandler(geoService, ruleSetService, suggestionService, geocodingClient, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()

	// Register routes
	planningHandler.RegisterRoutes(router)

	// API documentation
	router.HandleFunc("/api/docs/openapi.json", handlers.OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", handlers.SwaggerUI).Methods("GET")

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}

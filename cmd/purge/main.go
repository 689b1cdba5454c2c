package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"urbanisme-platform/internal/config"
	"urbanisme-platform/internal/repository"
	"urbanisme-platform/pkg/database"
	"urbanisme-platform/pkg/logging"
	"urbanisme-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	dryRun := flag.Bool("dry-run", false, "Report what would be purged without deleting")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logLevel := logging.InfoLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("urbanisme-purge", "1.0.0", logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[PURGE_START] Starting rule cache purge", logging.Fields{
		"version": "1.0.0",
		"dry_run": *dryRun,
		"ttl":     cfg.Cache.TTL.String(),
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("urbanisme_purge")

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
		logger.Fatal(ctx, "[PURGE_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository
	cacheRepo := repository.NewRuleCacheRepository(db, logger, metricsCollector)

	startTime := time.Now()

	if *dryRun {
		count, err := cacheRepo.CountExpired(ctx)
		if err != nil {
			logger.Fatal(ctx, "[PURGE_ERROR] Failed to count expired entries", logging.Fields{}, err)
		}
		fmt.Println(strings.Repeat("=", 80))
		fmt.Println("PURGE DRY RUN")
		fmt.Println(strings.Repeat("=", 80))
		fmt.Printf("Expired Entries:  %d\n", count)
		fmt.Printf("Duration:         %v\n", time.Since(startTime))
		return
	}

	removed, err := cacheRepo.PurgeExpired(ctx)
	if err != nil {
		logger.Fatal(ctx, "[PURGE_ERROR] Purge failed", logging.Fields{}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("PURGE COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Removed Entries:  %d\n", removed)
	fmt.Printf("Duration:         %v\n", time.Since(startTime))

	logger.Info(ctx, "[PURGE_COMPLETE] Rule cache purge completed", logging.Fields{
		"removed_entries":  removed,
		"duration_seconds": time.Since(startTime).Seconds(),
	})
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"iou-ledger/internal/bridge"
	"iou-ledger/internal/config"
	"iou-ledger/internal/database"
	"iou-ledger/internal/jobs"
	"iou-ledger/internal/logger"
	"iou-ledger/internal/scheduler"
	"iou-ledger/internal/service"
	"iou-ledger/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'reconcile-statuses', 'export-snapshot', 'all-nightly')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting IOU ledger cronjob runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	db, err := database.Open(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ledgerService := service.NewLedgerService(db.Ledger, service.LedgerOptions{
		MaxRetries:       cfg.Ledger.MaxRetries,
		OperationTimeout: cfg.OperationTimeout(),
	})
	archive, err := storage.NewLocalArchive(cfg.Storage.ExportDir)
	if err != nil {
		logger.Error("Failed to initialize export archive", "error", err)
		log.Fatalf("Failed to initialize export archive: %v", err)
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(ledgerService, archive, bridge.NewExporter(cfg.Ledger.Currency), cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "reconcile-statuses":
		jobRunner.ReconcileStatuses()
	case "export-snapshot":
		jobRunner.ExportSnapshot()
	case "all-nightly":
		jobRunner.RunAllNightlyJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - reconcile-statuses\n")
		fmt.Printf("  - export-snapshot\n")
		fmt.Printf("  - all-nightly\n")
		os.Exit(1)
	}
}

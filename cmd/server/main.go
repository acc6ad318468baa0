package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	api "iou-ledger/internal/api/grpc"
	"iou-ledger/internal/api/grpc/interceptor"
	httpapi "iou-ledger/internal/api/http"
	"iou-ledger/internal/bridge"
	"iou-ledger/internal/config"
	"iou-ledger/internal/database"
	"iou-ledger/internal/jobs"
	"iou-ledger/internal/logger"
	"iou-ledger/internal/scheduler"
	"iou-ledger/internal/security"
	"iou-ledger/internal/service"
	"iou-ledger/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	withScheduler := flag.Bool("with-scheduler", false, "Run the cron jobs in this process instead of cmd/cronjob")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting IOU ledger server...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc_address", cfg.GetServerAddress(), "http_address", cfg.GetHTTPAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Initialize Services
	ledgerSvc := service.NewLedgerService(db.Ledger, service.LedgerOptions{
		MaxRetries:       cfg.Ledger.MaxRetries,
		OperationTimeout: cfg.OperationTimeout(),
	})
	exporter := bridge.NewExporter(cfg.Ledger.Currency)

	archive, err := storage.NewLocalArchive(cfg.Storage.ExportDir)
	if err != nil {
		logger.Error("Failed to initialize export archive", "error", err)
		log.Fatalf("Failed to initialize export archive: %v", err)
	}

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL())
	authInterceptor := interceptor.NewAuthInterceptor(tokenManager)

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(authInterceptor.Unary(), interceptor.LoggingUnary()),
	)
	api.RegisterLedgerServer(s, api.NewLedgerHandler(ledgerSvc))
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(s, healthSrv)
	healthSrv.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Set up HTTP server for the import/export bridge
	var httpSrv *http.Server
	if addr := cfg.GetHTTPAddress(); addr != "" {
		handler := httpapi.NewBridgeHandler(ledgerSvc, exporter, archive)
		httpSrv = &http.Server{
			Addr:              addr,
			Handler:           httpapi.NewRouter(handler, tokenManager),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "address", addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
			}
		}()
	}

	jobRunner := jobs.NewJobRunner(ledgerSvc, archive, exporter, cfg)
	if *withScheduler {
		cronScheduler := scheduler.NewScheduler(jobRunner)
		cronScheduler.Start()
		defer cronScheduler.Stop()
	}
	if cfg.Storage.InboxDir != "" {
		watcher, err := jobs.NewInboxWatcher(jobRunner, cfg.Storage.InboxDir)
		if err != nil {
			logger.Error("Failed to initialize import inbox", "error", err)
			log.Fatalf("Failed to initialize import inbox: %v", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("Import inbox stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down...")
		healthSrv.Shutdown()
		if httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			httpSrv.Shutdown(shutdownCtx)
		}
		s.GracefulStop()
	}()

	logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
	if err := s.Serve(lis); err != nil {
		logger.Error("Failed to serve gRPC", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
	logger.Info("Server stopped")
}

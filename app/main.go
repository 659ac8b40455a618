package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/propertyshodh2025/featuring-engine/app/api"
	"github.com/propertyshodh2025/featuring-engine/app/catalog"
	"github.com/propertyshodh2025/featuring-engine/app/cfg"
	"github.com/propertyshodh2025/featuring-engine/app/database"
	"github.com/propertyshodh2025/featuring-engine/app/featuring"
	"github.com/propertyshodh2025/featuring-engine/app/report"
	"github.com/propertyshodh2025/featuring-engine/app/tasks"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load configuration from environment variables and command-line flags
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	log.Printf("Starting Featuring Engine %s...", appCfg.Version)

	// Database connection
	log.Printf("Opening database at %s...", appCfg.DBPath)
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database: ", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}
	log.Printf("Database schema at version %d (dirty: %v)", version, dirty)

	if err := database.CheckSchema(db); err != nil {
		log.Fatal("Schema verification failed: ", err)
	}

	// Load the featuring package catalog
	packageCatalog, err := catalog.Load(appCfg.PackagesFile)
	if err != nil {
		log.Fatal("Failed to load package catalog: ", err)
	}
	log.Printf("Loaded %d featuring packages", packageCatalog.Count())

	// Initialize repositories and core components
	listingRepo := database.NewListingRepository(db)
	auditRepo := database.NewAuditLogRepository(db)
	engine := featuring.NewEngine(listingRepo, auditRepo, packageCatalog)
	reportService := report.NewService(listingRepo, auditRepo)

	// Initialize and start the reconciliation loop
	reconcileInterval := time.Duration(appCfg.ReconcileInterval) * time.Second
	log.Printf("Starting reconciler with %s interval...", reconcileInterval)
	reconciler := tasks.NewReconciler(engine, listingRepo, reconcileInterval)
	reconciler.Start()
	defer reconciler.Stop()

	// Initialize HTTP server
	apiHandler := api.NewHandler(engine, listingRepo, reportService, packageCatalog)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start HTTP server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on port %s", appCfg.Port)
		log.Printf("Endpoints available:")
		log.Printf("  Health check:  http://localhost:%s/health", appCfg.Port)
		log.Printf("  Statistics:    http://localhost:%s/stats", appCfg.Port)

		if appCfg.APIAccessKey != "" {
			log.Printf("  Listings:      http://localhost:%s/api/listings (POST, requires API key)", appCfg.Port)
			log.Printf("  Bulk:          http://localhost:%s/api/bulk (POST, requires API key)", appCfg.Port)
			log.Printf("  Audit log:     http://localhost:%s/api/audit (requires API key)", appCfg.Port)
			log.Printf("  CSV export:    http://localhost:%s/api/audit/export (requires API key)", appCfg.Port)
		} else {
			log.Printf("  API endpoints: DISABLED (API_ACCESS_KEY not set)")
		}

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Println("Featuring Engine started successfully!")

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-serverErrChan:
		log.Printf("Server error: %v", err)
	}

	// Graceful shutdown
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Println("HTTP server stopped")
	}

	// Reconciler is stopped via defer
	log.Println("Featuring Engine shutdown complete")
}

// main.go - The entry point and router setup.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bosocmputer/biometric_scan_gemini/configs"
	"github.com/bosocmputer/biometric_scan_gemini/internal/analysis"
	"github.com/bosocmputer/biometric_scan_gemini/internal/api"
	"github.com/bosocmputer/biometric_scan_gemini/internal/common"
	"github.com/bosocmputer/biometric_scan_gemini/internal/session"
	"github.com/bosocmputer/biometric_scan_gemini/internal/storage"
	"github.com/gin-gonic/gin"
)

func main() {
	// Step 0: Load configuration from environment variables
	cfg := configs.Load()
	common.ConfigureLogger(cfg.LogLevel, cfg.LogFormat)
	log := common.Logger

	// Step 0.5: Set production mode
	if ginMode := os.Getenv("GIN_MODE"); ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Step 1: Report archive. MongoDB when configured, memory otherwise.
	var reports storage.ReportStore
	if cfg.MongoURI != "" {
		mongoStore, err := storage.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDBName, cfg.ReportTTL)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mongoStore.Close(context.Background())
		reports = mongoStore
	} else {
		memStore := storage.NewMemoryReportStore(cfg.ReportTTL)
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					memStore.Sweep()
				}
			}
		}()
		reports = memStore
		log.Info("MONGO_URI not set, reports are kept in memory")
	}

	// Step 1.5: Portrait store is optional; a failure only disables it.
	var portraits storage.PortraitStore
	if cfg.MinioEndpoint != "" {
		minioStore, err := storage.NewMinioPortraitStore(ctx, cfg.MinioEndpoint, cfg.MinioRegion, cfg.MinioBucket,
			cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
		if err != nil {
			log.WithError(err).Warn("⚠️  MinIO unavailable, portraits will not be stored")
		} else {
			portraits = minioStore
			log.Infof("✅ Portraits stored in bucket %s", cfg.MinioBucket)
		}
	}

	// Step 2: Analysis pipeline
	svc, closeClients, err := analysis.FromConfig(ctx, cfg, reports, portraits)
	if err != nil {
		log.Fatalf("Failed to initialize analysis service: %v", err)
	}
	defer closeClients()

	sessions := session.NewRegistry(cfg.SessionTTL)
	go sessions.Run(ctx, time.Minute)

	// Step 3: Router and routes
	router := api.NewRouter(api.NewHandler(svc, reports, sessions, cfg.MaxUploadBytes), cfg.AllowedOrigins)

	// Step 4: Setup HTTP server with timeouts
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   3 * time.Minute, // a full candidate walk with backoff fits well inside
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Starting server on :%s", cfg.Port)
		log.Info("API Endpoints:")
		log.Info("  POST   /api/v1/analyze")
		log.Info("  GET    /api/v1/reports/:id")
		log.Info("  GET    /api/v1/sessions/:id")
		log.Info("  DELETE /api/v1/sessions/:id")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

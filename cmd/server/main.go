package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ds17f/deadarchive/internal/app"
	"github.com/ds17f/deadarchive/internal/archive"
	"github.com/ds17f/deadarchive/internal/config"
	"github.com/ds17f/deadarchive/internal/downloader"
	httpapp "github.com/ds17f/deadarchive/internal/http"
	"github.com/ds17f/deadarchive/internal/jobrunner"
	"github.com/ds17f/deadarchive/internal/logger"
	"github.com/ds17f/deadarchive/internal/queue"
	"github.com/ds17f/deadarchive/internal/storage"
	"github.com/ds17f/deadarchive/internal/store"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := storage.EnsureDir(cfg.DownloadsDir); err != nil {
		appLogger.Error("Failed to create downloads dir", "error", err)
		os.Exit(1)
	}

	settingsRepo := store.NewSettingsRepo(db)
	archiveClient := archive.NewClient(cfg.ArchiveURL, appLogger)

	// Job runner with the track download executor
	exec := downloader.New(db, cfg.ArchiveURL, cfg.DownloadsDir, appLogger)
	pool := jobrunner.NewPool(cfg.MaxConcurrent, exec, appLogger)
	defer pool.Stop()

	// Queue manager feeding the runner
	queueManager := queue.NewManager(db, pool, cfg.MaxConcurrent, cfg.PollInterval, appLogger)
	queueManager.Start()
	defer queueManager.Stop()

	// Services
	downloadService := app.NewDownloadService(db, settingsRepo, archiveClient, pool, queueManager, cfg.DownloadsDir, cfg.Format, appLogger)
	libraryService := app.NewLibraryService(db, downloadService, appLogger)

	// State watcher broadcasting recomputed aggregates
	watcher := app.NewStateWatcher(db, appLogger)
	watcher.Start()
	defer watcher.Stop()

	// Periodic cleanup of soft-deleted downloads
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				downloadService.CleanupDeleted()
			}
		}
	}()

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := httpapp.NewHandler(downloadService, libraryService, watcher, settingsRepo, db, appLogger)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"appraisal/server/config"
	"appraisal/server/internal/api"
	"appraisal/server/internal/database"
	"appraisal/server/internal/processor"
	"appraisal/server/internal/queue"
	"appraisal/server/internal/scheduler"
	"appraisal/server/internal/telegram"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel())

	logger.Infof("Using database at: %s", cfg.Database.Path)
	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.MigrateSchema(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	if cfg.Engine.PresetFile != "" {
		if err := seedPresets(db, cfg.Engine.PresetFile, logger); err != nil {
			logger.WithError(err).Fatal("Failed to seed rate presets")
		}
	}

	// Rate edits flow: rate table -> debouncer -> queue -> persister -> database
	presetQueue := queue.NewPresetQueue(cfg.RatePersistence.QueueSize, logger)
	persister := processor.NewRatePersister(db, presetQueue, cfg, logger)
	notifier := telegram.NewService(telegram.Config{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		APIURL:   cfg.Telegram.APIURL,
	}, logger)
	persister.OnFailure(notifier.NotifyRateSaveFailure)
	persister.Start()
	presetQueue.Start()

	debouncer := queue.NewDebouncer(cfg.DebounceWindow(), presetQueue, logger)
	debouncer.OnDropped(persister.Reject)

	handler := api.NewHandler(api.Options{
		Presets:             db,
		Sink:                debouncer,
		Statuses:            persister,
		CalculationSystem:   cfg.CalculationSystem(),
		DisplaySystem:       cfg.DisplaySystem(),
		DefaultOrganization: cfg.Engine.DefaultOrganization,
	}, logger)

	janitor := scheduler.NewScheduler(handler.Sessions(), cfg.SessionSweepInterval(), cfg.SessionIdleTimeout(), logger)
	janitor.Start()
	defer janitor.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	api.SetupRoutes(router, handler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	// Write pending rate edits before the store closes
	debouncer.Flush()
	if err := presetQueue.Close(); err != nil {
		logger.WithError(err).Error("Failed to close rate queue")
	}
	persister.Stop()
	logger.Info("Server stopped")
}

func seedPresets(db *database.Database, path string, logger *logrus.Logger) error {
	file, err := config.LoadPresetFile(path)
	if err != nil {
		return err
	}

	for _, org := range file.Organizations {
		added, err := db.SeedRatePresets(context.Background(), org.ID, org.Rates)
		if err != nil {
			return fmt.Errorf("failed to seed organization %q: %w", org.ID, err)
		}
		logger.WithFields(logrus.Fields{
			"organization_id": org.ID,
			"added":           added,
		}).Info("Seeded rate presets")
	}
	return nil
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asmaravianti/ecg-compression/internal/config"
	"github.com/asmaravianti/ecg-compression/internal/database"
	"github.com/asmaravianti/ecg-compression/internal/handlers"
	"github.com/asmaravianti/ecg-compression/internal/middleware"
	"github.com/asmaravianti/ecg-compression/internal/models"
	"github.com/asmaravianti/ecg-compression/internal/routes"
	"github.com/asmaravianti/ecg-compression/internal/seeds"
	"github.com/asmaravianti/ecg-compression/internal/services"
	"github.com/asmaravianti/ecg-compression/internal/storage"
	"github.com/asmaravianti/ecg-compression/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()

	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	logger.Init(env)

	logger.Info().Str("environment", env).Msg("Starting ECG competition backend...")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	database.Connect()
	database.InitRedis()

	if err := database.DB.AutoMigrate(
		&models.Team{},
		&models.Upload{},
		&models.Submission{},
	); err != nil {
		logger.Fatal().Err(err).Msg("Database migration failed")
	}

	if env == "development" {
		seeds.SeedDemoTeam()
	}

	store, err := storage.FromConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize artifact storage")
	}

	client := services.NewCodabenchClientFromConfig()
	tracker := services.NewTracker(
		client,
		time.Duration(config.AppConfig.PollIntervalSeconds)*time.Second,
		config.AppConfig.PollMaxAttempts,
	)
	handlers.Init(client, tracker, store)

	// Submissions still in flight when the last process stopped resume
	// polling here.
	var open []models.Submission
	if err := database.DB.
		Where("status IN ?", []models.SubmissionStatus{models.SubStatusPending, models.SubStatusProcessing}).
		Find(&open).Error; err == nil {
		for _, sub := range open {
			tracker.Track(sub.ID)
		}
		if len(open) > 0 {
			logger.Info().Int("count", len(open)).Msg("Resumed tracking of open submissions")
		}
	}

	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.GeneralRateLimit())

	api := r.Group("/api")
	{
		routes.RegisterAuthRoutes(api)
		routes.RegisterPortalRoutes(api)
	}

	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			dbStatus = "error"
		}

		redisStatus := "not configured"
		if database.Redis != nil {
			redisStatus = "ok"
			if _, err := database.Redis.Ping(context.Background()).Result(); err != nil {
				redisStatus = "error"
			}
		}

		status := "ok"
		if dbStatus != "ok" {
			status = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"status": status,
			"checks": gin.H{
				"database": dbStatus,
				"redis":    redisStatus,
			},
		})
	})

	port := config.AppConfig.Port
	if port == "" {
		port = "3000"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", port).Str("env", env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop poll loops after the listener is drained.
	tracker.Stop()

	logger.Info().Msg("Server exited gracefully")
}

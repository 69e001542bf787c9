package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ayash-Bera/archivist/internal/api/handlers"
	"github.com/Ayash-Bera/archivist/internal/config"
	"github.com/Ayash-Bera/archivist/internal/database"
	"github.com/Ayash-Bera/archivist/internal/health"
	"github.com/Ayash-Bera/archivist/internal/learning"
	"github.com/Ayash-Bera/archivist/internal/middleware"
	"github.com/Ayash-Bera/archivist/internal/migration"
	"github.com/Ayash-Bera/archivist/internal/repository"
	"github.com/Ayash-Bera/archivist/internal/scheduler"
	"github.com/Ayash-Bera/archivist/internal/services"
	"github.com/Ayash-Bera/archivist/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const preferenceRefreshJob = "preference-refresh"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.InitLogger(cfg.Log.Level)
	logger.Info("Starting archive assistant server...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    cfg.Log.Level,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer dbManager.Close()

	if err := migration.NewRunner(dbManager, logger).RunMigrations(ctx, os.DirFS(cfg.Migrations.Path)); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	repos := repository.NewRepositoryManager(dbManager.DB)
	cache := database.NewCache(dbManager.Redis, logger)

	store := learning.NewStore(learning.StoreConfig{
		Shards:          cfg.Engine.StoreShards,
		PatternCapacity: cfg.Engine.PatternLogCapacity,
		FailureCapacity: cfg.Engine.FailureLogCapacity,
	})
	model := learning.NewModel(store, time.Now, logger)

	chatService := services.NewChatService(services.ChatRepositories{
		Archives: repos.Archives,
		Chats:    repos.ChatHistory,
		Users:    repos.Users,
	}, model, cache, services.ChatConfig{
		TopN:                cfg.Engine.TopN,
		HistoryLimit:        cfg.Learning.HistoryLimit,
		ApplyKeywordWeights: cfg.Engine.ApplyKeywordWeights,
		HotQueriesTTL:       cfg.Cache.HotQueriesTTL,
		Categories:          cfg.Engine.Categories,
		Locations:           cfg.Engine.Locations,
	}, logger)

	reconciler, err := services.NewLearningReconciler(repos.ChatHistory, model, chatService, services.ReconcilerConfig{
		PoolSize: cfg.Learning.PoolSize,
		Window:   cfg.Learning.RebuildWindow,
		Limit:    cfg.Learning.RebuildLimit,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create learning reconciler")
	}
	defer reconciler.Release()

	if replayed, err := reconciler.Rebuild(ctx); err != nil {
		logger.WithError(err).Warn("Learning state rebuild failed, starting empty")
	} else {
		logger.WithField("records", replayed).Info("Learning state rebuilt")
	}

	jobs := scheduler.New(time.Local, logger)
	if err := jobs.Add(preferenceRefreshJob, cfg.Learning.PreferenceSchedule, reconciler.RefreshPreferences); err != nil {
		logger.WithError(err).Fatal("Failed to schedule preference refresh")
	}
	jobs.Start()
	defer jobs.Stop()

	healthChecker := health.NewHealthChecker(dbManager, repos.SystemHealth, logger)
	go healthChecker.PeriodicHealthCheck(ctx, cfg.Health.Interval)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit)
	go limiter.Cleanup(ctx, 5*time.Minute)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		gin.Recovery(),
		middleware.SecurityHeaders(),
		limiter.RateLimit(),
	)

	handlers.RegisterRoutes(
		router.Group("/api/v1"),
		handlers.NewChatHandler(chatService, logger),
		handlers.NewHealthHandler(healthChecker),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	logger.Info("Server stopped")
}

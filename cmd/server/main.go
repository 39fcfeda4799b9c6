package main

// @title           Opsboard API
// @version         1.0
// @description     Operations dashboard backend: CI feed/log relay plus projects, news and auth
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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

	"opsboard/internal/adapters/kafka"
	"opsboard/internal/adapters/storage"
	"opsboard/internal/api/handlers"
	"opsboard/internal/api/middleware"
	"opsboard/internal/api/routes"
	"opsboard/internal/auth"
	"opsboard/internal/config"
	"opsboard/internal/database"
	"opsboard/internal/jobs"
	"opsboard/internal/relay"
	"opsboard/internal/repositories/postgres"
	"opsboard/internal/services"
	"opsboard/internal/upstream"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("starting opsboard server")

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Repositories and services
	userRepo := postgres.NewUserRepository(db)
	projectRepo := postgres.NewProjectRepository(db)
	newsRepo := postgres.NewNewsRepository(db)
	authService := auth.NewService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	presenceService := services.NewPresenceService(redisClient)

	// CI host collaborators
	ciClient := upstream.NewClient(cfg.CI.BaseURL, cfg.CI.Token)

	// Optional analytics publisher
	var publisher relay.EventPublisher
	var kafkaPublisher *kafka.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.InitKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			slog.Error("failed to connect to kafka, build events will not be published", "error", err)
		} else {
			kafkaPublisher = kafka.NewEventPublisher(producer, cfg.Kafka.Topic)
			publisher = kafkaPublisher
			defer kafkaPublisher.Close()
		}
	}

	// Optional archived-log store
	var artifactStore *storage.ArtifactStore
	if cfg.Minio.Enabled {
		artifactStore, err = storage.NewArtifactStore(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket)
		if err != nil {
			slog.Error("failed to connect to artifact store, archived logs disabled", "error", err)
			artifactStore = nil
		}
	}

	// The relay: registry, multiplexers, hub
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	registry := relay.NewRegistry()
	feedMux := relay.NewFeedMultiplexer(ctx, registry, ciClient.OpenFeedStream, publisher)
	logMux := relay.NewLogMultiplexer(ciClient.OpenLogStream)
	hub := relay.NewHub(registry, feedMux, logMux, presenceService)
	go hub.Run()

	// Project sync job
	syncer := jobs.NewProjectSyncer(ciClient, projectRepo, cfg.Sync.Interval)
	go syncer.Run(ctx)

	// HTTP surface
	authMW := middleware.NewAuthMiddleware(authService)
	router := routes.NewRouter(
		handlers.NewWSHandler(hub),
		handlers.NewAuthHandler(authService),
		handlers.NewProjectHandler(projectRepo, presenceService),
		handlers.NewNewsHandler(newsRepo),
		handlers.NewArtifactHandler(artifactStore),
		authMW,
		middleware.WSAuth(authService),
	)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stop()
	hub.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped")
}

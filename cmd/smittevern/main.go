package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/birokt/smittevern/internal/config"
	"github.com/birokt/smittevern/internal/database"
	"github.com/birokt/smittevern/internal/disease"
	"github.com/birokt/smittevern/internal/events"
	"github.com/birokt/smittevern/internal/handlers"
	"github.com/birokt/smittevern/internal/jobs"
	"github.com/birokt/smittevern/internal/logger"
	"github.com/birokt/smittevern/internal/metrics"
	"github.com/birokt/smittevern/internal/middleware"
	"github.com/birokt/smittevern/internal/notify"
	"github.com/birokt/smittevern/internal/profiles"
	"github.com/birokt/smittevern/internal/services"
	slackutil "github.com/birokt/smittevern/internal/slack"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat, "smittevern")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck
	zap.ReplaceGlobals(zl)

	if err := run(cfg, zl); err != nil {
		zl.Fatal("smittevern stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is not set")
	}
	passwordHash, err := middleware.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	if err := database.Connect(cfg.DatabaseURL, gormlogger.Warn); err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck
	if err := database.AutoMigrate(); err != nil {
		return err
	}
	if err := database.InitializeDefaults(); err != nil {
		return err
	}
	db := database.GetDB()

	catalog, err := disease.LoadCatalog(cfg.DiseaseCatalogPath)
	if err != nil {
		return err
	}
	zl.Info("disease catalog loaded", zap.String("path", cfg.DiseaseCatalogPath))

	directory := profiles.NewDirectory(db, nil, 0, zl)
	if cfg.Redis.Enabled() {
		redisClient, err := profiles.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			zl.Warn("profile cache unavailable, reading profiles from the database", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			directory = profiles.NewDirectory(db, redisClient, cfg.Redis.ProfileTTL, zl)
			zl.Info("profile cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	hub := events.NewHub(zl)
	publisher := events.Multi{hub}
	if cfg.Kafka.Enabled() {
		kafka := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafka.Close() //nolint:errcheck
		publisher = append(publisher, kafka)
		zl.Info("kafka event publisher enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	sender, err := notify.NewSender(cfg.Mail, zl)
	if err != nil {
		return err
	}
	zl.Info("mail sender configured", zap.String("provider", cfg.Mail.Provider))

	m := metrics.New()

	slackManager := slackutil.NewManager(db, zl)
	if err := slackManager.Start(ctx); err != nil {
		zl.Warn("failed to start Slack", zap.Error(err))
	}
	go slackManager.WatchForReloads(ctx)

	if cfg.LabelBackfillInterval > 0 {
		go jobs.NewLabelBackfill(db, catalog, zl).Start(ctx, cfg.LabelBackfillInterval)
	}

	store := services.NewIncidentStore(db)
	resolver := services.NewCorrelationResolver(store, publisher, m, zl)
	generator := services.NewNeighborAlertGenerator(store, directory, publisher, m, zl)
	svc := handlers.APIServices{
		Reports:    services.NewReportService(store, catalog, generator, publisher, m, zl),
		Queries:    services.NewIncidentQueryService(store, directory, zl),
		States:     services.NewIncidentStateMachine(store, resolver, publisher, m, zl),
		Generator:  generator,
		Dispatcher: services.NewZoneNotificationDispatcher(store, sender, slackManager, publisher, m, zl),
	}

	jwtAuth := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:           true,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: passwordHash,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiryHours:    cfg.JWTExpiryHours,
		SkipPaths: []string{
			"/health",
			"/metrics",
			"/auth/login",
		},
		QueryTokenPaths: []string{"/ws/incidents"},
	}, zl)

	mux := http.NewServeMux()
	handlers.NewHTTPHandler(db, m, zl).SetupRoutes(mux)
	handlers.NewAuthHandler(jwtAuth, cfg.JWTExpiryHours, zl).SetupRoutes(mux)
	handlers.NewAPIHandler(svc, db, slackManager, zl).SetupRoutes(mux)
	handlers.NewEventsWSHandler(hub, zl).SetupRoutes(mux)

	// CORS first so preflight requests never hit authentication
	corsMiddleware := middleware.NewCORSMiddleware(cfg.CORSAllowedOrigins...)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           corsMiddleware.Wrap(middleware.RequestIDMiddleware(jwtAuth.Wrap(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("starting HTTP server", zap.Int("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("received shutdown signal, cleaning up")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zl.Warn("error shutting down HTTP server", zap.Error(err))
	}
	slackManager.Stop()
	zl.Info("shutdown complete")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"checkin-backend/config"
	"checkin-backend/internal/api"
	"checkin-backend/internal/checkin"
	"checkin-backend/internal/db"
	"checkin-backend/internal/notification"
	"checkin-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "checkind ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	webhook := notification.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	if webhook == nil {
		logger.Println("no alert webhook configured; capacity alerts go to push subscribers only")
	}
	var webhookPoster notification.WebhookPoster
	if webhook != nil {
		webhookPoster = webhook
	}
	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, &webpushOptions, webhookPoster)
	workerPool.Start(ctx)

	svc := checkin.NewService(appStore, cfg.Facility.Environment, cfg.Facility.Location, cfg.Facility.NotifyThreshold, workerPool)
	logger.Printf("admission service ready for environment %q", cfg.Facility.Environment)

	router := api.NewRouter(svc, appStore, &webpushOptions, cfg)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

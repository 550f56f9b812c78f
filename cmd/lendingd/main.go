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

	"device-lending-backend/config"
	"device-lending-backend/internal/api"
	"device-lending-backend/internal/db"
	"device-lending-backend/internal/lending"
	"device-lending-backend/internal/notification"
	"device-lending-backend/internal/uow"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "lending-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Check for VAPID keys
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire the service layer
	factory := uow.NewFactory(gormDB)
	emailRule, err := lending.NewEmailRule(cfg.Library.EmailPattern)
	if err != nil {
		logger.Fatalf("invalid library.email_pattern: %v", err)
	}

	services := api.Services{
		Engine:     lending.NewService(factory),
		Resources:  lending.NewResourceService(factory, cfg.Library.SearchMaxID),
		Visitors:   lending.NewVisitorService(factory, cfg.Library.Admins, emailRule),
		Categories: lending.NewCategoryService(factory),
	}

	if len(cfg.Library.Categories) > 0 {
		if err := services.Categories.Seed(ctx, cfg.Library.Categories); err != nil {
			logger.Fatalf("failed to seed categories: %v", err)
		}
	}

	// Start the notification worker pool and the maintenance loop
	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
	pool.Start(ctx)

	reminder := notification.NewReminder(&cfg.Maintenance, services.Engine, pool)
	go reminder.Run(ctx)

	// Initialize router
	handler := api.NewHandler(services, pool, gormDB, &webpushOptions)
	router := api.NewRouter(handler, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

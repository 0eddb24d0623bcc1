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

	"bins-status-backend/config"
	"bins-status-backend/internal/api"
	"bins-status-backend/internal/coordinator"
	"bins-status-backend/internal/council"
	"bins-status-backend/internal/db"
	"bins-status-backend/internal/notification"
	"bins-status-backend/internal/store"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "binsd ", log.LstdFlags)

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

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Council API client, shared by the setup flow and all coordinators
	client, err := council.NewClient(&cfg.Council)
	if err != nil {
		logger.Fatalf("failed to initialize council client: %v", err)
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional web push notifications
	var notifier coordinator.Notifier
	var webpushOptions *webpush.Options
	if cfg.Push.Enabled {
		if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
			logger.Fatalf("VAPID keys must be configured when push is enabled.")
		}
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		notifier = pool
		logger.Println("push notification worker pool started")
	}

	// One coordinator per configured address
	manager := coordinator.NewManager(client, notifier, cfg.Poller.Interval, cfg.Poller.ShortInterval)
	if cfg.Poller.Enabled {
		addresses, err := appStore.ListAddresses(ctx)
		if err != nil {
			logger.Fatalf("failed to list configured addresses: %v", err)
		}
		for _, addr := range addresses {
			manager.StartAddress(ctx, addr.ID, addr.UPRN)
		}
		logger.Printf("started %d coordinator(s)", len(addresses))
	} else {
		logger.Println("Poller is disabled. Stored addresses will not be polled.")
	}

	// Initialize router
	router := api.NewRouter(ctx, cfg, appStore, client, manager, webpushOptions, client.Location())
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

	manager.StopAll()
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

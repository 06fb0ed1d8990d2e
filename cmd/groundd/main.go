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

	"ground-booking-backend/config"
	"ground-booking-backend/internal/api"
	"ground-booking-backend/internal/auth"
	"ground-booking-backend/internal/booking"
	"ground-booking-backend/internal/db"
	"ground-booking-backend/internal/events"
	"ground-booking-backend/internal/feed"
	"ground-booking-backend/internal/metrics"
	"ground-booking-backend/internal/notification"
	"ground-booking-backend/internal/store"
	"ground-booking-backend/internal/watcher"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "ground-booking ", log.LstdFlags)

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

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file or GROUND_VAPID_* variables.")
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Fatalf("auth.jwt_secret (or GROUND_JWT_SECRET) must be set.")
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	var collector *metrics.Metrics
	if cfg.Metrics.Enabled {
		collector = metrics.New()
	}

	// Booking events go to connected dashboards and, when configured, the broker.
	hub := feed.NewHub()
	publisher := events.Fanout{hub}
	if cfg.Events.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			logger.Printf("Warning: could not connect to message broker: %v. Events will only reach the live feed.", err)
		} else {
			defer amqpPublisher.Close()
			publisher = append(publisher, amqpPublisher)
			logger.Printf("publishing booking events to exchange %q", cfg.Events.Exchange)
		}
	}

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, &webpushOptions, collector)
	workerPool.Start(ctx)

	bookingSvc, err := booking.NewService(appStore, &cfg.Booking, booking.Deps{
		Publisher: publisher,
		Notifier:  workerPool,
		Metrics:   collector,
	})
	if err != nil {
		logger.Fatalf("failed to initialize booking service: %v", err)
	}

	// Watch for new pending bookings in the background
	watcherSvc := watcher.NewService(&cfg.Watcher, appStore, workerPool)
	go watcherSvc.Run(ctx)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	handler := api.NewHandler(bookingSvc, appStore, &webpushOptions, hub)
	router := api.NewRouter(cfg, handler, verifier, collector)
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

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"joltcab/internal/app"
	"joltcab/internal/config"
	"joltcab/internal/events"
	"joltcab/internal/handler"
	internalRedis "joltcab/internal/redis"
	"joltcab/internal/repository/postgres"
	"joltcab/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the database can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, negotiation := wireServer(db, redisClient, nrApp, cfg)

	// Background sweep: offer expiry and negotiation-window timeouts.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go negotiation.Run(sweepCtx)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server plus the
// negotiation service whose sweep loop main drives.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *service.NegotiationService) {
	// Redis-backed demand tracking for surge input.
	demandStore := internalRedis.NewDemandStore(redisClient)

	// Repositories.
	tripRepo := postgres.NewTripRepository(db)
	offerRepo := postgres.NewOfferRepository(db)
	negotiationStore := postgres.NewNegotiationStore(db)

	// Event fan-out.
	bus := events.NewBus()

	// Services.
	factors := service.NewContextFactors(
		demandStore,
		service.StaticFactorProvider{Value: cfg.Fare.WeatherFactor},
		service.StaticFactorProvider{Value: cfg.Fare.TrafficFactor},
	)
	fareService := service.NewFareService(cfg.Fare, factors)
	locks := service.NewTripLocks()
	ledger := service.NewTripLedger(tripRepo, fareService, demandStore, bus, locks, cfg.Negotiation)
	negotiation := service.NewNegotiationService(ledger, offerRepo, negotiationStore, bus, locks, cfg.Negotiation)

	// Handlers.
	tripHandler := handler.NewTripHandler(ledger, negotiation)
	offerHandler := handler.NewOfferHandler(negotiation)
	eventHandler := handler.NewEventStreamHandler(bus)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:  tripHandler,
		OfferHandler: offerHandler,
		EventHandler: eventHandler,
		RedisClient:  redisClient,
		NewRelicApp:  nrApp,
		AuthConfig:   cfg.Auth,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return server, negotiation
}

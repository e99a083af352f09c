package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/offerbook-hq/offerbook/abis"
	"github.com/offerbook-hq/offerbook/clients/evm"
	"github.com/offerbook-hq/offerbook/cmd/offerbook/httpjson"
	"github.com/offerbook-hq/offerbook/config"
	"github.com/offerbook-hq/offerbook/db"
	"github.com/offerbook-hq/offerbook/http"
	"github.com/offerbook-hq/offerbook/logging"
	"github.com/offerbook-hq/offerbook/services"
)

func main() {
	flags := parseFlags()
	log := logging.New(os.Stdout, flags.LogLevel, flags.LogJSON)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx := context.Background()

	// Initialize database
	log.Info().Msg("Initializing database connection")
	database, err := db.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	log.Info().Msg("Database connection established successfully")

	// Load contract interfaces
	registry := abis.NewRegistry(cfg.ABIBaseURL, log)
	registry.Load(ctx)

	// Receipt client with per-endpoint timeout
	receipts := evm.NewFailoverClient(cfg.RPCTimeout, log)

	// Reconciliation services
	reconciler := services.NewReconciler(database, receipts, registry, cfg.ReconcileConcurrency, log)
	metricsService := services.NewMetricsService()
	offerService := services.NewOfferService(database, reconciler, metricsService, log)
	orderService := services.NewOrderService(database, reconciler, metricsService, log)

	// Create and start the server
	server := httpjson.New(httpjson.Config{
		Addr:           fmt.Sprintf(":%s", cfg.Port),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		Logger:         log,
		LogRequests:    true,
		Dependencies: httpjson.Dependencies{
			Database: database,
			Offers:   offerService,
			Orders:   orderService,
			Metrics:  metricsService,
		},
	})

	serverShutdown := http.StartAsync(server, log)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Shutdown signal received, cleaning up...")

	serverShutdown(ctx)

	log.Info().Msg("Shutdown complete")
}

type flagSet struct {
	LogJSON  bool
	LogLevel zerolog.Level
}

func parseFlags() flagSet {
	var (
		logJSON        bool
		logLevel       string
		logLevelParsed zerolog.Level
	)

	flag.BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")
	flag.StringVar(&logLevel, "log-level", "info", "Set log level (debug, info, warn, error)")

	flag.Parse()

	switch logLevel {
	case "debug":
		logLevelParsed = zerolog.DebugLevel
	case "warn":
		logLevelParsed = zerolog.WarnLevel
	case "error":
		logLevelParsed = zerolog.ErrorLevel
	default:
		logLevelParsed = zerolog.InfoLevel
	}

	return flagSet{
		LogJSON:  logJSON,
		LogLevel: logLevelParsed,
	}
}

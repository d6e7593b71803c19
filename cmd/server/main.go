package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	_ "github.com/lib/pq"

	grpcapi "parkspot-backend/internal/api/grpc"
	httpapi "parkspot-backend/internal/api/http"
	"parkspot-backend/internal/config"
	"parkspot-backend/internal/discount"
	"parkspot-backend/internal/jobs"
	"parkspot-backend/internal/logger"
	"parkspot-backend/internal/metrics"
	"parkspot-backend/internal/pricing"
	"parkspot-backend/internal/quote"
	"parkspot-backend/internal/repository"
	"parkspot-backend/internal/repository/postgres"
	"parkspot-backend/internal/repository/yamlfile"
	"parkspot-backend/internal/scheduler"
	"parkspot-backend/internal/security"
	"parkspot-backend/internal/service"
	"parkspot-backend/internal/tax"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	envFile := flag.String("env-file", ".env", "Optional .env file loaded before the config")
	flag.Parse()

	if err := config.LoadEnvFiles(*envFile); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting ParkSpot pricing server...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.GetServerAddress(), "grpc", cfg.GetGRPCAddress())
	logger.Info("Store configuration", "rules", cfg.Rules.Source, "catalog", cfg.Catalog.Source, "strict_validation", cfg.Rules.StrictValidation)

	// Pricing settings
	loc, err := cfg.Pricing.Location()
	if err != nil {
		log.Fatalf("Invalid pricing timezone: %v", err)
	}
	rate, err := cfg.Pricing.Rate()
	if err != nil {
		log.Fatalf("Invalid VAT rate: %v", err)
	}
	schedule, err := cfg.Pricing.Schedule()
	if err != nil {
		log.Fatalf("Invalid pricing schedule: %v", err)
	}
	vatCalc, err := tax.NewCalculator(rate)
	if err != nil {
		log.Fatalf("Invalid VAT rate: %v", err)
	}

	// Initialize repositories
	var (
		pricingRepo repository.PricingRepository
		ruleRepo    repository.DiscountRuleRepository
	)
	if cfg.UsesDatabase() {
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		store := postgres.NewStore(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.Ping(ctx); err != nil {
			cancel()
			logger.Error("Failed to ping database", "error", err)
			log.Fatalf("Failed to ping database: %v", err)
		}
		if err := store.Migrate(ctx); err != nil {
			cancel()
			logger.Error("Failed to migrate database", "error", err)
			log.Fatalf("Failed to migrate database: %v", err)
		}
		cancel()
		logger.Info("Database connection established")

		pricingRepo = store.PricingRepository
		ruleRepo = store.DiscountRuleRepository
	}
	if cfg.Catalog.Source == config.SourceFile {
		catalog, err := yamlfile.LoadCatalog(cfg.Catalog.File)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
		logger.Info("Catalog loaded", "file", cfg.Catalog.File, "spots", catalog.Len())
		pricingRepo = catalog
	}
	if cfg.Rules.Source == config.SourceFile {
		ruleRepo = yamlfile.NewRuleStore(cfg.Rules.File)
	}

	// Pricing engine
	m := metrics.New()
	engine := discount.NewEngine()
	resolver := pricing.NewResolver(pricing.WithLocation(loc), pricing.WithSchedule(schedule))
	calculator := quote.NewCalculator(resolver, engine, vatCalc)

	// Health starts NOT_SERVING until the first rule load succeeds
	health := grpcapi.NewHealthServer()
	jobRunner := jobs.NewJobRunner(ruleRepo, engine, health, m, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := jobRunner.RefreshDiscountRulesNow(ctx); err != nil {
		logger.Error("Initial discount rule load failed; serving without discounts until the next refresh", "error", err)
	}
	cancel()

	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	// Initialize services
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.TokenExpiry())
	quoteSvc := service.NewQuoteService(pricingRepo, calculator, m)
	ruleSvc := service.NewRuleService(ruleRepo, engine, m, service.WithStrictValidation(cfg.Rules.StrictValidation))

	router := httpapi.NewRouter(httpapi.Deps{
		Quotes:    quoteSvc,
		Rules:     ruleSvc,
		Refresher: jobRunner,
		Registry:  engine,
		Tokens:    tokenManager,
		Metrics:   m,
	})
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up gRPC server for health checks
	grpcServer := grpcapi.NewServer(health)
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetGRPCAddress())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	cronScheduler.Start()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down pricing server...")
	health.Shutdown()
	cronScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Pricing server stopped. Goodbye!")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"llm-billing-gateway/config"
	httpHandler "llm-billing-gateway/internal/adapter/http/handler"
	openaiAdapter "llm-billing-gateway/internal/adapter/openai"
	pgStorage "llm-billing-gateway/internal/adapter/storage/postgres"
	redisStorage "llm-billing-gateway/internal/adapter/storage/redis"
	"llm-billing-gateway/internal/core/domain"
	"llm-billing-gateway/internal/core/ports"
	"llm-billing-gateway/internal/metrics"
	"llm-billing-gateway/internal/service"
	"llm-billing-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting LLM Billing Gateway")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Prometheus metrics
	metrics.RegisterBillingMetrics()

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	keyRepo := pgStorage.NewKeyRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	authStore := redisStorage.NewAuthorizationStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize services
	verifier := service.NewJWTVerifier(cfg.Identity)
	walletSvc, err := service.NewWalletService(walletRepo, transactor, cfg.Billing, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize wallet service")
	}
	keySvc := service.NewKeyService(keyRepo, transactor, cfg.Billing, log)
	ledgerSvc := service.NewLedgerService(walletSvc, authStore, cfg.Billing, log)
	gatewaySvc := service.NewBillingGateway(keySvc, ledgerSvc, log)
	completer := openaiAdapter.NewCompleter(cfg.Upstream, log)
	chatSvc := service.NewChatService(completer, gatewaySvc, domain.DefaultPriceTable(), cfg.Billing, log)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Verifier:       verifier,
		KeySvc:         keySvc,
		WalletSvc:      walletSvc,
		ChatSvc:        chatSvc,
		AuditSvc:       auditSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

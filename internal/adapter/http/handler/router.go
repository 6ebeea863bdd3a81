package handler

import (
	"llm-billing-gateway/internal/adapter/http/middleware"
	redisStore "llm-billing-gateway/internal/adapter/storage/redis"
	"llm-billing-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Verifier       ports.IdentityVerifier
	KeySvc         ports.KeyService
	WalletSvc      ports.WalletService
	ChatSvc        ports.ChatProxy
	AuditSvc       ports.AuditService         // nil = audit logging disabled
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Bearer-authenticated routes (account management) ---
	bearerAuth := middleware.BearerAuth(deps.Verifier, deps.Logger)

	keyHandler := NewKeyHandler(deps.KeySvc, deps.AuditSvc)
	keys := v1.Group("/api-keys", bearerAuth)
	{
		keys.POST("", rl("keys"), keyHandler.Create)
		keys.GET("", rl("keys"), keyHandler.List)
		keys.DELETE("/:key", rl("keys"), keyHandler.Revoke)
	}

	walletHandler := NewWalletHandler(deps.WalletSvc)
	v1.GET("/wallet", bearerAuth, rl("wallet"), walletHandler.GetWallet)
	v1.GET("/transactions", bearerAuth, rl("transactions"), walletHandler.ListTransactions)

	// --- API-key-authenticated routes (AI invocation) ---
	chatHandler := NewChatHandler(deps.ChatSvc)
	v1.POST("/chat", rl("chat"), chatHandler.Chat)

	return r
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/handler"
	"github.com/aryan0dhankhar/minilibrary/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/minilibrary/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/minilibrary/internal/observability/tracing"
	"github.com/aryan0dhankhar/minilibrary/internal/repository"
	"github.com/aryan0dhankhar/minilibrary/internal/security"
	"github.com/aryan0dhankhar/minilibrary/internal/security/audit"
	"github.com/aryan0dhankhar/minilibrary/internal/security/auth"
	"github.com/aryan0dhankhar/minilibrary/internal/security/ratelimit"
	"github.com/aryan0dhankhar/minilibrary/internal/service"
	"github.com/aryan0dhankhar/minilibrary/internal/validation"
	"github.com/aryan0dhankhar/minilibrary/internal/worker"
	"github.com/aryan0dhankhar/minilibrary/pkg/config"
	"github.com/aryan0dhankhar/minilibrary/pkg/database"
)

const serviceName = "minilibrary"

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel, cfg.IsDevelopment())
	slog.SetDefault(log)
	log.Info("starting library server",
		slog.String("environment", cfg.Environment),
		slog.String("version", cfg.APIVersion),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing
	shutdownTracing, err := tracing.Init(ctx, log, tracing.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: serviceName,
		Version:     cfg.APIVersion,
		Environment: cfg.Environment,
	})
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Open the database and apply migrations
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Driver:       cfg.DatabaseDriver,
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DatabaseMaxOpenConns,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Initialize the optional Redis book cache
	var (
		bookCache  domain.BookCache
		redisProbe handler.Pinger
	)
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		bookCache = repository.NewRedisBookCache(redisClient, cfg.BookCacheTTL, log)
		redisProbe = redisClient
	} else {
		log.Info("book cache disabled: REDIS_URL not set")
	}

	// 6. Initialize repositories
	bookRepo := repository.NewSQLBookRepository(pool, log)
	userRepo := repository.NewSQLUserRepository(pool, log)
	activityRepo := repository.NewSQLActivityRepository(pool, log)

	// 7. Initialize security components
	auditLogger := audit.NewLogger(log)
	verifier := auth.NewVerifier(cfg.Auth, log)
	authorizer := security.NewAuthorizationService(auditLogger, log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)

	// 8. Initialize services
	authService := service.NewAuthService(userRepo, verifier, cfg.Auth, auditLogger, log)
	bookService := service.NewBookService(bookRepo, activityRepo, bookCache, log)
	aiService := service.NewAIService(bookRepo, cfg.AIProvider, log)

	// 9. Setup HTTP routes
	v := validation.New()
	router := handler.NewRouter(handler.RouterConfig{
		Health:        handler.NewHealthHandler(cfg.APIVersion, handler.PingFunc(pool.Health), redisProbe, log),
		Auth:          handler.NewAuthHandler(authService, v, log),
		Books:         handler.NewBookHandler(bookService, v, log),
		AI:            handler.NewAIHandler(aiService, v, log),
		Authenticator: authService,
		Authorizer:    authorizer,
		Limiter:       rateLimiter,
		CORSOrigins:   cfg.CORSOrigins,
		Logger:        log,
	})

	// 10. Start circulation worker in background
	circulationWorker := worker.NewCirculationWorker(bookRepo, log, cfg.CirculationSyncInterval)
	go circulationWorker.Start(ctx)

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(router, serviceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", string(cfg.Auth.Mode())),
		slog.String("database", cfg.DatabaseDriver),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-sigChan:
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.Error("server error", slog.String("error", err.Error()))
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop circulation worker
	rateLimiter.Stop()
	log.Info("server stopped")
}

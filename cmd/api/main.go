package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mkarsten/gatehouse/internal/auth"
	"github.com/mkarsten/gatehouse/internal/background"
	"github.com/mkarsten/gatehouse/internal/config"
	"github.com/mkarsten/gatehouse/internal/database"
	"github.com/mkarsten/gatehouse/internal/handlers"
	middlewareCustom "github.com/mkarsten/gatehouse/internal/middleware"
	"github.com/mkarsten/gatehouse/internal/repositories"
	"github.com/mkarsten/gatehouse/internal/routes"
	"github.com/mkarsten/gatehouse/internal/services"
	pkgauth "github.com/mkarsten/gatehouse/pkg/auth"
	pkghttp "github.com/mkarsten/gatehouse/pkg/http"
	pkglogger "github.com/mkarsten/gatehouse/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Redis backs the single-use recovery codes
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	attemptRepo := repositories.NewAttemptRepository(db)
	alertRepo := repositories.NewAlertRepository(db)
	otpStore := repositories.NewOTPStore(redisClient)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(
		attemptRepo,
		logger,
		cfg.Security.CleanupInterval,
		cfg.Security.AttemptRetention,
	)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Security event publisher
	var publisher services.EventPublisher = services.NoopPublisher{}
	if cfg.Events.Enabled {
		kafkaPublisher := services.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	// Timing delay for auth failure responses
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandMs,
	})

	// AWS SES notifier for recovery codes
	notifier, err := services.NewSESNotifier(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
	if err != nil {
		logger.Error("failed to initialize notifier", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	rateLimitService := services.NewRateLimitService(attemptRepo, accountRepo, alertRepo, publisher, auditLogger, logger, cfg.Security)
	anomalyService := services.NewAnomalyService(attemptRepo, alertRepo, publisher, logger, cfg.Security)
	authService := services.NewAuthService(
		accountRepo,
		attemptRepo,
		rateLimitService,
		anomalyService,
		pkgauth.NewBcryptVerifier(),
		tokenManager,
		timingDelay,
		auditLogger,
		logger,
		cfg.Security,
	)
	otpService := services.NewOTPService(accountRepo, otpStore, notifier, publisher, auditLogger, logger, cfg.Security)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	otpHandler := handlers.NewOTPHandler(otpService)
	alertHandler := handlers.NewAlertHandler(alertRepo)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, otpHandler, alertHandler, tokenManager)

	// Health check with database and redis
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","redis":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/MATHILDEdemariable/jourj/internal/config"
	"github.com/MATHILDEdemariable/jourj/internal/database"
	"github.com/MATHILDEdemariable/jourj/internal/handlers"
	"github.com/MATHILDEdemariable/jourj/internal/logger"
	"github.com/MATHILDEdemariable/jourj/internal/middleware"
	"github.com/MATHILDEdemariable/jourj/internal/notify"
	"github.com/MATHILDEdemariable/jourj/internal/planner"
	"github.com/MATHILDEdemariable/jourj/internal/questionnaire"
	"github.com/MATHILDEdemariable/jourj/internal/queue"
	"github.com/MATHILDEdemariable/jourj/internal/services/sharetoken"
	"github.com/MATHILDEdemariable/jourj/internal/telemetry"
	"github.com/MATHILDEdemariable/jourj/internal/timeline"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for verbose logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("catalog_path", cfg.CatalogPath),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	otelReady := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "jourj-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				otelReady = true
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Load the questionnaire catalog. The catalog drives timeline generation,
	// so a broken catalog is a startup failure, not a runtime surprise.
	catalog, err := questionnaire.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		zapLogger.Fatal("failed_to_load_questionnaire_catalog",
			zap.String("path", cfg.CatalogPath),
			zap.Error(err),
		)
	}
	zapLogger.Info("loaded_questionnaire_catalog",
		zap.Int("questions", len(catalog.Questions)),
	)

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_database")

	// Connect to Redis (rate limiting counters + planning event notifications)
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_parse_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for job queue (required)
	// Retry connection with exponential backoff to handle RabbitMQ startup delays
	const maxRetries = 10
	const initialDelay = 2 * time.Second
	var jobQueue queue.JobQueue
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err = queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			defer func() {
				if err := jobQueue.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
			break
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt)) // Exponential backoff
		if delay > 30*time.Second {
			delay = 30 * time.Second // Cap at 30 seconds
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
			zap.Int("max_retries", maxRetries),
			zap.Error(lastErr),
		)
	}

	// Initialize repositories and services
	activityRepo := database.NewActivityRepository(db)
	notifier := notify.NewRedisNotifier(redisClient, zapLogger)
	builder := timeline.NewBuilder(zapLogger)
	plannerService := planner.NewService(builder, activityRepo, notifier, zapLogger)

	tokens, err := sharetoken.NewManager(cfg.ShareTokenSecret)
	if err != nil {
		zapLogger.Fatal("failed_to_initialize_share_token_manager", zap.Error(err))
	}

	// Initialize handlers
	timelineHandler := handlers.NewTimelineHandler(plannerService, catalog, jobQueue, tokens, zapLogger)
	healthChecker := handlers.NewHealthChecker(db, redisClient, jobQueue)

	// Setup router
	r := mux.NewRouter()

	// Apply middleware (order matters - executed in reverse order of registration)
	zapLogger.Info("setting_up_middleware")

	// Outermost middleware (executes first):
	// 0. OpenTelemetry tracing (if enabled)
	if otelReady {
		r.Use(otelmux.Middleware("jourj-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	// 1. Security headers (should be set on all responses)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	// 2. Request size limits (protects against DoS)
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	// 3. Content-Type validation for POST/PATCH/PUT requests
	r.Use(middleware.ContentType)
	// 4. Request timeout (30 seconds default)
	r.Use(middleware.Timeout(30 * time.Second))
	// 5. Error handler (catches panics)
	r.Use(middleware.ErrorHandler(zapLogger))
	// 6. Audit logging (for security events)
	r.Use(middleware.Audit(zapLogger))
	// 7. Logging (innermost, executes last before handler)
	r.Use(middleware.Logging(zapLogger))

	// Rate limit middleware (applied selectively to specific routes, not globally)
	rate := cfg.RateLimitRate
	if rate == "" {
		rate = "10-S"
	}
	rateLimitMW, err := middleware.RateLimit(redisClient, rate)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// API v1 routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	// Planning timeline routes. Every route under the planning prefix,
	// including mutations, requires an edit-scope token (minted via the
	// configure CLI when a planning is handed to a couple).
	planningRouter := apiRouter.PathPrefix("/plannings/{planningID}").Subrouter()
	planningRouter.Use(rateLimitMW)
	planningRouter.Use(middleware.ShareAuth(tokens, sharetoken.ScopeEdit, zapLogger))
	timelineHandler.RegisterRoutes(planningRouter)

	// Shared read-only routes: a view-scope share token grants timeline access
	sharedRouter := apiRouter.PathPrefix("/shared/plannings/{planningID}").Subrouter()
	sharedRouter.Use(rateLimitMW)
	sharedRouter.Use(middleware.ShareAuth(tokens, sharetoken.ScopeView, zapLogger))
	sharedRouter.HandleFunc("/timeline", timelineHandler.GetTimeline).Methods("GET")

	// CORS wraps the whole router so preflight requests are answered even for
	// routes that do not register OPTIONS explicitly.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(r)

	log.Println("Middleware setup complete")

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        corsHandler,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	// Sweep the DLQ hourly when the queue implementation has one; failed
	// suggestion jobs are kept for a day for inspection.
	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		sweeper := queue.NewDLQSweeper(dlqPurger, 1*time.Hour, 24*time.Hour, zapLogger)
		go func() {
			if err := sweeper.Run(sweepCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_sweeper_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_sweeper",
			zap.Duration("interval", 1*time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	sweepCancel()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	// Flush any timeline edits waiting on the save debounce before exit
	plannerService.Flush(ctx)

	zapLogger.Info("server_exited")
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	// Only expose minimal version info (sanitized for security)
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		// Use standard log here since we don't have logger in this context
		// This is a fallback for a simple version endpoint
		_ = err
	}
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zombar/newsintel/internal/api"
	"github.com/zombar/newsintel/internal/database"
	"github.com/zombar/newsintel/internal/metrics"
	"github.com/zombar/newsintel/internal/pipeline"
	"github.com/zombar/newsintel/internal/queue"
	"github.com/zombar/newsintel/internal/searchclient"
	"github.com/zombar/newsintel/internal/tracing"
	"github.com/zombar/newsintel/internal/usage"
	"github.com/zombar/newsintel/pkg/logging"
)

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("newsintel service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer("newsintel")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Get default values from environment variables, with fallbacks
	portDefault := getEnv("PORT", "8080")
	dbPathDefault := getEnv("DB_PATH", "newsintel.db")
	searchURLDefault := getEnv("SEARCH_API_URL", "")
	searchKeyDefault := getEnv("SEARCH_API_KEY", "")
	redisAddrDefault := getEnv("REDIS_ADDR", "localhost:6379")
	asyncDefault := getEnvBool("ENABLE_ASYNC", false)
	concurrencyDefault := 5

	var (
		port        = flag.String("port", portDefault, "Server port (env: PORT)")
		dbPath      = flag.String("db", dbPathDefault, "Database file path (env: DB_PATH)")
		searchURL   = flag.String("search-url", searchURLDefault, "Search API base URL (env: SEARCH_API_URL)")
		searchKey   = flag.String("search-key", searchKeyDefault, "Search API key (env: SEARCH_API_KEY)")
		redisAddr   = flag.String("redis", redisAddrDefault, "Redis address for async jobs (env: REDIS_ADDR)")
		enableAsync = flag.Bool("async", asyncDefault, "Enable async job processing via Redis (env: ENABLE_ASYNC)")
		concurrency = flag.Int("concurrency", concurrencyDefault, "Worker concurrency for async jobs")
	)
	flag.Parse()

	// Initialize database
	db, err := database.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err, "database_path", *dbPath)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database metrics
	dbMetrics := metrics.NewDatabaseMetrics("newsintel")
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			dbMetrics.UpdateDBStats(db.Conn())
		}
	}()
	logger.Info("database metrics initialized")

	businessMetrics := metrics.NewBusinessMetrics("newsintel")

	// Initialize the search client and pipeline. Without a search URL the
	// service still accepts caller-supplied documents.
	var search *searchclient.Client
	pipe := pipeline.New()
	if *searchURL != "" {
		search, err = searchclient.New(*searchURL, *searchKey)
		if err != nil {
			logger.Error("failed to initialize search client", "error", err, "search_url", *searchURL)
			os.Exit(1)
		}
		search = search.WithRequestCounter(businessMetrics.SearchRequestsTotal)
		pipe = pipeline.NewWithFetcher(search)
		logger.Info("search client initialized", "url", *searchURL)
	} else {
		logger.Info("no search API configured, accepting raw documents only")
	}

	tracker := usage.NewTracker(usage.Config{})

	// Async job processing is optional; it needs Redis.
	var queueClient *queue.Client
	var worker *queue.Worker
	if *enableAsync {
		queueClient = queue.NewClient(queue.ClientConfig{RedisAddr: *redisAddr})
		defer queueClient.Close()

		worker = queue.NewWorker(queue.WorkerConfig{
			RedisAddr:   *redisAddr,
			Concurrency: *concurrency,
		}, db, pipe, businessMetrics)

		go func() {
			if err := worker.Start(); err != nil {
				logger.Error("queue worker failed", "error", err)
				os.Exit(1)
			}
		}()
		logger.Info("async processing enabled", "redis", *redisAddr, "concurrency", *concurrency)
	}

	// Initialize API handler
	handlerCfg := api.Config{
		DB:       db,
		Pipeline: pipe,
		Search:   search,
		Tracker:  tracker,
	}
	if queueClient != nil {
		handlerCfg.QueueClient = queueClient
	}
	apiHandler := api.NewHandler(handlerCfg)

	// Wrap handler with middleware chain: HTTP logging -> tracing -> handlers
	handler := logging.HTTPLoggingMiddleware(logger)(
		tracing.HTTPMiddleware("newsintel")(apiHandler),
	)

	// Create server with extended timeouts for fetch-heavy analyses
	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("newsintel service starting",
			"port", *port,
			"database", *dbPath,
			"async_enabled", *enableAsync,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	if worker != nil {
		worker.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

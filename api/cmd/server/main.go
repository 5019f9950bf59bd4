package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"babelBridge/api/cache"
	"babelBridge/api/config"
	"babelBridge/api/database"
	"babelBridge/api/handlers"
	"babelBridge/api/kafka"
	"babelBridge/api/metrics"
	"babelBridge/api/middleware"
	"babelBridge/api/repository"
	"babelBridge/api/service"
	"babelBridge/api/validation"
	"babelBridge/worker/pool"
	"babelBridge/worker/translator"
	"babelBridge/worker/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Translation service starting",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("uploads_dir", cfg.UploadsDir),
		zap.Int("max_workers", cfg.Pool.MaxWorkers),
		zap.Int("queue_size", cfg.Pool.QueueSize),
		zap.Duration("job_timeout", cfg.Pool.JobTimeout),
	)

	if cfg.Translator.APIKey == "" {
		logger.Warn("API key is not set; translations will fail", zap.String("env_var", cfg.Translator.APIKeyEnv))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := workspace.New(cfg.UploadsDir)
	if err != nil {
		logger.Fatal("Failed to prepare uploads directory", zap.Error(err))
	}

	tr := translator.NewTranslator(translator.Options{
		Command:       cfg.Translator.Command,
		BaseArgs:      cfg.Translator.BaseArgs,
		Provider:      cfg.Translator.Provider,
		FastModel:     cfg.Translator.FastModel,
		StandardModel: cfg.Translator.StandardModel,
		APIKeyEnv:     cfg.Translator.APIKeyEnv,
		APIKey:        cfg.Translator.APIKey,
	}, logger)

	workers := pool.NewWorkerPool(cfg.Pool.MaxWorkers, cfg.Pool.QueueSize, cfg.Pool.JobTimeout)
	metrics.RegisterPool(prometheus.DefaultRegisterer, workers)

	checks := []handlers.Check{
		{Name: "translator", Run: func(context.Context) (string, error) { return tr.Check() }},
		{Name: "uploads_dir", Run: func(context.Context) (string, error) { return ws.Root(), checkWritable(ws.Root()) }},
		{Name: "api_key", Run: func(context.Context) (string, error) {
			if cfg.Translator.APIKey == "" {
				return "", fmt.Errorf("%s is not set", cfg.Translator.APIKeyEnv)
			}
			return "set", nil
		}},
	}

	// Each backend is optional. Interfaces stay nil when disabled.
	var statusCache service.StatusCache
	if cfg.RedisAddr != "" {
		redisCache, err := database.ConnectCache(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisCache.Close()
		statusCache = cache.NewStatusCache(redisCache)
		checks = append(checks, handlers.Check{Name: "redis", Optional: true, Run: func(ctx context.Context) (string, error) {
			return "", redisCache.Ping(ctx)
		}})
		logger.Info("Redis connected", zap.String("addr", cfg.RedisAddr))
	}

	var repo repository.Repository
	if cfg.DatabaseURL != "" {
		db, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		repo = repository.NewPostgresRepo(db)
		checks = append(checks, handlers.Check{Name: "postgres", Optional: true, Run: func(ctx context.Context) (string, error) {
			return "", db.Ping(ctx)
		}})
		logger.Info("Database connected")
	}

	var producer kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Fatal("Failed to create Kafka producer", zap.Error(err))
		}
		defer producer.Close()
		logger.Info("Kafka producer ready", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	svc := service.NewTranslationService(ws, tr, workers, statusCache, repo, producer, logger)
	translateHandler := handlers.NewTranslateHandler(svc, validation.FormRules{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		DefaultLanguage: cfg.Translator.Language,
		AllowLanguage:   cfg.LanguageAllowed,
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /translate", translateHandler.Translate)
	mux.HandleFunc("GET /jobs/{id}", translateHandler.Job)
	mux.HandleFunc("GET /quote", translateHandler.Quote)
	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("GET /ready", handlers.NewReadyHandler(5*time.Second, checks...))
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: middleware.Chain(mux,
			middleware.TraceID,
			middleware.Logging(logger),
			middleware.Recovery(logger),
			middleware.Metrics,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	workers.Close()

	logger.Info("Server stopped")
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".ready-*")
	if err != nil {
		return fmt.Errorf("uploads dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}

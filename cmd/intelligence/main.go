package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/enturk/intelligence/internal/config"
	"github.com/enturk/intelligence/internal/db/postgres"
	"github.com/enturk/intelligence/internal/db/redis"
	"github.com/enturk/intelligence/internal/domain"
	logpkg "github.com/enturk/intelligence/internal/logger"
	"github.com/enturk/intelligence/internal/metrics"
	"github.com/enturk/intelligence/internal/repository/embcache"
	volunteerrepo "github.com/enturk/intelligence/internal/repository/volunteer"
	chiTransport "github.com/enturk/intelligence/internal/transport/chi"
	openaiEmb "github.com/enturk/intelligence/internal/transport/openai"
	embeddinguc "github.com/enturk/intelligence/internal/usecase/embedding"
	healthuc "github.com/enturk/intelligence/internal/usecase/health"
	matchuc "github.com/enturk/intelligence/internal/usecase/match"
	"github.com/enturk/intelligence/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	embeddingMode := "openai"
	if cfg.Embedding.Mock {
		embeddingMode = "mock"
	}

	logger.Info("Starting intelligence API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_mode", embeddingMode),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	ctx := context.Background()

	// Volunteer store pool — the only shared mutable resource.
	pool, err := postgres.NewPool(ctx, postgres.Config{
		URL:      cfg.Database.URL,
		MinConns: cfg.Database.PoolMin,
		MaxConns: cfg.Database.PoolMax,
	})
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := postgres.WaitForReady(ctx, pool, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database",
		zap.Int("pool_min", cfg.Database.PoolMin),
		zap.Int("pool_max", cfg.Database.PoolMax),
	)

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	// Optional Redis embedding cache.
	var cache *redis.Client
	if cfg.Cache.Addr != "" {
		cache, err = redis.NewClient(redis.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache client", zap.Error(err))
		}
		defer cache.Close()
		logger.Info("Embedding cache enabled", zap.String("addr", cfg.Cache.Addr))
	}

	embedder := buildEmbedder(cfg.Embedding, cfg.Cache, cache, logger)

	volunteers := volunteerrepo.New(pool, time.Duration(cfg.Database.QueryTimeoutSec)*time.Second)
	matchSvc := matchuc.New(embedder, volunteers, cfg.Embedding.Model)
	healthSvc := healthuc.New(embeddingMode, cfg.Embedding.Model)

	server := chiTransport.NewServer(matchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.CORSMiddleware())
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the embedder chain, fixed for the process lifetime:
// mock, or OpenAI -> Cached -> Instrumented.
func buildEmbedder(
	embCfg config.EmbeddingConfig,
	cacheCfg config.CacheConfig,
	cache *redis.Client,
	logger *zap.Logger,
) domain.Embedder {
	if embCfg.Mock {
		return embeddinguc.NewInstrumentedEmbedder(
			embeddinguc.NewMockEmbedder(embCfg.Model), "mock", embCfg.Model, logger,
		)
	}

	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:  embCfg.APIKey,
		BaseURL: embCfg.BaseURL,
		Model:   embCfg.Model,
		Timeout: time.Duration(embCfg.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	if cache != nil {
		embedder = embcache.New(
			embedder, cache, time.Duration(cacheCfg.TTLSec)*time.Second,
			metrics.EmbeddingCacheTotal, logger,
		)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, "openai", embCfg.Model, logger)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"error": map[string]string{
							"code":    "MATCHING_INTERNAL_ERROR",
							"message": "Unexpected internal matching failure.",
						},
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

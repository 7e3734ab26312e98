package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/labchat/internal/audit"
	"github.com/kailas-cloud/labchat/internal/config"
	dbRedis "github.com/kailas-cloud/labchat/internal/db/redis"
	"github.com/kailas-cloud/labchat/internal/domain"
	logpkg "github.com/kailas-cloud/labchat/internal/logger"
	"github.com/kailas-cloud/labchat/internal/metrics"
	"github.com/kailas-cloud/labchat/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/labchat/internal/repository/search"
	chiTransport "github.com/kailas-cloud/labchat/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/labchat/internal/transport/openai"
	chatuc "github.com/kailas-cloud/labchat/internal/usecase/chat"
	completionuc "github.com/kailas-cloud/labchat/internal/usecase/completion"
	embeddinguc "github.com/kailas-cloud/labchat/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/labchat/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/labchat/internal/usecase/retrieval"
	"github.com/kailas-cloud/labchat/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting labchat API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("debug", cfg.Chat.Debug),
	)

	activity, err := audit.Open(cfg.Audit.Path, cfg.Audit.MaxSizeMB, logger)
	if err != nil {
		logger.Fatal("Failed to open activity log", zap.String("path", cfg.Audit.Path), zap.Error(err))
	}
	defer func() { _ = activity.Close() }()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterCompletionMetrics()
	metrics.RegisterChatMetrics()

	keys := domain.Keyspace{Database: cfg.Database.Name, Collection: cfg.Database.Collection}
	openaiTimeout := time.Duration(cfg.OpenAI.TimeoutSec) * time.Second

	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		Model:    cfg.OpenAI.EmbeddingModel,
		Provider: "openai",
		Timeout:  openaiTimeout,
		Logger:   logger,
	})
	embedder := buildEmbedder(cfg, baseEmbedder, store, keys, activity, logger)

	completer := completionuc.NewAuditedCompleter(
		openaiTransport.NewCompleter(&openaiTransport.Config{
			APIKey:   cfg.OpenAI.APIKey,
			BaseURL:  cfg.OpenAI.BaseURL,
			Model:    cfg.OpenAI.CompletionModel,
			Provider: "openai",
			Timeout:  openaiTimeout,
			Logger:   logger,
		}),
		cfg.OpenAI.CompletionModel, activity, logger,
	)

	searchRepo := searchrepo.New(store, keys, time.Duration(cfg.Database.QueryTimeoutSec)*time.Second)
	retriever := retrievaluc.New(searchRepo, retrievaluc.Options{
		Targets:               searchTargets(cfg.Search.Targets),
		Parallel:              cfg.Search.Parallel,
		ScoreThresholdEnabled: *cfg.Chat.ScoreThresholdEnabled,
		ScoreThreshold:        *cfg.Chat.ScoreThreshold,
	}, activity, logger)

	chatSvc := chatuc.New(embedder, retriever, completer, activity, chatuc.Options{
		SystemPrompt:     cfg.Chat.SystemPrompt,
		FallbackReply:    cfg.Chat.FallbackReply,
		MaxContextTokens: cfg.Chat.MaxContextTokens,
		Debug:            cfg.Chat.Debug,
	}, logger)

	healthSvc := healthuc.New(store, baseEmbedder)

	// A missing sidebar is not fatal: /api/sidebar reports the failure per request.
	sidebar, err := config.LoadSidebar(cfg.Sidebar.Path)
	if err != nil {
		logger.Warn("Sidebar not loaded", zap.String("path", cfg.Sidebar.Path), zap.Error(err))
	}

	server := chiTransport.NewServer(chatSvc, activity, healthSvc, sidebar, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
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
		_ = activity.Appendf("Server started on port %d", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Audited.
// The audited layer is outermost so cache hits are logged too.
func buildEmbedder(
	cfg config.Config,
	base domain.Embedder,
	store *dbRedis.Store,
	keys domain.Keyspace,
	activity *audit.Log,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if cfg.EmbeddingCache.Enabled {
		embedder = embcache.New(base, store, embcache.Options{
			KeyPrefix: keys.CacheKeyPrefix(),
			Model:     cfg.OpenAI.EmbeddingModel,
			TTL:       time.Duration(cfg.EmbeddingCache.TTLHours) * time.Hour,
		}, metrics.EmbeddingCacheTotal, logger)
	}
	return embeddinguc.NewAuditedEmbedder(embedder, cfg.OpenAI.EmbeddingModel, activity, logger)
}

func searchTargets(targets []config.TargetConfig) []domain.SearchTarget {
	out := make([]domain.SearchTarget, len(targets))
	for i, t := range targets {
		out[i] = domain.SearchTarget{
			Field:      t.Field,
			Index:      t.Index,
			Candidates: t.Candidates,
			Limit:      t.Limit,
		}
	}
	return out
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
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

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

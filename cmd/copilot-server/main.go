// cmd/copilot-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"cctns-copilot/internal/common/config"
	"cctns-copilot/internal/common/database"
	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/common/observability"
	"cctns-copilot/internal/pipeline"
	"cctns-copilot/internal/pipeline/execute"
	"cctns-copilot/internal/pipeline/extract"
	"cctns-copilot/internal/pipeline/format"
	"cctns-copilot/internal/pipeline/normalize"
	"cctns-copilot/internal/pipeline/synthesize"
	"cctns-copilot/internal/pipeline/validate"
	"cctns-copilot/internal/schema"
	"cctns-copilot/internal/server"
	"cctns-copilot/internal/speech"
	"cctns-copilot/internal/terminology"
	"cctns-copilot/internal/translate"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting copilot server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Load schema catalog (fatal on any inconsistency) ---
	catalog, err := schema.Load(cfg.Catalog.SchemaPath)
	if err != nil {
		zapLog.Fatal("schema catalog invalid", zap.Error(err))
	}
	zapLog.Info("Schema catalog loaded", zap.Int("tables", len(catalog.Tables())))

	// --- Load terminology vocabulary ---
	vocab, err := terminology.Load(cfg.Catalog.TerminologyPath)
	if err != nil {
		zapLog.Fatal("terminology vocabulary invalid", zap.Error(err))
	}

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry (cache only; the server runs without it) ---
	var redisClient *database.RedisClient
	if cfg.Cache.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Warn("redis unavailable, running without result cache", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Init generative model client ---
	var chatClient synthesize.ChatCompleter
	if cfg.APIs.GenAI.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIs.GenAI.APIKey)
		if cfg.APIs.GenAI.BaseURL != "" {
			clientCfg.BaseURL = cfg.APIs.GenAI.BaseURL
		}
		chatClient = openai.NewClientWithConfig(clientCfg)
		zapLog.Info("Generative synthesis enabled", zap.String("model", cfg.Models.NL2SQL))
	} else {
		zapLog.Info("No GenAI key configured, rule-based synthesis only")
	}

	// --- Build pipeline stages ---
	p := pipeline.New(
		normalize.NewHandler(&normalize.Config{
			DefaultLanguage: cfg.Pipeline.DefaultLanguage,
		}, vocab, log),
		extract.NewHandler(&extract.Config{
			IntentThreshold: cfg.Pipeline.IntentConfidenceThreshold,
			EntityThreshold: cfg.Pipeline.EntityConfidenceThreshold,
		}, vocab, log),
		synthesize.NewHandler(&synthesize.Config{
			Generative:   chatClient != nil,
			Model:        cfg.Models.NL2SQL,
			MaxTokens:    512,
			Timeout:      config.GetDuration(cfg.APIs.GenAI.Timeout),
			MaxRetries:   cfg.Executor.MaxRetries,
			DefaultLimit: cfg.Safety.DefaultLimit,
		}, chatClient, catalog, log),
		validate.NewHandler(&validate.Config{
			BlockedKeywords: cfg.Safety.BlockedKeywords,
			MaxQueryLength:  cfg.Safety.MaxQueryLength,
			DefaultLimit:    cfg.Safety.DefaultLimit,
			MaxLimit:        cfg.Safety.MaxLimit,
			MaxJoins:        cfg.Safety.MaxJoins,
			MaxSubqueries:   cfg.Safety.MaxSubqueries,
		}, catalog, log),
		execute.NewHandler(&execute.Config{
			Timeout:       time.Duration(cfg.Executor.TimeoutSeconds) * time.Second,
			MaxResultRows: cfg.Executor.MaxResultRows,
			MaxRetries:    cfg.Executor.MaxRetries,
			CacheEnabled:  cfg.Cache.Enabled && redisClient != nil,
			CacheTTL:      time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
		}, pg.GetDB(), redisClient, log),
		format.NewHandler(&format.Config{
			DefaultLocale: cfg.Pipeline.QueryLanguage,
		}, log),
		log,
	)

	// --- Collaborator adapters ---
	transcriber := speech.NewHTTPTranscriber(&speech.Config{
		BaseURL:             cfg.APIs.Speech.BaseURL,
		PrimaryModel:        cfg.Models.STTPrimary,
		FallbackModel:       cfg.Models.STTFallback,
		ConfidenceThreshold: cfg.Pipeline.STTConfidenceThreshold,
		Timeout:             config.GetDuration(cfg.APIs.Speech.Timeout),
		MaxRetries:          cfg.APIs.Speech.MaxRetries,
	}, log)

	translator := translate.NewHTTPTranslator(&translate.Config{
		BaseURL:    cfg.APIs.Translate.BaseURL,
		Timeout:    config.GetDuration(cfg.APIs.Translate.Timeout),
		MaxRetries: cfg.APIs.Translate.MaxRetries,
	}, log)

	router := server.Router(server.Options{
		Pipeline:      p,
		Transcriber:   transcriber,
		Translator:    translator,
		Logger:        log,
		QueryLanguage: cfg.Pipeline.QueryLanguage,
		STTThreshold:  cfg.Pipeline.STTConfidenceThreshold,
		HealthCheck: func() map[string]string {
			deps := map[string]string{"postgres": "ok"}
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := pg.Ping(pingCtx); err != nil {
				deps["postgres"] = err.Error()
			}
			if redisClient != nil {
				deps["redis"] = "ok"
				if err := redisClient.Ping(pingCtx); err != nil {
					deps["redis"] = err.Error()
				}
			}
			return deps
		},
	})

	// --- Metrics and pprof endpoint ---
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/debug/pprof/", http.DefaultServeMux)
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		zapLog.Info("Metrics endpoint listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()

	// --- Main HTTP server with graceful shutdown ---
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Server stopped")
}

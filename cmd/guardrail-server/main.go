package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/api"
	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/chread"
	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/config"
	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/guardrail"
	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/storage"
	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/store"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Logger
	logger := mustBuildLogger(envOrDefault("GUARDRAIL_LOG_LEVEL", "info"))
	defer logger.Sync() //nolint:errcheck // best-effort flush

	// Config from env
	httpPort := envOrDefault("GUARDRAIL_HTTP_PORT", "8080")
	configPath := os.Getenv("GUARDRAIL_CONFIG")
	clickhouseDSN := os.Getenv("CLICKHOUSE_DSN")
	postgresDSN := os.Getenv("POSTGRES_DSN")
	cacheTTL := envOrDefaultInt("GUARDRAIL_AUTH_CACHE_TTL_S", 30)

	logger.Info("starting guardrail server",
		zap.String("http_port", httpPort),
		zap.String("config_path", configPath),
	)

	// Guardrail: optional YAML config layers custom rules, tuning, and the
	// base policy over the built-in defaults.
	var (
		baseRules []guardrail.RuleDef
		catalog   *guardrail.Catalog
		tuning    *guardrail.TuningTable
		policy    *guardrail.Policy
	)
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			logger.Fatal("failed to load config", zap.Error(err))
		}
		baseRules = cfg.BuildRules(logger)
		catalog = guardrail.NewCatalog(baseRules, logger)
		tuning = cfg.BuildTuningTable()
		policy = cfg.BuildPolicy()
		logger.Info("config loaded", zap.Int("catalog_rules", catalog.Len()))
	} else {
		baseRules = guardrail.DefaultRules()
		catalog = guardrail.DefaultCatalog()
		tuning = guardrail.DefaultTuningTable()
		policy = guardrail.DefaultPolicy()
	}
	guard := guardrail.New(catalog, tuning, policy, logger)

	// Scan event storage: ClickHouse when configured, LogWriter fallback
	var writer storage.EventWriter
	if clickhouseDSN != "" {
		chWriter, err := storage.NewClickHouseWriter(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log writer",
				zap.Error(err),
			)
			writer = storage.NewLogWriter(logger)
		} else {
			writer = chWriter
			logger.Info("clickhouse writer connected")
		}
	} else {
		writer = storage.NewLogWriter(logger)
		logger.Info("no CLICKHOUSE_DSN set, using log writer")
	}
	defer writer.Close()

	// Postgres pool (required for the HTTP API)
	var pgStore *store.Store
	if postgresDSN != "" {
		db, err := sql.Open("pgx", postgresDSN)
		if err != nil {
			logger.Fatal("failed to open postgres", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(context.Background()); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}
		pgStore = store.NewStore(db)
		logger.Info("postgres connected")
	} else {
		logger.Fatal("POSTGRES_DSN is required")
	}

	// ClickHouse reader (for scan history and analytics endpoints)
	var chReader *chread.Reader
	if clickhouseDSN != "" {
		var err error
		chReader, err = chread.NewReader(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse reader connection failed", zap.Error(err))
		} else {
			defer func() { _ = chReader.Close() }()
			logger.Info("clickhouse reader connected")
		}
	}

	deps := &api.Dependencies{
		Store:     pgStore,
		Guard:     guard,
		BaseRules: baseRules,
		Tuning:    tuning,
		Writer:    writer,
		Reader:    chReader,
		Logger:    logger,
		CacheTTL:  time.Duration(cacheTTL) * time.Second,
	}
	httpServer := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("guardrail server stopped")
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

package cli

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimiro1/banner"
	"github.com/edublink/edublink/internal/api"
	"github.com/edublink/edublink/internal/config"
	"github.com/edublink/edublink/internal/dispatch"
	"github.com/edublink/edublink/internal/healthcheck"
	"github.com/edublink/edublink/internal/llm"
	"github.com/edublink/edublink/internal/prompts"
	"github.com/edublink/edublink/internal/ratelimit"
	"github.com/edublink/edublink/internal/storage"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP API and, when present, the front-end.

The front-end is not bundled with this binary. Point STATIC_DIR at the
directory holding the built front-end (index.html, app.js, ...); it
defaults to ./public. When that directory is missing the server logs a
warning and serves only the /api routes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, *configPath)
		},
	}
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Logger
	logger := mustBuildLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	keyOK := cfg.APIKeyConfigured()
	printBanner(cmd.OutOrStdout(), cfg, keyOK)

	logger.Info("starting edublink server",
		zap.Int("port", cfg.Port),
		zap.String("model", cfg.OpenAIModel),
		zap.Bool("api_key_configured", keyOK),
		zap.Int("rate_limit_max", cfg.RateLimitMax),
		zap.Duration("rate_limit_window", cfg.RateLimitWindow),
	)
	if !keyOK {
		logger.Warn("OPENAI_API_KEY is missing or too short, generate requests will fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rate limit store: Postgres when configured, otherwise in-process
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.PostgresDSN != "" {
		db, err := openPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Warn("postgres unavailable, using in-memory rate limits", zap.Error(err))
		} else {
			defer func() { _ = db.Close() }()
			store = ratelimit.NewPostgresStore(db)
			logger.Info("postgres rate limit store connected")
		}
	}
	limiter := ratelimit.NewLimiter(store, ratelimit.Policy{
		Limit:  cfg.RateLimitMax,
		Window: cfg.RateLimitWindow,
	}, nil, logger)
	go limiter.RunSweeper(ctx, cfg.RateLimitSweepInterval)

	// Events: ClickHouse or LogWriter fallback
	var writer storage.EventWriter
	if cfg.ClickHouseDSN != "" {
		chWriter, err := storage.NewClickHouseWriter(cfg.ClickHouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log writer", zap.Error(err))
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

	completer := llm.NewOpenAIClient(llm.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.OpenAITimeout,
	}, logger)

	dispatcher := dispatch.New(dispatch.Dependencies{
		Limiter:       limiter,
		Registry:      prompts.Default(),
		Completer:     completer,
		Events:        writer,
		Logger:        logger,
		Model:         completer.Model(),
		KeyConfigured: keyOK,
	})

	staticDir := cfg.StaticDir
	if fi, err := os.Stat(staticDir); err != nil || !fi.IsDir() {
		logger.Warn("static directory not found, front-end disabled; set STATIC_DIR to the front-end build",
			zap.String("static_dir", staticDir))
		staticDir = ""
	}

	httpServer := &http.Server{
		Addr: cfg.ListenAddr(),
		Handler: api.NewRouter(&api.Dependencies{
			Dispatcher:    dispatcher,
			Model:         completer.Model(),
			KeyConfigured: keyOK,
			StaticDir:     staticDir,
			TrustProxy:    cfg.TrustProxy,
			Logger:        logger,
		}),
		ReadTimeout: 10 * time.Second,
		// Must outlast a full completion call.
		WriteTimeout: cfg.OpenAITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	serveErr := make(chan error, 2)

	// Optional gRPC health endpoint
	var grpcHealth *healthcheck.Server
	if cfg.GRPCHealthPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCHealthPort))
		if err != nil {
			return fmt.Errorf("grpc health listen: %w", err)
		}
		grpcHealth = healthcheck.New(keyOK, logger)
		go func() {
			if err := grpcHealth.Serve(lis); err != nil {
				serveErr <- fmt.Errorf("grpc health server: %w", err)
			}
		}()
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Block until shutdown signal or a server failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-serveErr:
		logger.Error("server failed, shutting down", zap.Error(runErr))
	}

	// Graceful shutdown
	if grpcHealth != nil {
		grpcHealth.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("edublink server stopped")
	return runErr
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ratelimit.NewPostgresStore(db).EnsureSchema(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const bannerTemplate = `{{ .Title "EduBlink" "" 0 }}
EduBlink Server: http://localhost:%d
Model:           %s
API Key:         %s

`

func printBanner(out io.Writer, cfg config.Config, keyOK bool) {
	status := "OK"
	if !keyOK {
		status = "NOT SET"
	}
	tpl := fmt.Sprintf(bannerTemplate, cfg.Port, cfg.OpenAIModel, status)
	banner.Init(out, true, false, bytes.NewBufferString(tpl))
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

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/carbocredit/backend/internal/analytics"
	"github.com/carbocredit/backend/internal/auth"
	"github.com/carbocredit/backend/internal/config"
	"github.com/carbocredit/backend/internal/dashboard"
	"github.com/carbocredit/backend/internal/emissions"
	"github.com/carbocredit/backend/internal/insights"
	"github.com/carbocredit/backend/internal/ledger"
	"github.com/carbocredit/backend/internal/marketplace"
	"github.com/carbocredit/backend/internal/notary"
	"github.com/carbocredit/backend/internal/router"
	"github.com/carbocredit/backend/internal/verification"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	if err := applyMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		slog.Error("Schema migrations failed", "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied")

	// Chain notary mirroring. A missing endpoint leaves the worker running
	// as a no-op so emission and mint flows never depend on the chain.
	notaryRepo := notary.NewRepository(pool)
	var notaryClient notary.Client
	if cfg.NotaryEndpoint != "" {
		notaryClient = notary.NewHTTPClient(cfg.NotaryEndpoint, cfg.NotaryTimeout)
		slog.Info("Chain notary mirroring enabled", "endpoint", cfg.NotaryEndpoint)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, notary.NewMirrorWorker(notaryClient, notaryRepo, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}
	enqueueMirror := func(ctx context.Context, tx pgx.Tx, args notary.MirrorJobArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)

	// Ledger
	ledgerRepo := ledger.NewRepository(pool)
	ledgerSvc := ledger.NewService(ledgerRepo, ledgerRepo)
	ledgerHandler := ledger.NewHandler(pool, ledgerSvc, ledgerRepo, enqueueMirror, logger)

	// Emissions
	emissionsRepo := emissions.NewRepository(pool)
	emissionsHandler := emissions.NewHandler(pool, emissionsRepo, enqueueMirror, logger)

	// Verification
	verificationRepo := verification.NewRepository(pool)
	verificationSvc := verification.NewService(verificationRepo, ledgerSvc, enqueueMirror)
	verificationHandler := verification.NewHandler(pool, verificationSvc, verificationRepo, logger)

	// Marketplace
	marketRepo := marketplace.NewRepository(pool)
	marketSvc := marketplace.NewService(marketRepo, ledgerRepo, ledgerSvc)
	marketHandler := marketplace.NewHandler(pool, marketSvc, marketRepo, logger)

	// Analytics, dashboard, insights
	analyticsRepo := analytics.NewRepository(pool)
	analyticsHandler := analytics.NewHandler(analyticsRepo, logger)
	dashHandler := dashboard.NewHandler(emissionsRepo, ledgerRepo, marketRepo, logger)
	insightsHandler := insights.NewHandler(insights.NewService(emissionsRepo), logger)

	apiRouter := router.New(router.Handlers{
		Auth:         authHandler,
		Emissions:    emissionsHandler,
		Verification: verificationHandler,
		Ledger:       ledgerHandler,
		Marketplace:  marketHandler,
		Analytics:    analyticsHandler,
		Dashboard:    dashHandler,
		Insights:     insightsHandler,
	}, authRepo, authSvc)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Wallet-Address"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (processes notary mirror jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("Shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if err := riverClient.Stop(drainCtx); err != nil {
		slog.Error("River shutdown failed", "error", err)
	}
}

// applyMigrations runs every .sql file in dir in lexical order. Statements
// use IF NOT EXISTS so reruns are safe.
func applyMigrations(ctx context.Context, pool *pgxpool.Pool, dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(paths)
	for _, path := range paths {
		sql, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return err
		}
		slog.Info("Applied migration", "file", filepath.Base(path))
	}
	return nil
}

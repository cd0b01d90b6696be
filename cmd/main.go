// oppradar-ingest-service
//
// Email-driven opportunity radar. Pages a labeled Gmail mailbox on a cron,
// classifies each email into job/business opportunity candidates, scores them
// against the user's preferences, deduplicates and upserts them by canonical
// key, deep-enriches promising ones from their source page, and dispatches
// threshold alerts plus a daily digest.
//
// HTTP API: health, manual ingestion trigger, opportunity listing, feedback,
// settings, and the Gmail OAuth handshake.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"oppradar/ingest-service/internal/api"
	"oppradar/ingest-service/internal/classify"
	"oppradar/ingest-service/internal/config"
	"oppradar/ingest-service/internal/db"
	"oppradar/ingest-service/internal/feedback"
	"oppradar/ingest-service/internal/gmail"
	"oppradar/ingest-service/internal/ingest"
	"oppradar/ingest-service/internal/logger"
	"oppradar/ingest-service/internal/notify"
	"oppradar/ingest-service/internal/scheduler"
	"oppradar/ingest-service/internal/scraper"
	"oppradar/ingest-service/internal/store"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("postgres connected")

	// ── Redis ────────────────────────────────────────────────────────────────
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()
	log.Info("redis connected")

	// ── Pipeline wiring ──────────────────────────────────────────────────────
	st := store.New(pool)

	var extractor classify.Extractor
	if cfg.GeminiAPIKey != "" {
		extractor, err = classify.NewGemini(ctx, classify.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		}, log)
		if err != nil {
			log.Fatal("gemini client", zap.Error(err))
		}
		log.Info("extraction via Gemini", zap.String("model", cfg.GeminiModel))
	} else {
		extractor = classify.NewHeuristic()
		log.Info("no Gemini API key, extraction falls back to keyword heuristics")
	}

	mailbox := gmail.NewClient(gmail.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		RedirectURL:  cfg.GmailRedirectURI,
		Label:        cfg.GmailLabel,
	}, st, log)

	notifier := notify.New(rdb, log)
	orch := ingest.New(mailbox, extractor, st, scraper.New(), notifier,
		ingest.NewRedisMarkers(rdb), log)
	fb := feedback.NewService(st, log)

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched := scheduler.New(orch, cfg.IngestIntervalMinutes, cfg.IngestLimit, cfg.DigestCronSpec, log)
	if err := sched.Start(ctx); err != nil {
		log.Fatal("scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	api.NewHandler(orch, st, fb, mailbox, log).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // manual ingestion runs are synchronous
	}

	go func() {
		log.Info("listening", zap.String("version", version), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("stopped")
}

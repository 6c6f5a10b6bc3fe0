package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	emailPkg "teammood/internal/adapters/email"
	web "teammood/internal/adapters/http"
	"teammood/internal/adapters/storage"
	accountStore "teammood/internal/adapters/storage/account"
	moodStore "teammood/internal/adapters/storage/mood"
	outboxStorePkg "teammood/internal/adapters/storage/outbox"
	preferenceStore "teammood/internal/adapters/storage/preference"
	teamStore "teammood/internal/adapters/storage/team"
	"teammood/internal/adapters/token"
	"teammood/internal/application/orchestrators"
	"teammood/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	level := slog.LevelDebug
	if cfg.IsProduction() {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// WAL mode, foreign keys and a busy timeout on every connection
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	timedDB := storage.NewTimedDB(db, time.Duration(cfg.SlowQueryMs)*time.Millisecond)

	stores := &web.Stores{
		AccountStore:    accountStore.NewSQLiteStore(timedDB),
		TeamStore:       teamStore.NewSQLiteStore(timedDB),
		MoodStore:       moodStore.NewSQLiteStore(timedDB),
		PreferenceStore: preferenceStore.NewSQLiteStore(timedDB),
		OutboxStore:     outboxStorePkg.NewSQLiteStore(timedDB),
	}

	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.ResendFrom)
		slog.Info("email_sender_configured", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_sender_configured", "provider", "noop", "detail", "TEAMMOOD_RESEND_KEY is not set; reset emails will not be delivered")
		} else {
			slog.Info("email_sender_configured", "provider", "noop")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retryCfg := orchestrators.DefaultOutboxRetryConfig()
	retryCfg.Interval = cfg.OutboxEvery
	stopRetry := orchestrators.StartOutboxRetryScheduler(ctx, retryCfg, orchestrators.OutboxRetryDeps{
		OutboxStore: stores.OutboxStore,
		EmailSender: sender,
		Now:         time.Now,
	})
	defer stopRetry()

	handler := web.NewMux(stores, web.Options{
		CSRFKey:     cfg.CSRFKey,
		Secure:      cfg.IsProduction(),
		RateLimit:   cfg.RateLimit,
		SlowRequest: time.Duration(cfg.SlowRequestMs) * time.Millisecond,
		TrendLimit:  cfg.TrendLimit,
		BaseURL:     cfg.BaseURL,
		ResetTokens: token.NewResetSigner(cfg.ResetSecret, cfg.ResetTTL, nil),
		ResetTTL:    cfg.ResetTTL,
		EmailSender: sender,
		Health:      timedDB,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server_shutdown_failed", "error", err)
		}
	}()

	slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env, "schema", storage.LatestSchemaVersion())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
	slog.Info("server_stopped")
}

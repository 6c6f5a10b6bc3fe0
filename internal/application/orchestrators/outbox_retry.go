package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"teammood/internal/adapters/email"
	"teammood/internal/domain/outbox"
)

// OutboxStoreForRetry defines the store interface needed by OutboxRetry.
type OutboxStoreForRetry interface {
	ListPending(ctx context.Context, limit int) ([]outbox.Entry, error)
	Save(ctx context.Context, e outbox.Entry) error
}

// OutboxRetryDeps provides the dependencies for retrying outbox entries.
type OutboxRetryDeps struct {
	OutboxStore OutboxStoreForRetry
	EmailSender email.Sender
	Now         func() time.Time
}

// OutboxRetryConfig holds configuration for the retry scheduler.
type OutboxRetryConfig struct {
	Interval  time.Duration // How often to run retries
	BaseDelay time.Duration // Backoff after the first failed attempt
	MaxDelay  time.Duration // Backoff ceiling
	BatchSize int
	Enabled   bool
}

// DefaultOutboxRetryConfig returns sensible defaults.
func DefaultOutboxRetryConfig() OutboxRetryConfig {
	return OutboxRetryConfig{
		Interval:  time.Minute,
		BaseDelay: time.Minute,
		MaxDelay:  time.Hour,
		BatchSize: 100,
		Enabled:   true,
	}
}

// OutboxRetryResult counts what one pass did.
type OutboxRetryResult struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
}

// ExecuteOutboxRetry delivers pending and retrying outbox entries whose backoff has elapsed.
// PRE: Deps are valid and store is connected
// POST: every due entry was attempted once and saved with its new state
func ExecuteOutboxRetry(ctx context.Context, cfg OutboxRetryConfig, deps OutboxRetryDeps) (OutboxRetryResult, error) {
	var res OutboxRetryResult
	entries, err := deps.OutboxStore.ListPending(ctx, cfg.BatchSize)
	if err != nil {
		return res, fmt.Errorf("failed to list retryable outbox entries: %w", err)
	}
	if len(entries) == 0 {
		return res, nil
	}

	slog.Info("outbox_retry_start", "count", len(entries))
	now := deps.Now()

	for _, entry := range entries {
		if !entry.Due(now, cfg.BaseDelay, cfg.MaxDelay) {
			res.Skipped++
			slog.Debug("outbox_retry_skipped_backoff", "entry_id", entry.ID, "attempts", entry.Attempts)
			continue
		}
		res.Processed++
		entry.MarkAttempt(now)

		var extID string
		var err error
		switch entry.ActionType {
		case outbox.ActionTypePasswordReset:
			extID, err = deliverEmail(ctx, deps.EmailSender, entry)
		default:
			err = fmt.Errorf("unknown action type: %s", entry.ActionType)
			entry.MarkAbandoned()
		}

		if err != nil {
			entry.MarkFailed(err)
			res.Failed++
			slog.Error("outbox_retry_failed", "entry_id", entry.ID, "action", entry.ActionType, "attempt", entry.Attempts, "status", entry.Status, "error", err)
		} else {
			entry.MarkSuccess(extID)
			res.Succeeded++
			slog.Info("outbox_retry_succeeded", "entry_id", entry.ID, "action", entry.ActionType, "attempt", entry.Attempts)
		}

		if saveErr := deps.OutboxStore.Save(ctx, entry); saveErr != nil {
			slog.Error("outbox_retry_save_failed", "entry_id", entry.ID, "error", saveErr)
		}
	}

	slog.Info("outbox_retry_complete", "processed", res.Processed, "succeeded", res.Succeeded, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

// deliverEmail sends the email stored in entry's payload.
// PRE: entry payload is an outbox.EmailPayload
// POST: returns the provider message ID or an error
func deliverEmail(ctx context.Context, sender email.Sender, entry outbox.Entry) (string, error) {
	p, err := entry.Email()
	if err != nil {
		return "", fmt.Errorf("decode email payload: %w", err)
	}
	sent, err := sender.Send(ctx, email.SendRequest{
		To:      []string{p.To},
		Subject: p.Subject,
		HTML:    p.HTML,
	})
	if err != nil {
		return "", err
	}
	return sent.MessageID, nil
}

// StartOutboxRetryScheduler starts a background goroutine that periodically retries outbox entries.
// PRE: Context is valid, deps are initialized
// POST: Goroutine started, returns cancel function
func StartOutboxRetryScheduler(ctx context.Context, cfg OutboxRetryConfig, deps OutboxRetryDeps) func() {
	if !cfg.Enabled || cfg.Interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := ExecuteOutboxRetry(ctx, cfg, deps); err != nil {
					slog.Error("outbox_retry_scheduler_error", "error", err)
				}
			}
		}
	}()

	return cancel
}

package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"teammood/internal/adapters/email"
	"teammood/internal/adapters/token"
	"teammood/internal/domain/account"
	"teammood/internal/domain/outbox"
)

// ResetTokenIssuer signs reset links.
type ResetTokenIssuer interface {
	Issue(accountID, fingerprint string) (string, error)
}

// ResetTokenVerifier checks reset links.
type ResetTokenVerifier interface {
	Verify(raw string) (token.ResetClaims, error)
}

// OutboxStoreForEmail queues emails whose first delivery failed.
type OutboxStoreForEmail interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// AccountStoreForReset defines the store interface needed by the reset flow.
type AccountStoreForReset interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// ResetPasswordSubject is the subject line of the reset email.
const ResetPasswordSubject = "Reset your Team Mood password"

var resetEmailTmpl = template.Must(template.New("reset").Parse(
	`<p>Hi {{.Name}},</p>
<p>Someone asked to reset the password for your Team Mood account.
Use the link below within {{.TTL}} to choose a new one.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If you didn't ask for this you can ignore this email.</p>`))

// RequestPasswordResetInput carries input for RequestPasswordReset.
type RequestPasswordResetInput struct {
	Email string
}

// RequestPasswordResetDeps holds dependencies for RequestPasswordReset.
type RequestPasswordResetDeps struct {
	AccountStore AccountStoreForReset
	Tokens       ResetTokenIssuer
	EmailSender  email.Sender
	OutboxStore  OutboxStoreForEmail
	BaseURL      string
	TTL          time.Duration
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteRequestPasswordReset emails a signed reset link to the account owner.
// Unknown addresses succeed silently so the form does not reveal which emails exist.
// PRE: deps initialised
// POST: reset email sent, or queued in the outbox when delivery fails
func ExecuteRequestPasswordReset(ctx context.Context, input RequestPasswordResetInput, deps RequestPasswordResetDeps) error {
	addr := account.NormalizeEmail(input.Email)
	if addr == "" {
		return account.ErrEmptyEmail
	}

	acct, err := deps.AccountStore.GetByEmail(ctx, addr)
	if err != nil {
		slog.Info("auth_event", "event", "reset_requested", "email", addr, "reason", "not_found")
		return nil
	}

	raw, err := deps.Tokens.Issue(acct.ID, acct.PasswordFingerprint())
	if err != nil {
		return err
	}

	body, err := renderResetEmail(acct.Name(), resetLink(deps.BaseURL, raw), deps.TTL)
	if err != nil {
		return err
	}
	payload := outbox.EmailPayload{To: acct.Email, Subject: ResetPasswordSubject, HTML: body}

	res, sendErr := deps.EmailSender.Send(ctx, email.SendRequest{
		To:      []string{payload.To},
		Subject: payload.Subject,
		HTML:    payload.HTML,
	})
	if sendErr == nil {
		slog.Info("auth_event", "event", "reset_requested", "account_id", acct.ID, "message_id", res.MessageID)
		return nil
	}

	entry, err := outbox.NewEmailEntry(deps.GenerateID(), outbox.ActionTypePasswordReset, payload, deps.Now())
	if err != nil {
		return err
	}
	entry.ErrorMessage = sendErr.Error()
	if err := deps.OutboxStore.Save(ctx, entry); err != nil {
		return fmt.Errorf("queue reset email: %w", err)
	}
	slog.Warn("auth_event", "event", "reset_email_queued", "account_id", acct.ID, "outbox_id", entry.ID, "error", sendErr)
	return nil
}

func resetLink(baseURL, raw string) string {
	return strings.TrimRight(baseURL, "/") + "/reset-password?token=" + url.QueryEscape(raw)
}

func renderResetEmail(name, link string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	err := resetEmailTmpl.Execute(&buf, struct {
		Name string
		Link string
		TTL  string
	}{name, link, formatTTL(ttl)})
	return buf.String(), err
}

func formatTTL(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short while"
	case d%time.Hour == 0 && d/time.Hour == 1:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	default:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
}

// ResetPasswordInput carries input for ResetPassword.
type ResetPasswordInput struct {
	Token       string
	NewPassword string
}

// ResetPasswordDeps holds dependencies for ResetPassword.
type ResetPasswordDeps struct {
	AccountStore AccountStoreForReset
	Tokens       ResetTokenVerifier
}

// ErrResetLinkUsed is returned when the password changed after the link was issued.
var ErrResetLinkUsed = errors.New("reset link has already been used")

// ExecuteResetPassword sets a new password from a valid reset link.
// PRE: Token came from ExecuteRequestPasswordReset
// POST: password replaced, failed logins and lockout cleared; returns the account ID
// INVARIANT: a link works at most once; any password change invalidates it
func ExecuteResetPassword(ctx context.Context, input ResetPasswordInput, deps ResetPasswordDeps) (string, error) {
	claims, err := deps.Tokens.Verify(input.Token)
	if err != nil {
		return "", err
	}

	acct, err := deps.AccountStore.GetByID(ctx, claims.AccountID)
	if err != nil {
		return "", token.ErrInvalidToken
	}
	if acct.PasswordFingerprint() != claims.Fingerprint {
		return "", ErrResetLinkUsed
	}

	if err := acct.SetPassword(input.NewPassword); err != nil {
		return "", err
	}
	acct.ResetFailedLogins()
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return "", err
	}

	slog.Info("auth_event", "event", "password_reset", "account_id", acct.ID)
	return acct.ID, nil
}

package web

import (
	"context"
	"crypto/rand"
	"embed"
	"log/slog"
	"net/http"
	"time"

	"teammood/internal/adapters/email"
	"teammood/internal/adapters/http/middleware"
	"teammood/internal/adapters/http/static"
	"teammood/internal/adapters/storage"
	accountStore "teammood/internal/adapters/storage/account"
	moodStore "teammood/internal/adapters/storage/mood"
	outboxStore "teammood/internal/adapters/storage/outbox"
	preferenceStore "teammood/internal/adapters/storage/preference"
	teamStore "teammood/internal/adapters/storage/team"
	"teammood/internal/application/orchestrators"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore    accountStore.Store
	TeamStore       teamStore.Store
	MoodStore       moodStore.Store
	PreferenceStore preferenceStore.Store
	OutboxStore     outboxStore.Store
}

// ResetTokens issues and verifies password reset links.
type ResetTokens interface {
	orchestrators.ResetTokenIssuer
	orchestrators.ResetTokenVerifier
}

// DBHealth reports database liveness for /healthz.
type DBHealth interface {
	PingContext(ctx context.Context) error
	Stats() storage.QueryStats
}

// Options configures NewMux.
type Options struct {
	CSRFKey        []byte // 32 bytes; random per process when empty
	Secure         bool   // HTTPS deployment: Secure cookies and strict CSRF origin checks
	TrustedOrigins []string
	RateLimit      int // requests per second per IP; <= 0 uses RateLimitPerSecond
	SlowRequest    time.Duration
	TrendLimit     int
	BaseURL        string
	ResetTokens    ResetTokens
	ResetTTL       time.Duration
	EmailSender    email.Sender
	Health         DBHealth // optional
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Set by NewMux from Options.
var (
	emailSender email.Sender = email.NewNoopSender()
	resetTokens ResetTokens
	resetTTL    = time.Hour
	baseURL     = "http://localhost:8080"
	trendLimit  int
	dbHealth    DBHealth
)

// NewMux wires HTTP handlers for the app.
// PRE: s has every store set; o.ResetTokens is non-nil
// POST: returns the fully wrapped handler; package globals are replaced
func NewMux(s *Stores, o Options) http.Handler {
	stores = s
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = o.Secure
	if o.EmailSender != nil {
		emailSender = o.EmailSender
	}
	resetTokens = o.ResetTokens
	if o.ResetTTL > 0 {
		resetTTL = o.ResetTTL
	}
	if o.BaseURL != "" {
		baseURL = o.BaseURL
	}
	trendLimit = o.TrendLimit
	dbHealth = o.Health

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServerFS(static.FS)))
	registerRoutes(mux)

	csrfKey := o.CSRFKey
	if len(csrfKey) != 32 {
		csrfKey = randomKey()
	}

	rate := o.RateLimit
	if rate <= 0 {
		rate = RateLimitPerSecond
	}
	limiter := middleware.NewRateLimiter(rate, time.Second)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, o.Secure, o.TrustedOrigins),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(o.SlowRequest),
	)
}

// randomKey generates a per-process CSRF key for development.
func randomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("generate csrf key: " + err.Error())
	}
	slog.Warn("csrf_key_random", "detail", "sessions will not survive restart; set TEAMMOOD_CSRF_KEY")
	return key
}

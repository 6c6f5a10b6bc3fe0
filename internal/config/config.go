package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvProduction is the TEAMMOOD_ENV value that turns on strict checks.
const EnvProduction = "production"

// Config is the server configuration, read from the environment.
type Config struct {
	Addr          string        `env:"TEAMMOOD_ADDR" envDefault:":8080"`
	DBPath        string        `env:"TEAMMOOD_DB_PATH" envDefault:"teammood.db"`
	Env           string        `env:"TEAMMOOD_ENV" envDefault:"development"`
	CSRFKeyHex    string        `env:"TEAMMOOD_CSRF_KEY"`
	ResetSecret   string        `env:"TEAMMOOD_RESET_SECRET"`
	ResetTTL      time.Duration `env:"TEAMMOOD_RESET_TTL" envDefault:"1h"`
	ResendKey     string        `env:"TEAMMOOD_RESEND_KEY"`
	ResendFrom    string        `env:"TEAMMOOD_RESEND_FROM" envDefault:"Team Mood <noreply@teammood.local>"`
	BaseURL       string        `env:"TEAMMOOD_BASE_URL" envDefault:"http://localhost:8080"`
	SlowQueryMs   int           `env:"TEAMMOOD_SLOW_QUERY_MS" envDefault:"50"`
	SlowRequestMs int           `env:"TEAMMOOD_SLOW_REQUEST_MS" envDefault:"200"`
	TrendLimit    int           `env:"TEAMMOOD_TREND_LIMIT" envDefault:"30"`
	RateLimit     int           `env:"TEAMMOOD_RATE_LIMIT" envDefault:"10"`
	OutboxEvery   time.Duration `env:"TEAMMOOD_OUTBOX_INTERVAL" envDefault:"1m"`

	// Decoded by Load.
	CSRFKey []byte
}

// IsProduction reports whether the server runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads an optional .env file, then the process environment.
// PRE: none
// POST: returns a validated Config with CSRFKey and ResetSecret populated,
// or an error naming the first bad setting
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("config_event", "event", "dotenv_skipped", "error", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.resolveSecrets(); err != nil {
		return Config{}, err
	}
	if cfg.TrendLimit <= 0 {
		return Config{}, errors.New("TEAMMOOD_TREND_LIMIT must be positive")
	}
	if cfg.RateLimit <= 0 {
		return Config{}, errors.New("TEAMMOOD_RATE_LIMIT must be positive")
	}
	return cfg, nil
}

// resolveSecrets decodes the CSRF key and fills development fallbacks.
// In production both secrets must be set.
func (c *Config) resolveSecrets() error {
	if c.CSRFKeyHex != "" {
		key, err := hex.DecodeString(c.CSRFKeyHex)
		if err != nil || len(key) != 32 {
			return errors.New("TEAMMOOD_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		c.CSRFKey = key
	} else {
		if c.IsProduction() {
			return errors.New("TEAMMOOD_CSRF_KEY is required in production")
		}
		key, err := randomBytes(32)
		if err != nil {
			return fmt.Errorf("generate CSRF key: %w", err)
		}
		c.CSRFKey = key
		slog.Warn("config_event", "event", "random_csrf_key", "detail", "sessions won't survive restart")
	}

	if c.ResetSecret == "" {
		if c.IsProduction() {
			return errors.New("TEAMMOOD_RESET_SECRET is required in production")
		}
		secret, err := randomBytes(32)
		if err != nil {
			return fmt.Errorf("generate reset secret: %w", err)
		}
		c.ResetSecret = hex.EncodeToString(secret)
		slog.Warn("config_event", "event", "random_reset_secret", "detail", "reset links won't survive restart")
	}
	if len(c.ResetSecret) < 32 {
		return errors.New("TEAMMOOD_RESET_SECRET must be at least 32 characters")
	}
	return nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

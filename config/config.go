// config/config.go
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, read from the environment (and an optional .env file).
type Config struct {
	Port          string   `env:"PORT" envDefault:"5200"`
	DatabaseURL   string   `env:"DATABASE_URL,required,notEmpty"`
	GatewayToken  string   `env:"GAME_SERVICE_TOKEN"`
	AllowedOrigin []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// Calendar days (streaks, hunt boundaries) are evaluated in this zone.
	Timezone string `env:"TIMEZONE" envDefault:"UTC"`

	HuntResetInterval    time.Duration `env:"HUNT_RESET_INTERVAL" envDefault:"1m"`
	ExpireOverdueQuests  bool          `env:"EXPIRE_OVERDUE_QUESTS" envDefault:"false"`
	ApplyMissionBonusXP  bool          `env:"APPLY_MISSION_BONUS_XP" envDefault:"false"`
	AchievementAutoAward bool          `env:"ACHIEVEMENT_AUTO_AWARD" envDefault:"true"`
	SeedCatalog          bool          `env:"SEED_CATALOG" envDefault:"true"`

	// Requests per minute per user (or IP); 0 disables the limiter.
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"300"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Optional collaborators. Empty values disable the feature.
	SyncServiceURL string        `env:"SYNC_SERVICE_URL"`
	SyncInterval   time.Duration `env:"SYNC_INTERVAL" envDefault:"1m"`
	AuthServiceURL string        `env:"AUTH_SERVICE_URL"`

	// Local verification of stream tokens; takes precedence over AUTH_SERVICE_URL.
	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER"`

	R2 R2Config `envPrefix:"R2_"`
	// Icons land here when R2 is not configured.
	UploadDir string `env:"UPLOAD_DIR" envDefault:"uploads"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// R2Config holds Cloudflare R2 (S3 compatible) credentials for icon uploads.
type R2Config struct {
	AccountID       string `env:"ACCOUNT_ID"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	AccessKeySecret string `env:"ACCESS_KEY_SECRET"`
	Bucket          string `env:"BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

// Enabled reports whether enough R2 settings are present to build a client.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.AccessKeySecret != "" && r.Bucket != ""
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse parses the current environment without touching .env files.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if cfg.HuntResetInterval <= 0 {
		return nil, fmt.Errorf("HUNT_RESET_INTERVAL must be positive, got %s", cfg.HuntResetInterval)
	}
	return &cfg, nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Origins returns ALLOWED_ORIGINS in the comma-joined form fiber's CORS middleware expects.
func (c *Config) Origins() string {
	trimmed := make([]string, 0, len(c.AllowedOrigin))
	for _, o := range c.AllowedOrigin {
		if o = strings.TrimSpace(o); o != "" {
			trimmed = append(trimmed, o)
		}
	}
	return strings.Join(trimmed, ",")
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

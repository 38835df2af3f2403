// Package config は環境変数ベースのアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionMaxAge int

	// Lifecycle
	RetentionDays   int
	WarningDays     int
	CleanupEnabled  bool
	NotifyEnabled   bool
	CleanupInterval time.Duration
	NotifyInterval  time.Duration

	// Demo seed
	SeedHorizonDays int

	// Mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	AdminEmail   string

	// Rate Limit（req/min単位）
	RateLimitGeneral  int
	RateLimitRegister int

	// Instance check
	InstanceCheckTimeout time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.RetentionDays = getEnvInt("RETENTION_DAYS", 30)
	cfg.WarningDays = getEnvInt("WARNING_DAYS", 3)
	cfg.CleanupEnabled = getEnvBool("CLEANUP_ENABLED", true)
	cfg.NotifyEnabled = getEnvBool("NOTIFY_ENABLED", true)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 6*time.Hour)
	cfg.NotifyInterval = getEnvDuration("NOTIFY_INTERVAL", 24*time.Hour)
	cfg.SeedHorizonDays = getEnvInt("SEED_HORIZON_DAYS", 90)
	cfg.SMTPHost = getEnvString("SMTP_HOST", "")
	cfg.SMTPPort = getEnvInt("SMTP_PORT", 587)
	cfg.SMTPUsername = getEnvString("SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnvString("SMTP_PASSWORD", "")
	cfg.MailFrom = getEnvString("MAIL_FROM", "noreply@demostand.example")
	cfg.AdminEmail = getEnvString("ADMIN_EMAIL", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitRegister = getEnvInt("RATE_LIMIT_REGISTER", 5)
	cfg.InstanceCheckTimeout = getEnvDuration("INSTANCE_CHECK_TIMEOUT", 10*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	// ライフサイクル設定の整合性チェック
	if cfg.RetentionDays <= 0 {
		return nil, fmt.Errorf("RETENTION_DAYS must be positive, got %d", cfg.RetentionDays)
	}
	if cfg.WarningDays < 0 || cfg.WarningDays >= cfg.RetentionDays {
		return nil, fmt.Errorf("WARNING_DAYS must be in [0, RETENTION_DAYS), got %d", cfg.WarningDays)
	}

	return cfg, nil
}

// MailConfigured はSMTPの送信設定が揃っているかを返す。
// 未設定の場合、メール送信はログのみのno-opになる。
func (c *Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.MailFrom != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

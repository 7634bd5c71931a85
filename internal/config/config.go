package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Calendar Provider
	ServiceAccountKey string // サービスアカウントJSON（生またはBase64）
	CalendarID        string
	ProviderTimeout   time.Duration

	// Schedule
	SlotDuration      time.Duration
	ScheduleStartHour int
	ScheduleEndHour   int
	ScheduleTimezone  string

	// Rate Limit
	RateLimitGeneral int
	RateLimitBooking int

	// Server
	ServerPort  string
	MetricsPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string

	// Mail（予約確認メール。未設定の場合はメール送信を行わない）
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.ServiceAccountKey = os.Getenv("GOOGLE_SERVICE_ACCOUNT_KEY")
	if cfg.ServiceAccountKey == "" {
		missing = append(missing, "GOOGLE_SERVICE_ACCOUNT_KEY")
	}

	cfg.CalendarID = os.Getenv("CALENDAR_ID")
	if cfg.CalendarID == "" {
		missing = append(missing, "CALENDAR_ID")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second)
	cfg.SlotDuration = getEnvDuration("SLOT_DURATION", 30*time.Minute)
	cfg.ScheduleStartHour = getEnvInt("SCHEDULE_START_HOUR", 9)
	cfg.ScheduleEndHour = getEnvInt("SCHEDULE_END_HOUR", 17)
	cfg.ScheduleTimezone = getEnvString("SCHEDULE_TIMEZONE", "UTC")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitBooking = getEnvInt("RATE_LIMIT_BOOKING", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	// Mail (all-or-nothing: 一部のみ設定されている場合はエラー)
	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = getEnvString("SMTP_PORT", "587")
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASS")
	cfg.MailFrom = os.Getenv("MAIL_FROM")
	if cfg.SMTPHost != "" && cfg.MailFrom == "" {
		return nil, fmt.Errorf("MAIL_FROM is required when SMTP_HOST is set")
	}

	if err := validateSchedule(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MailEnabled は予約確認メール送信が有効かどうかを返す。
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// validateSchedule はスケジュール関連の設定値の整合性を検証する。
func validateSchedule(cfg *Config) error {
	if cfg.ScheduleStartHour < 0 || cfg.ScheduleStartHour > 23 {
		return fmt.Errorf("SCHEDULE_START_HOUR must be in range 0-23: %d", cfg.ScheduleStartHour)
	}
	if cfg.ScheduleEndHour < 0 || cfg.ScheduleEndHour > 23 {
		return fmt.Errorf("SCHEDULE_END_HOUR must be in range 0-23: %d", cfg.ScheduleEndHour)
	}
	if cfg.ScheduleStartHour > cfg.ScheduleEndHour {
		return fmt.Errorf("SCHEDULE_START_HOUR (%d) must not be after SCHEDULE_END_HOUR (%d)",
			cfg.ScheduleStartHour, cfg.ScheduleEndHour)
	}
	if cfg.SlotDuration <= 0 {
		return fmt.Errorf("SLOT_DURATION must be positive: %v", cfg.SlotDuration)
	}
	if _, err := time.LoadLocation(cfg.ScheduleTimezone); err != nil {
		return fmt.Errorf("invalid SCHEDULE_TIMEZONE %q: %w", cfg.ScheduleTimezone, err)
	}
	return nil
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

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
	// Database
	DatabaseURL string

	// Credentials
	TelegramBotToken string
	MarketAPIToken   string

	// Marketplace
	MarketBaseURL     string
	MarketItemBaseURL string
	FetchTimeout      time.Duration
	FetchMaxSize      int64

	// Monitor
	CheckInterval         time.Duration
	CleanupInterval       time.Duration
	SeenRetentionDays     int
	CategoryDelay         time.Duration
	NotifyDelay           time.Duration
	SubscriberDelay       time.Duration
	MaxDealsPerSubscriber int
	PreviewListingLimit   int

	// Scoring
	ScoringConfigPath string

	// Server
	ServerPort string

	// Logging
	LogLevel string
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

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if cfg.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}

	cfg.MarketAPIToken = os.Getenv("MARKET_API_TOKEN")
	if cfg.MarketAPIToken == "" {
		missing = append(missing, "MARKET_API_TOKEN")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.MarketBaseURL = getEnvString("MARKET_BASE_URL", "https://prod-api.lzt.market")
	cfg.MarketItemBaseURL = getEnvString("MARKET_ITEM_BASE_URL", "https://lzt.market")
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 15*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.CheckInterval = time.Duration(getEnvInt("CHECK_INTERVAL_MINUTES", 5)) * time.Minute
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour)
	cfg.SeenRetentionDays = getEnvInt("SEEN_RETENTION_DAYS", 7)
	cfg.CategoryDelay = getEnvDuration("CATEGORY_DELAY", 500*time.Millisecond)
	cfg.NotifyDelay = getEnvDuration("NOTIFY_DELAY", 500*time.Millisecond)
	cfg.SubscriberDelay = getEnvDuration("SUBSCRIBER_DELAY", time.Second)
	cfg.MaxDealsPerSubscriber = getEnvInt("MAX_DEALS_PER_SUBSCRIBER", 5)
	cfg.PreviewListingLimit = getEnvInt("PREVIEW_LISTING_LIMIT", 10)
	cfg.ScoringConfigPath = getEnvString("SCORING_CONFIG", "")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
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
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil || i <= 0 {
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

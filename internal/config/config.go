// Package config はアプリケーション設定の読み込みを提供する。
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
	// Backend
	BackendURL     string
	AdminSecretKey string
	AgentURL       string

	// Database（チャットトランスクリプト保存用）
	DatabaseURL string

	// Session
	SessionSecret string
	SessionCodec  string // "base64"（デフォルト）または "signed"
	SessionMaxAge time.Duration

	// HTTPクライアント（リトライ）
	ClientTimeout      time.Duration
	AgentTimeout       time.Duration
	ClientRetries      int
	ClientBaseDelay    time.Duration
	ClientMaxBackoff   time.Duration

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitChat    int

	// Chat
	ChatRetentionDays int

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

	cfg.BackendURL = strings.TrimSuffix(os.Getenv("BACKEND_URL"), "/")
	if cfg.BackendURL == "" {
		missing = append(missing, "BACKEND_URL")
	}

	cfg.AdminSecretKey = os.Getenv("ADMIN_SECRET_KEY")
	if cfg.AdminSecretKey == "" {
		missing = append(missing, "ADMIN_SECRET_KEY")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AgentURL = strings.TrimSuffix(getEnvString("AGENT_URL", cfg.BackendURL), "/")
	cfg.SessionCodec = getEnvString("SESSION_CODEC", "base64")
	cfg.SessionMaxAge = getEnvDuration("SESSION_MAX_AGE", 7*24*time.Hour)
	cfg.ClientTimeout = getEnvDuration("CLIENT_TIMEOUT", 30*time.Second)
	cfg.AgentTimeout = getEnvDuration("AGENT_TIMEOUT", 60*time.Second)
	cfg.ClientRetries = getEnvInt("CLIENT_RETRIES", 3)
	cfg.ClientBaseDelay = getEnvDuration("CLIENT_BASE_DELAY", 1*time.Second)
	cfg.ClientMaxBackoff = getEnvDuration("CLIENT_MAX_BACKOFF", 30*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitChat = getEnvInt("RATE_LIMIT_CHAT", 10)
	cfg.ChatRetentionDays = getEnvInt("CHAT_RETENTION_DAYS", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

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

// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// MinPollInterval はポーリング間隔の下限。これ未満の指定は切り上げる。
const MinPollInterval = 10 * time.Second

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 実行中に変更可能なポーリング間隔の現在値はrepository.SettingsStoreが別途管理する。
type Config struct {
	// EVE SSO
	// 未設定でもプロセスは起動し、/loginが500を返す。
	EVEClientID     string
	EVEClientSecret string
	EVERedirectURL  string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Poller
	PollInterval      time.Duration
	PollMaxConcurrent int
	FetchTimeout      time.Duration

	// History
	HistoryMaxEntries int

	// Rate Limit（req/min単位）
	RateLimitGeneral  int
	RateLimitSettings int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
}

// Load は環境変数からConfigを読み込む。
// EVEのクライアント資格情報はここでは必須としない。欠落時は
// プロセスを落とさず/loginが500で応答する必要があるため。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.EVEClientID = os.Getenv("EVE_CLIENT_ID")
	cfg.EVEClientSecret = os.Getenv("EVE_CLIENT_SECRET")
	cfg.EVERedirectURL = os.Getenv("EVE_REDIRECT_URL")

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)

	cfg.PollInterval = getEnvDuration("POLL_INTERVAL", 60*time.Second)
	if cfg.PollInterval < MinPollInterval {
		cfg.PollInterval = MinPollInterval
	}
	cfg.PollMaxConcurrent = getEnvInt("POLL_MAX_CONCURRENT", 4)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)

	cfg.HistoryMaxEntries = getEnvInt("HISTORY_MAX_ENTRIES", 100)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSettings = getEnvInt("RATE_LIMIT_SETTINGS", 10)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}

// HasOAuthCredentials はEVE SSOのクライアント資格情報が揃っているかを返す。
func (c *Config) HasOAuthCredentials() bool {
	return c.EVEClientID != "" && c.EVEClientSecret != "" && c.EVERedirectURL != ""
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

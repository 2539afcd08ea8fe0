// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// バックエンドモード。
const (
	// BackendPostgres はPostgreSQLに直接接続するモード。
	BackendPostgres = "postgres"
	// BackendREST はマネージドバックエンドのREST APIを使うモード。
	BackendREST = "rest"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	BackendMode string

	// Database（セッションは両モードでPostgreSQLに保存される）
	DatabaseURL string

	// REST（restモード）
	CredentialBaseURL string
	DocstoreBaseURL   string
	RESTAPIKey        string
	ServiceEmail      string
	ServicePassword   string
	RESTTimeout       time.Duration

	// Session
	SessionMaxAge int

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitLogin   int

	// Accounts
	AccountCapacity int

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
// カレントディレクトリに.envがあれば先に読み込む（無くてもエラーにしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	var missing []string

	cfg.BackendMode = getEnvString("BACKEND_MODE", BackendPostgres)
	if cfg.BackendMode != BackendPostgres && cfg.BackendMode != BackendREST {
		return nil, fmt.Errorf("BACKEND_MODE must be %q or %q, got %q", BackendPostgres, BackendREST, cfg.BackendMode)
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	// セッションとpostgresモードのドキュメントが載るため、両モードで必須
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if cfg.BackendMode == BackendREST {
		cfg.CredentialBaseURL = os.Getenv("CREDENTIAL_BASE_URL")
		if cfg.CredentialBaseURL == "" {
			missing = append(missing, "CREDENTIAL_BASE_URL")
		}
		cfg.DocstoreBaseURL = os.Getenv("DOCSTORE_BASE_URL")
		if cfg.DocstoreBaseURL == "" {
			missing = append(missing, "DOCSTORE_BASE_URL")
		}
		cfg.RESTAPIKey = os.Getenv("REST_API_KEY")
		if cfg.RESTAPIKey == "" {
			missing = append(missing, "REST_API_KEY")
		}
		cfg.ServiceEmail = os.Getenv("SERVICE_EMAIL")
		if cfg.ServiceEmail == "" {
			missing = append(missing, "SERVICE_EMAIL")
		}
		cfg.ServicePassword = os.Getenv("SERVICE_PASSWORD")
		if cfg.ServicePassword == "" {
			missing = append(missing, "SERVICE_PASSWORD")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RESTTimeout = getEnvDuration("REST_TIMEOUT", 10*time.Second)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.AccountCapacity = getEnvInt("ACCOUNT_CAPACITY", 50)
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

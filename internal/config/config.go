package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// セッションストアの種類。
const (
	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"
)

// メディアストアの種類。
const (
	MediaBackendFilesystem = "filesystem"
	MediaBackendS3         = "s3"
)

// minSessionSecretLength はCookie署名鍵の最小長（バイト）。
const minSessionSecretLength = 16

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionSecret          string
	SessionStore           string
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Login
	BcryptCost         int
	LoginMaxFailures   int
	LoginFailureWindow time.Duration
	LoginLockout       time.Duration

	// Rate Limit (req/min)
	RateLimitGeneral int
	RateLimitLogin   int

	// Media
	MediaBackend        string
	MediaDir            string
	MediaBaseURL        string
	S3Bucket            string
	S3Region            string
	S3AccessKeyID       string
	S3SecretAccessKey   string
	S3KeyPrefix         string
	S3PublicBaseURL     string
	PictureMaxSize      int64
	PictureFetchTimeout time.Duration

	// Logging
	LogLevel string

	// Server
	AppEnv     string
	ServerPort string
	BaseURL    string
	TrustProxy bool // X-Forwarded-For / X-Real-IPをクライアントIPとして信頼する

	// Cookie
	CookieSecure bool
	CookieDomain string
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

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if len(cfg.SessionSecret) < minSessionSecretLength {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength)
	}

	// Optional fields with defaults
	cfg.AppEnv = getEnvString("APP_ENV", "development")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "3000")
	cfg.BaseURL = strings.TrimRight(getEnvString("BASE_URL", "http://localhost:3000"), "/")
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", false)

	cfg.SessionStore = strings.ToLower(getEnvString("SESSION_STORE", SessionStoreRedis))
	if cfg.SessionStore != SessionStoreRedis && cfg.SessionStore != SessionStorePostgres {
		return nil, fmt.Errorf("unsupported SESSION_STORE: %q (allowed: redis, postgres)", cfg.SessionStore)
	}
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)

	cfg.RedisAddr = getEnvString("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)

	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.LoginMaxFailures = getEnvInt("LOGIN_MAX_FAILURES", 5)
	cfg.LoginFailureWindow = getEnvDuration("LOGIN_FAILURE_WINDOW", 15*time.Minute)
	cfg.LoginLockout = getEnvDuration("LOGIN_LOCKOUT", 15*time.Minute)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)

	cfg.MediaBackend = strings.ToLower(getEnvString("MEDIA_BACKEND", MediaBackendFilesystem))
	if cfg.MediaBackend != MediaBackendFilesystem && cfg.MediaBackend != MediaBackendS3 {
		return nil, fmt.Errorf("unsupported MEDIA_BACKEND: %q (allowed: filesystem, s3)", cfg.MediaBackend)
	}
	cfg.MediaDir = getEnvString("MEDIA_DIR", "./public/pictures")
	cfg.MediaBaseURL = strings.TrimRight(getEnvString("MEDIA_BASE_URL", cfg.BaseURL+"/pictures"), "/")
	cfg.S3Bucket = getEnvString("S3_BUCKET", "")
	cfg.S3Region = getEnvString("S3_REGION", "eu-west-1")
	cfg.S3AccessKeyID = getEnvString("S3_ACCESS_KEY_ID", "")
	cfg.S3SecretAccessKey = getEnvString("S3_SECRET_ACCESS_KEY", "")
	cfg.S3KeyPrefix = getEnvString("S3_KEY_PREFIX", "pictures/")
	cfg.S3PublicBaseURL = strings.TrimRight(getEnvString("S3_PUBLIC_BASE_URL", ""), "/")
	if cfg.MediaBackend == MediaBackendS3 && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when MEDIA_BACKEND=s3")
	}
	cfg.PictureMaxSize = getEnvInt64("PICTURE_MAX_SIZE", 5242880)
	cfg.PictureFetchTimeout = getEnvDuration("PICTURE_FETCH_TIMEOUT", 10*time.Second)

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

// IsDevelopment は開発環境で起動しているかを返す。
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
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

// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ストアの種別。
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// エラー種別からHTTPステータスへの対応方式。
const (
	// ErrorMappingInternal はすべての失敗を500として返す。
	ErrorMappingInternal = "internal"
	// ErrorMappingDistinct は検証エラーを400、未検出を404として返す。
	ErrorMappingDistinct = "distinct"
)

// Config はアプリケーション全体の設定を保持する。
// 起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreDriver       string        `toml:"store_driver"`
	DatabaseURL       string        `toml:"database_url"`
	DatabaseDriver    string        `toml:"database_driver"`
	DBMaxOpenConns    int           `toml:"db_max_open_conns"`
	DBMaxIdleConns    int           `toml:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `toml:"db_conn_max_lifetime"`
	DBConnectAttempts int           `toml:"db_connect_attempts"`
	AutoMigrate       bool          `toml:"auto_migrate"`

	// Server
	ServerPort string `toml:"server_port"`

	// CORS
	CORSAllowedOrigin string `toml:"cors_allowed_origin"`

	// Rate Limit
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
	RateLimitBurst     int `toml:"rate_limit_burst"`

	// Errors
	ErrorStatusMapping string `toml:"error_status_mapping"`

	// Logging
	LogLevel string `toml:"log_level"`
}

// defaults はデフォルト値で埋めたConfigを返す。
func defaults() *Config {
	return &Config{
		StoreDriver:        StorePostgres,
		DatabaseDriver:     "postgres",
		DBMaxOpenConns:     10,
		DBMaxIdleConns:     5,
		DBConnMaxLifetime:  30 * time.Minute,
		DBConnectAttempts:  5,
		AutoMigrate:        true,
		ServerPort:         "8080",
		CORSAllowedOrigin:  "http://localhost:3000",
		RateLimitPerMinute: 600,
		RateLimitBurst:     100,
		ErrorStatusMapping: ErrorMappingInternal,
		LogLevel:           "info",
	}
}

// Load は設定を読み込む。
// 優先順位は 環境変数 > CONFIG_FILE で指定したTOMLファイル > デフォルト値。
// 必須設定が未設定、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.StoreDriver = getEnvString("STORE_DRIVER", cfg.StoreDriver)
	cfg.DatabaseURL = getEnvString("DATABASE_URL", cfg.DatabaseURL)
	cfg.DatabaseDriver = getEnvString("DATABASE_DRIVER", cfg.DatabaseDriver)
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.DBMaxOpenConns)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.DBMaxIdleConns)
	cfg.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", cfg.DBConnMaxLifetime)
	cfg.DBConnectAttempts = getEnvInt("DB_CONNECT_ATTEMPTS", cfg.DBConnectAttempts)
	cfg.AutoMigrate = getEnvBool("AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.ServerPort = getEnvString("SERVER_PORT", cfg.ServerPort)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.CORSAllowedOrigin)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.ErrorStatusMapping = strings.ToLower(getEnvString("ERROR_STATUS_MAPPING", cfg.ErrorStatusMapping))
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", cfg.LogLevel))

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile はTOMLファイルの値でcfgを上書きする。未知のキーはエラーとする。
func loadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in config file %s: %v", path, keys)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER: %q (want %q or %q)", c.StoreDriver, StorePostgres, StoreMemory)
	}

	switch c.DatabaseDriver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER: %q (want \"postgres\" or \"pgx\")", c.DatabaseDriver)
	}

	switch c.ErrorStatusMapping {
	case ErrorMappingInternal, ErrorMappingDistinct:
	default:
		return fmt.Errorf("invalid ERROR_STATUS_MAPPING: %q (want %q or %q)",
			c.ErrorStatusMapping, ErrorMappingInternal, ErrorMappingDistinct)
	}

	if c.DBConnectAttempts < 1 {
		return fmt.Errorf("DB_CONNECT_ATTEMPTS must be at least 1: %d", c.DBConnectAttempts)
	}

	if c.RateLimitPerMinute <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive: per_minute=%d burst=%d", c.RateLimitPerMinute, c.RateLimitBurst)
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

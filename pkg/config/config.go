package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	Auth        AuthConfig
	CORS        CORSConfig
	Log         LogConfig
	Coins       CoinsConfig
	Leaderboard LeaderboardConfig
	Exports     ExportsConfig
	Jobs        JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig holds the admin session settings. The portal authenticates
// admins with a single shared password whose bcrypt hash ships in the
// environment; successful logins are exchanged for a JWT.
type AuthConfig struct {
	PortalPasswordHash string
	TokenSecret        string
	TokenExpiration    time.Duration
	Issuer             string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CoinsConfig carries the qualification thresholds and the balance
// degradation policy.
type CoinsConfig struct {
	MinMinutes int
	MinTopics  int
	// DegradedBalances selects the behaviour when the adjustment store is
	// unreachable during a balance calculation: true computes coins-only
	// balances for every student and flags the response as degraded; false
	// fails the whole request.
	DegradedBalances bool
}

// LeaderboardConfig tunes leaderboard caching.
type LeaderboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// ExportsConfig gates the CSV/PDF export endpoints.
type ExportsConfig struct {
	Enabled       bool
	Dir           string
	SigningSecret string
	ResultTTL     time.Duration
}

// JobsConfig tunes the background refresh queue.
type JobsConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Auth = AuthConfig{
		PortalPasswordHash: v.GetString("PORTAL_PASSWORD_HASH"),
		TokenSecret:        v.GetString("TOKEN_SECRET"),
		TokenExpiration:    parseDuration(v.GetString("TOKEN_EXPIRATION"), 12*time.Hour),
		Issuer:             v.GetString("TOKEN_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Coins = CoinsConfig{
		MinMinutes:       v.GetInt("COINS_MIN_MINUTES"),
		MinTopics:        v.GetInt("COINS_MIN_TOPICS"),
		DegradedBalances: v.GetBool("COINS_DEGRADED_BALANCES"),
	}

	cfg.Leaderboard = LeaderboardConfig{
		Enabled:  v.GetBool("ENABLE_LEADERBOARD"),
		CacheTTL: parseDuration(v.GetString("LEADERBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Enabled:       v.GetBool("ENABLE_EXPORTS"),
		Dir:           v.GetString("EXPORTS_DIR"),
		SigningSecret: v.GetString("EXPORTS_SIGNING_SECRET"),
		ResultTTL:     parseDuration(v.GetString("EXPORTS_RESULT_TTL"), 24*time.Hour),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "aleks_coins")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("PORTAL_PASSWORD_HASH", "")
	v.SetDefault("TOKEN_SECRET", "dev_secret")
	v.SetDefault("TOKEN_EXPIRATION", "12h")
	v.SetDefault("TOKEN_ISSUER", "aleks-coins-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("COINS_MIN_MINUTES", 31)
	v.SetDefault("COINS_MIN_TOPICS", 1)
	v.SetDefault("COINS_DEGRADED_BALANCES", false)

	v.SetDefault("ENABLE_LEADERBOARD", true)
	v.SetDefault("LEADERBOARD_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNING_SECRET", "dev_export_secret")
	v.SetDefault("EXPORTS_RESULT_TTL", "24h")

	v.SetDefault("JOBS_WORKERS", 1)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "1s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

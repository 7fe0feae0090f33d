// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required for anything beyond --help.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the Redis URL for rate-limit and blocklist state. Empty selects
	// in-process stores, which are correct for single-node deployments only.
	RedisURL string `mapstructure:"REDIS_URL"`
	// JWTSecret is the HMAC signing secret for access tokens.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim (e.g. "medportal-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "medportal-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// CORSAllowedOrigins is a comma-separated origin list; default "*".
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// MaxUniqueIPs is the distinct login-IP count above which an account is
	// auto-suspended (default 3).
	MaxUniqueIPs int `mapstructure:"MAX_UNIQUE_IPS"`
	// SuspiciousThreshold is the per-IP suspicious-activity count at which the
	// IP is temporarily blocked (default 5).
	SuspiciousThreshold int `mapstructure:"SUSPICIOUS_THRESHOLD"`
	// IPBlockDuration is how long an escalated IP block lasts (e.g. "1h").
	IPBlockDuration string `mapstructure:"IP_BLOCK_DURATION"`
	// BlocklistSweepInterval is the period of the blocklist background sweep (e.g. "10m").
	BlocklistSweepInterval string `mapstructure:"BLOCKLIST_SWEEP_INTERVAL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "medportal-auth")
	v.SetDefault("JWT_AUDIENCE", "medportal-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UNIQUE_IPS", 3)
	v.SetDefault("SUSPICIOUS_THRESHOLD", 5)
	v.SetDefault("IP_BLOCK_DURATION", "1h")
	v.SetDefault("BLOCKLIST_SWEEP_INTERVAL", "10m")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.MaxUniqueIPs < 1 {
		return nil, errors.New("config: MAX_UNIQUE_IPS must be at least 1")
	}
	if cfg.SuspiciousThreshold < 1 {
		return nil, errors.New("config: SUSPICIOUS_THRESHOLD must be at least 1")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// BlockDuration parses IPBlockDuration as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) BlockDuration() time.Duration {
	d, err := time.ParseDuration(c.IPBlockDuration)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// SweepInterval parses BlocklistSweepInterval as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.BlocklistSweepInterval)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// AllowedOrigins splits CORSAllowedOrigins on commas, trimming whitespace.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

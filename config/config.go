package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envPrefix = "CRMMAIL_"

type ServerConfig struct {
	Port              int           `toml:"port" env:"PORT"`
	CORSOrigins       string        `toml:"cors_origins" env:"CORS_ORIGINS"`
	RateLimitRequests int           `toml:"rate_limit_requests" env:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `toml:"rate_limit_window" env:"RATE_LIMIT_WINDOW"`
	ShutdownTimeout   time.Duration `toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	Path string `toml:"path" env:"DATABASE_PATH"`
}

type JWTConfig struct {
	Secret string        `toml:"secret" env:"JWT_SECRET"` // HS256 signing key
	Expiry time.Duration `toml:"expiry" env:"JWT_EXPIRY"`
}

type EncryptionConfig struct {
	Key string `toml:"key" env:"ENCRYPTION_KEY"` // 32-byte key for AES-256-GCM
}

// MailConfig tunes the IMAP/SMTP connectivity layer.
type MailConfig struct {
	Timeout         time.Duration `toml:"timeout" env:"MAIL_TIMEOUT"`
	SyncWindow      time.Duration `toml:"sync_window" env:"MAIL_SYNC_WINDOW"`
	UnseenOnly      bool          `toml:"unseen_only" env:"MAIL_UNSEEN_ONLY"`
	DefaultLimit    int           `toml:"default_limit" env:"MAIL_DEFAULT_LIMIT"`
	MaxLimit        int           `toml:"max_limit" env:"MAIL_MAX_LIMIT"`
	TLSSkipVerify   bool          `toml:"tls_skip_verify" env:"MAIL_TLS_SKIP_VERIFY"`
	ConcurrentProbe bool          `toml:"concurrent_probe" env:"MAIL_CONCURRENT_PROBE"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"LOG_LEVEL"`
	Format string `toml:"format" env:"LOG_FORMAT"` // "text" or "json"
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	JWT        JWTConfig        `toml:"jwt"`
	Encryption EncryptionConfig `toml:"encryption"`
	Mail       MailConfig       `toml:"mail"`
	Log        LogConfig        `toml:"log"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	var config Config

	config.Server.Port = 3001
	config.Server.CORSOrigins = "http://localhost:3000"
	config.Server.RateLimitRequests = 100
	config.Server.RateLimitWindow = 15 * time.Minute
	config.Server.ShutdownTimeout = 10 * time.Second

	config.Database.Path = "crmmail.db"

	config.JWT.Expiry = 7 * 24 * time.Hour

	config.Mail.Timeout = 10 * time.Second
	config.Mail.SyncWindow = 30 * 24 * time.Hour
	config.Mail.DefaultLimit = 50
	config.Mail.MaxLimit = 200
	config.Mail.ConcurrentProbe = true

	config.Log.Level = "info"
	config.Log.Format = "text"

	return &config
}

// LoadConfig reads defaults, then the TOML file at filepath (if it exists),
// then CRMMAIL_* environment variables (a .env file is honoured).
func LoadConfig(filepath string) (*Config, error) {
	config := Default()

	if filepath != "" {
		if _, err := toml.DecodeFile(filepath, config); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", filepath, err)
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := env.ParseWithOptions(config, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks the values that would otherwise fail at first use.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range 1-65535", c.Server.Port))
	}
	if c.Server.RateLimitRequests < 1 || c.Server.RateLimitWindow <= 0 {
		problems = append(problems, "server rate limit must be positive")
	}
	if c.Database.Path == "" {
		problems = append(problems, "database.path is required")
	}
	if c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret is required")
	}
	if c.JWT.Expiry <= 0 {
		problems = append(problems, "jwt.expiry must be positive")
	}
	if len(c.Encryption.Key) != 32 {
		problems = append(problems, fmt.Sprintf("encryption.key must be 32 bytes, got %d", len(c.Encryption.Key)))
	}
	if c.Mail.Timeout <= 0 {
		problems = append(problems, "mail.timeout must be positive")
	}
	if c.Mail.SyncWindow <= 0 {
		problems = append(problems, "mail.sync_window must be positive")
	}
	if c.Mail.DefaultLimit < 1 || c.Mail.MaxLimit < c.Mail.DefaultLimit {
		problems = append(problems, "mail.default_limit must be between 1 and mail.max_limit")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// AllowedOrigins returns the CORS origins as the comma separated list fiber expects.
func (c *ServerConfig) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return strings.Join(origins, ",")
}

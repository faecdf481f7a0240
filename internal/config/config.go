package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the server.
type Config struct {
	Port        string
	Env         string
	LogLevel    zerolog.Level
	DatabaseURL string // Postgres; SQLite is used when empty
	SQLitePath  string
	RedisURL    string
	NATSURL     string // change bus; Redis pub/sub is used when empty

	CursorTTL   time.Duration
	CursorSweep time.Duration // how often expired cursors are pruned and announced
	MaxBodySize int64

	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool
}

// Load reads configuration from the environment, after a .env file when one
// exists. Production refuses to start without explicit DATABASE_URL and
// REDIS_URL.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getLevel("LOG_LEVEL", zerolog.InfoLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         os.Getenv("SQLITE_PATH"),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		NATSURL:            os.Getenv("NATS_URL"),
		CursorTTL:          getDuration("CURSOR_TTL", 30*time.Second),
		CursorSweep:        getDuration("CURSOR_SWEEP_INTERVAL", 5*time.Second),
		MaxBodySize:        getInt("MAX_BODY_BYTES", 8*1024),
		RateLimitWhitelist: getList("RATE_LIMIT_WHITELIST"),
		AutoBlockEnabled:   getBool("AUTO_BLOCK_ENABLED"),
	}

	if cfg.Env == "production" {
		var missing []error
		if cfg.DatabaseURL == "" {
			missing = append(missing, errors.New("DATABASE_URL is required in production"))
		}
		if os.Getenv("REDIS_URL") == "" {
			missing = append(missing, errors.New("REDIS_URL is required in production"))
		}
		if err := errors.Join(missing...); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int64) int64 {
	n, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func getLevel(key string, defaultValue zerolog.Level) zerolog.Level {
	lvl, err := zerolog.ParseLevel(os.Getenv(key))
	if err != nil || lvl == zerolog.NoLevel {
		return defaultValue
	}
	return lvl
}

// getList splits a comma-separated variable, dropping empty entries.
func getList(key string) []string {
	var out []string
	for _, entry := range strings.Split(os.Getenv(key), ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

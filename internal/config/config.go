// Package config loads console settings from defaults, an optional console.yaml, an
// optional .env file and CELLAR_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Session store kinds.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Session   SessionConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Ban       BanConfig
}

type ServerConfig struct {
	Addr string
}

// BackendConfig locates the catalog REST API. Every path is appended to BaseURL.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	Store           string
	Secret          string
	TTL             time.Duration
	RevalidateAfter time.Duration
	CleanupInterval time.Duration
	CookieName      string
	SecureCookie    bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	URL string
}

type LoggingConfig struct {
	Level string
}

type RateLimitConfig struct {
	LoginPerSecond    float64
	LoginBurst        int
	RequestsPerMinute int
}

// BanConfig locks out a client and username pair after MaxStrikes failed logins within Window.
type BanConfig struct {
	MaxStrikes int
	Window     time.Duration
	Duration   time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("backend.base_url", "http://localhost:8081/api")
	v.SetDefault("backend.timeout", "10s")
	v.SetDefault("session.store", StoreMemory)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", "12h")
	v.SetDefault("session.revalidate_after", "15m")
	v.SetDefault("session.cleanup_interval", "30m")
	v.SetDefault("session.cookie_name", "cellar_session")
	v.SetDefault("session.secure_cookie", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.url", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("ratelimit.login_per_second", 1.0)
	v.SetDefault("ratelimit.login_burst", 5)
	v.SetDefault("ratelimit.requests_per_minute", 300)
	v.SetDefault("ban.max_strikes", 5)
	v.SetDefault("ban.window", "15m")
	v.SetDefault("ban.duration", "15m")
}

// Load reads the configuration.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("console")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read console.yaml: %w", err)
		}
	}

	v.SetEnvPrefix("CELLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Addr: v.GetString("server.addr")},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(v.GetString("backend.base_url"), "/"),
			Timeout: v.GetDuration("backend.timeout"),
		},
		Session: SessionConfig{
			Store:           strings.ToLower(v.GetString("session.store")),
			Secret:          v.GetString("session.secret"),
			TTL:             v.GetDuration("session.ttl"),
			RevalidateAfter: v.GetDuration("session.revalidate_after"),
			CleanupInterval: v.GetDuration("session.cleanup_interval"),
			CookieName:      v.GetString("session.cookie_name"),
			SecureCookie:    v.GetBool("session.secure_cookie"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Database: DatabaseConfig{URL: v.GetString("database.url")},
		Logging:  LoggingConfig{Level: v.GetString("logging.level")},
		RateLimit: RateLimitConfig{
			LoginPerSecond:    v.GetFloat64("ratelimit.login_per_second"),
			LoginBurst:        v.GetInt("ratelimit.login_burst"),
			RequestsPerMinute: v.GetInt("ratelimit.requests_per_minute"),
		},
		Ban: BanConfig{
			MaxStrikes: v.GetInt("ban.max_strikes"),
			Window:     v.GetDuration("ban.window"),
			Duration:   v.GetDuration("ban.duration"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Session.Secret == "" {
		return errors.New("CELLAR_SESSION_SECRET is required")
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend base url %q: must be absolute", c.Backend.BaseURL)
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("backend timeout must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.Session.RevalidateAfter < 0 {
		return errors.New("session revalidate_after cannot be negative")
	}
	if c.Session.CleanupInterval <= 0 {
		return errors.New("session cleanup_interval must be positive")
	}
	if c.Session.CookieName == "" {
		return errors.New("session cookie name is required")
	}

	switch c.Session.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis address is required for the redis session store")
		}
	case StorePostgres:
		if c.Database.URL == "" {
			return errors.New("database url is required for the postgres session store")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	return nil
}

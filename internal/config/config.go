package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultAPIBaseURL = "http://localhost:8001"

type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Events    EventsConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Security  SecurityConfig
	Dashboard DashboardConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// BackendConfig points at the OmniShelf REST API. A zero Timeout leaves
// request lifetime to the caller's context.
type BackendConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MaxUploadSize int64
}

type EventsConfig struct {
	Store      string
	RefreshKey string
	SQLitePath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

type DashboardConfig struct {
	TopCategories int
	MaxTableRows  int
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 0),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Backend: BackendConfig{
			BaseURL:       getEnvString("OMNISHELF_API_BASE_URL", getEnvString("VITE_API_BASE_URL", defaultAPIBaseURL)),
			Timeout:       getEnvDuration("OMNISHELF_API_TIMEOUT", 0),
			MaxUploadSize: int64(getEnvInt("OMNISHELF_MAX_UPLOAD_MB", 20)) << 20,
		},
		Events: EventsConfig{
			Store:      getEnvString("EVENTS_STORE", "memory"),
			RefreshKey: getEnvString("EVENTS_REFRESH_KEY", "omnishelf_inventory_refresh"),
			SQLitePath: getEnvString("EVENTS_SQLITE_PATH", "omnishelf-events.db"),
		},
		Redis: RedisConfig{
			Addr:     getEnvString("REDIS_ADDR", "localhost:6379"),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 20),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
		Dashboard: DashboardConfig{
			TopCategories: getEnvInt("DASHBOARD_TOP_CATEGORIES", 5),
			MaxTableRows:  getEnvInt("DASHBOARD_MAX_TABLE_ROWS", 200),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	// Zero disables the write deadline so /sse/stream can stay open.
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout cannot be negative")
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend base URL %q must be an absolute URL", c.Backend.BaseURL)
	}

	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend timeout cannot be negative")
	}

	if c.Backend.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	validStores := []string{"memory", "sqlite", "redis"}
	if !contains(validStores, c.Events.Store) {
		return fmt.Errorf("invalid events store %q, must be one of: %s", c.Events.Store, strings.Join(validStores, ", "))
	}

	if c.Events.RefreshKey == "" {
		return fmt.Errorf("events refresh key cannot be empty")
	}

	if c.Events.Store == "sqlite" && c.Events.SQLitePath == "" {
		return fmt.Errorf("sqlite events store requires EVENTS_SQLITE_PATH")
	}

	if c.Events.Store == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis events store requires REDIS_ADDR")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Dashboard.TopCategories <= 0 {
		return fmt.Errorf("dashboard top categories must be positive")
	}

	if c.Dashboard.MaxTableRows <= 0 {
		return fmt.Errorf("dashboard max table rows must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

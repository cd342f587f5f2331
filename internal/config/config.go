package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	App      AppConfig
	Links    LinksConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Environment      string
	LogLevel         string
	RateLimitEnabled bool
	RateLimitMax     int
	RateLimitWindow  time.Duration
}

// LinksConfig holds settings for short links and redirects
type LinksConfig struct {
	// BaseURL is where this API is reachable; QR code URLs are built on it.
	BaseURL         string
	DefaultDomain   string
	QREndpoint      string
	KeyLength       int
	MetatagsTimeout time.Duration
	ClickTimeout    time.Duration
	// GeoIPDBPath is a MaxMind country database. Empty means country
	// comes from edge headers only.
	GeoIPDBPath string
}

// Load reads configuration from a .env file, if present, and then from
// environment variables. Variables already set win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	port := getEnv("SERVER_PORT", "8080")
	baseURL := strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+port), "/")

	cfg := &Config{
		Server: ServerConfig{
			Port:           port,
			ReadTimeout:    parseDuration("SERVER_READ_TIMEOUT", "10s"),
			WriteTimeout:   parseDuration("SERVER_WRITE_TIMEOUT", "10s"),
			IdleTimeout:    parseDuration("SERVER_IDLE_TIMEOUT", "120s"),
			RequestTimeout: parseDuration("SERVER_REQUEST_TIMEOUT", "15s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "dub"),
			Password:        getEnv("DB_PASSWORD", "dev_password_123"),
			DBName:          getEnv("DB_NAME", "dub"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Redis: RedisConfig{
			Enabled:  parseBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt("REDIS_DB", 0),
			CacheTTL: parseDuration("REDIS_CACHE_TTL", "1h"),
		},
		App: AppConfig{
			Environment:      getEnv("APP_ENV", "development"),
			LogLevel:         getEnv("LOG_LEVEL", "info"),
			RateLimitEnabled: parseBool("RATE_LIMIT_ENABLED", true),
			RateLimitMax:     parseInt("RATE_LIMIT_REQUESTS", 600),
			RateLimitWindow:  parseDuration("RATE_LIMIT_WINDOW", "1m"),
		},
		Links: LinksConfig{
			BaseURL:         baseURL,
			DefaultDomain:   strings.ToLower(getEnv("DEFAULT_DOMAIN", "dub.sh")),
			QREndpoint:      getEnv("QR_ENDPOINT", baseURL+"/api/qr"),
			KeyLength:       parseInt("KEY_LENGTH", 7),
			MetatagsTimeout: parseDuration("METATAGS_TIMEOUT", "5s"),
			ClickTimeout:    parseDuration("CLICK_TIMEOUT", "5s"),
			GeoIPDBPath:     getEnv("GEOIP_DB_PATH", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Links.KeyLength < 4 || c.Links.KeyLength > 32 {
		return fmt.Errorf("KEY_LENGTH must be between 4 and 32, got %d", c.Links.KeyLength)
	}
	if c.App.RateLimitEnabled && (c.App.RateLimitMax <= 0 || c.App.RateLimitWindow < time.Second) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive and RATE_LIMIT_WINDOW at least 1s")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address in host:port format
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

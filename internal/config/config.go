package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	DB         DatabaseConfig
	Cache      CacheConfig
	Geocoding  GeocodingConfig
	Extraction ExtractionConfig
	Auth       AuthConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Path string
}

type CacheConfig struct {
	DefaultTTL    time.Duration
	SweepInterval time.Duration
}

type GeocodingConfig struct {
	GoogleAPIKey    string
	NominatimURL    string
	ProviderTimeout time.Duration
}

type ExtractionConfig struct {
	GeminiAPIKey string
	GeminiURL    string
	Timeout      time.Duration
}

type AuthConfig struct {
	AdminID string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/disaster-response.db"),
		},
		Cache: CacheConfig{
			DefaultTTL:    getEnvDuration("CACHE_TTL", time.Hour),
			SweepInterval: getEnvDuration("CACHE_SWEEP_INTERVAL", time.Hour),
		},
		Geocoding: GeocodingConfig{
			GoogleAPIKey:    getEnv("GOOGLE_MAPS_API_KEY", ""),
			NominatimURL:    getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search"),
			ProviderTimeout: getEnvDuration("GEOCODE_PROVIDER_TIMEOUT", 5*time.Second),
		},
		Extraction: ExtractionConfig{
			GeminiAPIKey: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			GeminiURL:    getEnv("GEMINI_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Timeout:      getEnvDuration("EXTRACTION_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			AdminID: getEnv("AUTH_ADMIN_ID", "reliefAdmin"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", c.Cache.DefaultTTL)
	}
	if c.Cache.SweepInterval < time.Minute {
		return fmt.Errorf("cache sweep interval must be at least 1 minute")
	}
	if c.Geocoding.ProviderTimeout <= 0 {
		return fmt.Errorf("geocode provider timeout must be positive, got %s", c.Geocoding.ProviderTimeout)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

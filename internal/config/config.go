package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, loaded from the environment
// with optional .env support for local development.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Geo        GeoConfig
	Extraction ExtractionConfig
	Cache      CacheConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// GeoConfig holds the base URLs and timeouts of the geospatial collaborators.
// Each outbound call carries its own timeout; document downloads get a
// longer one because règlement PDFs run to tens of megabytes.
type GeoConfig struct {
	GPUBaseURL       string
	RiskBaseURL      string
	RegistryBaseURL  string
	DirectoryBaseURL string
	GeocodingBaseURL string
	QueryTimeout     time.Duration
	DocumentTimeout  time.Duration
}

// ExtractionConfig holds the structured-extraction service settings.
type ExtractionConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// CacheConfig holds regulatory-cache settings.
type CacheConfig struct {
	TTL time.Duration
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is merged in first when present.
func LoadConfig() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "urbanisme"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "urbanisme"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Geo: GeoConfig{
			GPUBaseURL:       getEnv("GPU_BASE_URL", "https://apicarto.ign.fr/api"),
			RiskBaseURL:      getEnv("RISK_BASE_URL", "https://georisques.gouv.fr/api"),
			RegistryBaseURL:  getEnv("REGISTRY_BASE_URL", "https://www.geoportail-urbanisme.gouv.fr/api"),
			DirectoryBaseURL: getEnv("DIRECTORY_BASE_URL", "https://geo.api.gouv.fr"),
			GeocodingBaseURL: getEnv("GEOCODING_BASE_URL", "https://api-adresse.data.gouv.fr"),
			QueryTimeout:     getEnvDuration("GEO_QUERY_TIMEOUT", 10*time.Second),
			DocumentTimeout:  getEnvDuration("GEO_DOCUMENT_TIMEOUT", 20*time.Second),
		},
		Extraction: ExtractionConfig{
			BaseURL: getEnv("EXTRACTION_BASE_URL", ""),
			APIKey:  getEnv("EXTRACTION_API_KEY", ""),
			Model:   getEnv("EXTRACTION_MODEL", "gpt-4o-mini"),
			Timeout: getEnvDuration("EXTRACTION_TIMEOUT", 20*time.Second),
		},
		Cache: CacheConfig{
			TTL: getEnvDuration("RULE_CACHE_TTL", 30*24*time.Hour),
		},
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("rule cache TTL must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

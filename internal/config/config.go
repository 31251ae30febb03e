package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application. It is built once at
// startup and passed into constructors; nothing reads the environment after
// Load returns.
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Geocoder   GeocoderConfig
	Gofood     GofoodConfig
	OpenRouter OpenRouterConfig
	Pipeline   PipelineConfig
	History    HistoryConfig
}

// PostgreSQLConfig holds TimescaleDB connection configuration
type PostgreSQLConfig struct {
	DSN                string
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
}

// GeocoderConfig holds Nominatim-compatible geocoder configuration
type GeocoderConfig struct {
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration // base delay, doubled per attempt
	MaxBackoff   time.Duration
	MaxConns     int
}

// GofoodConfig holds candidate source configuration
type GofoodConfig struct {
	BaseURL          string
	SessionCookie    string // initial session credential; rotated at runtime
	PageSize         int
	MaxCandidates    int // hard ceiling, independent of caller limit
	MaxRetries       int // per-page retries on rate limiting
	RetryBackoff     time.Duration
	MaxBackoff       time.Duration
	Timeout          time.Duration
	MaxConns         int
	BreakerThreshold int           // consecutive failures before the breaker opens
	BreakerTimeout   time.Duration // how long the breaker stays open
}

// OpenRouterConfig holds LLM endpoint configuration
type OpenRouterConfig struct {
	APIKey      string
	APIBase     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxConns    int
	Enabled     bool
}

// PipelineConfig holds recommendation pipeline tuning
type PipelineConfig struct {
	OverallTimeout time.Duration
	// Stage deadline fractions of the overall deadline
	ResolveFraction float64
	FetchFraction   float64
	ScoreFraction   float64

	DefaultRadiusKm float64
	DefaultLimit    int
	MaxLimit        int
	PromptTopK      int

	// Heuristic fallback weights are tunable defaults, not load-bearing
	// for correctness.
	FallbackWeightRating   float64
	FallbackWeightDistance float64
}

// HistoryConfig holds history writer configuration
type HistoryConfig struct {
	QueueSize int
	Workers   int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("TIMESCALE_URI", "")),
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvAsInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "postgres"),
			Password:           getEnv("DB_PASSWORD", "postgres"),
			Database:           getEnv("DB_NAME", "gourmet_guide"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Geocoder: GeocoderConfig{
			BaseURL:      getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent:    getEnv("GEOCODER_USER_AGENT", "gourmet-guide-api"),
			Timeout:      getEnvAsDuration("GEOCODER_TIMEOUT", 5*time.Second),
			MaxRetries:   getEnvAsInt("GEOCODER_MAX_RETRIES", 2),
			RetryBackoff: getEnvAsDuration("GEOCODER_RETRY_BACKOFF", 200*time.Millisecond),
			MaxBackoff:   getEnvAsDuration("GEOCODER_MAX_BACKOFF", 2*time.Second),
			MaxConns:     getEnvAsInt("GEOCODER_MAX_CONNS", 4),
		},
		Gofood: GofoodConfig{
			BaseURL:          getEnv("GOFOOD_BASE_URL", "https://gofood.co.id/api/outlets"),
			SessionCookie:    getEnv("GOFOOD_SESSION_COOKIE", ""),
			PageSize:         getEnvAsInt("GOFOOD_PAGE_SIZE", 20),
			MaxCandidates:    getEnvAsInt("GOFOOD_MAX_CANDIDATES", 60),
			MaxRetries:       getEnvAsInt("GOFOOD_MAX_RETRIES", 3),
			RetryBackoff:     getEnvAsDuration("GOFOOD_RETRY_BACKOFF", 250*time.Millisecond),
			MaxBackoff:       getEnvAsDuration("GOFOOD_MAX_BACKOFF", 2*time.Second),
			Timeout:          getEnvAsDuration("GOFOOD_TIMEOUT", 8*time.Second),
			MaxConns:         getEnvAsInt("GOFOOD_MAX_CONNS", 8),
			BreakerThreshold: getEnvAsInt("GOFOOD_BREAKER_THRESHOLD", 5),
			BreakerTimeout:   getEnvAsDuration("GOFOOD_BREAKER_TIMEOUT", 30*time.Second),
		},
		OpenRouter: OpenRouterConfig{
			APIKey:      getEnv("OPENROUTER_API_KEY", ""),
			APIBase:     getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnv("OPENROUTER_MODEL", "deepseek/deepseek-r1-zero:free"),
			Temperature: getEnvAsFloat("OPENROUTER_TEMPERATURE", 0.3),
			MaxTokens:   getEnvAsInt("OPENROUTER_MAX_TOKENS", 4096),
			Timeout:     getEnvAsDuration("OPENROUTER_TIMEOUT", 20*time.Second),
			MaxConns:    getEnvAsInt("OPENROUTER_MAX_CONNS", 4),
			Enabled:     getEnv("OPENROUTER_API_KEY", "") != "",
		},
		Pipeline: PipelineConfig{
			OverallTimeout:         getEnvAsDuration("PIPELINE_TIMEOUT", 30*time.Second),
			ResolveFraction:        getEnvAsFloat("PIPELINE_RESOLVE_FRACTION", 0.2),
			FetchFraction:          getEnvAsFloat("PIPELINE_FETCH_FRACTION", 0.3),
			ScoreFraction:          getEnvAsFloat("PIPELINE_SCORE_FRACTION", 0.4),
			DefaultRadiusKm:        getEnvAsFloat("PIPELINE_DEFAULT_RADIUS_KM", 5),
			DefaultLimit:           getEnvAsInt("PIPELINE_DEFAULT_LIMIT", 5),
			MaxLimit:               getEnvAsInt("PIPELINE_MAX_LIMIT", 20),
			PromptTopK:             getEnvAsInt("PIPELINE_PROMPT_TOP_K", 15),
			FallbackWeightRating:   getEnvAsFloat("FALLBACK_WEIGHT_RATING", 0.6),
			FallbackWeightDistance: getEnvAsFloat("FALLBACK_WEIGHT_DISTANCE", 0.4),
		},
		History: HistoryConfig{
			QueueSize: getEnvAsInt("HISTORY_QUEUE_SIZE", 256),
			Workers:   getEnvAsInt("HISTORY_WORKERS", 2),
		},
	}

	return cfg, nil
}

// GetPostgreSQLDSN returns the TimescaleDB connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}

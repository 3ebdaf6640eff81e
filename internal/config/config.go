package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	NewRelic    NewRelicConfig
	Auth        AuthConfig
	Fare        FareConfig
	Negotiation NegotiationConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// AuthConfig holds the identity boundary configuration. Token issuance is
// owned by the external identity provider; this service only verifies.
type AuthConfig struct {
	JWTSecret string
	Enabled   bool
}

// FareConfig holds fare estimation parameters.
type FareConfig struct {
	FlagFall      float64 // fixed amount added to every fare
	PerKmRate     float64
	AvgSpeedKmh   float64 // used for the duration estimate fallback
	MaxSurge      float64 // global clamp on the factor product
	WeatherFactor float64 // static weight when no live weather source is wired
	TrafficFactor float64 // static weight when no live traffic source is wired
}

// NegotiationConfig holds negotiation window parameters.
type NegotiationConfig struct {
	WindowDuration time.Duration // how long a trip accepts offers
	OfferTTL       time.Duration // lifetime of a single offer
	SweepInterval  time.Duration
	AutoAccept     bool // accept the cheapest pending offer at deadline
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "joltcab"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "joltcab-negotiation"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Enabled:   getBoolEnv("AUTH_ENABLED", false),
		},
		Fare: FareConfig{
			FlagFall:      getFloatEnv("FARE_FLAG_FALL", 5.0),
			PerKmRate:     getFloatEnv("FARE_PER_KM_RATE", 2.5),
			AvgSpeedKmh:   getFloatEnv("FARE_AVG_SPEED_KMH", 30.0),
			MaxSurge:      getFloatEnv("FARE_MAX_SURGE", 3.0),
			WeatherFactor: getFloatEnv("FARE_WEATHER_FACTOR", 1.0),
			TrafficFactor: getFloatEnv("FARE_TRAFFIC_FACTOR", 1.0),
		},
		Negotiation: NegotiationConfig{
			WindowDuration: getDurationEnv("NEGOTIATION_WINDOW", 120*time.Second),
			OfferTTL:       getDurationEnv("NEGOTIATION_OFFER_TTL", 60*time.Second),
			SweepInterval:  getDurationEnv("NEGOTIATION_SWEEP_INTERVAL", time.Second),
			AutoAccept:     getBoolEnv("NEGOTIATION_AUTO_ACCEPT", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

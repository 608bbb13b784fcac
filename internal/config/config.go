package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Realtime RealtimeConfig
	Cache    CacheConfig
	Log      LogConfig
	NewRelic NewRelicConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	UploadDir      string
	MaxUploadBytes int64
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	TimeZone     string
	MaxOpenConns int
	MaxIdleConns int
	SlowQuery    time.Duration
	AutoMigrate  bool
}

// AuthConfig holds token and login settings.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	LoginRate  float64 // attempts per second per client IP
	LoginBurst int
}

// RealtimeConfig holds the gateway and periodic task settings.
type RealtimeConfig struct {
	BroadcastInterval time.Duration
	DispatchInterval  time.Duration
	QueryTimeout      time.Duration
	SendBuffer        int
	DefaultLat        float64
	DefaultLon        float64
}

// CacheConfig selects Redis when Addr is set, an in-process LRU otherwise.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	LocalSize     int
}

// LogConfig holds log output settings.
type LogConfig struct {
	File   string
	Level  string
	Stdout bool
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// Load reads .env (if present) and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
			MaxUploadBytes: int64(getIntEnv("MAX_UPLOAD_BYTES", 5<<20)),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "password"),
			Name:         getEnv("DB_NAME", "bus_tracker"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			TimeZone:     getEnv("DB_TIMEZONE", "UTC"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 10),
			SlowQuery:    getDurationEnv("DB_SLOW_QUERY", 200*time.Millisecond),
			AutoMigrate:  getBoolEnv("DB_AUTO_MIGRATE", true),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", "supersecret"),
			TokenTTL:   getDurationEnv("JWT_TTL", 7*24*time.Hour),
			LoginRate:  getFloatEnv("LOGIN_RATE", 1),
			LoginBurst: getIntEnv("LOGIN_BURST", 5),
		},
		Realtime: RealtimeConfig{
			BroadcastInterval: getDurationEnv("BROADCAST_INTERVAL", 20*time.Second),
			DispatchInterval:  getDurationEnv("DISPATCH_INTERVAL", 20*time.Second),
			QueryTimeout:      getDurationEnv("TASK_QUERY_TIMEOUT", 5*time.Second),
			SendBuffer:        getIntEnv("WS_SEND_BUFFER", 16),
			DefaultLat:        getFloatEnv("DEFAULT_LAT", 30.7046),
			DefaultLon:        getFloatEnv("DEFAULT_LON", 76.8018),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			TTL:           getDurationEnv("CACHE_TTL", 10*time.Minute),
			LocalSize:     getIntEnv("CACHE_LOCAL_SIZE", 1024),
		},
		Log: LogConfig{
			File:   getEnv("LOG_FILE", "./logs/app.log"),
			Level:  getEnv("LOG_LEVEL", "info"),
			Stdout: getBoolEnv("LOG_STDOUT", false),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "bus-tracker"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
	}
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		logrus.WithField("key", key).Warn("Ignoring non-integer environment value")
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		logrus.WithField("key", key).Warn("Ignoring non-numeric environment value")
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
		logrus.WithField("key", key).Warn("Ignoring malformed duration in environment")
	}
	return defaultValue
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Engine   EngineConfig
	Tracing  TracingConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type PostgresConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	DBName             string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	MaxLifetimeMinutes int
	LogLevel           string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// EngineConfig carries every engine-wide knob the timer engine and its
// background tasks read.
type EngineConfig struct {
	TimerWorkerCount int

	WebhookTimeout time.Duration

	ExpirationSweepBatch int
	ReplaySweepBatch     int
	ReplayRetentionMs    int64
	ExpiredCleanupAgeMs  int64

	ExpirationSweepInterval time.Duration
	ReplaySweepInterval     time.Duration
	ScheduleTickInterval    time.Duration
	CleanupInterval         time.Duration
	ReplayCleanupInterval   time.Duration
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRate  float64
}

func LoadConfig() *Config {
	cfg, _ := Load()
	return cfg
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 5003),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Postgres: PostgresConfig{
			Host:               getEnv("POSTGRES_HOST", "localhost"),
			Port:               getEnv("POSTGRES_PORT", "5432"),
			User:               getEnv("POSTGRES_USER", "minoots_user"),
			Password:           getEnv("POSTGRES_PASSWORD", "minoots_password"),
			DBName:             getEnv("POSTGRES_DB", "minoots_db"),
			SSLMode:            getEnv("POSTGRES_SSL_MODE", "disable"),
			MaxOpenConns:       getEnvInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("POSTGRES_MAX_IDLE_CONNS", 10),
			MaxLifetimeMinutes: getEnvInt("POSTGRES_MAX_LIFETIME_MINS", 30),
			LogLevel:           getEnv("POSTGRES_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 2),
		},
		Engine: EngineConfig{
			TimerWorkerCount:        getEnvInt("ENGINE_TIMER_WORKER_COUNT", 5),
			WebhookTimeout:          getDuration("ENGINE_WEBHOOK_TIMEOUT", 10*time.Second),
			ExpirationSweepBatch:    getEnvInt("ENGINE_EXPIRATION_SWEEP_BATCH", 200),
			ReplaySweepBatch:        getEnvInt("ENGINE_REPLAY_SWEEP_BATCH", 50),
			ReplayRetentionMs:       int64(getEnvInt("ENGINE_REPLAY_RETENTION_MS", 7*24*3600*1000)),
			ExpiredCleanupAgeMs:     int64(getEnvInt("ENGINE_EXPIRED_CLEANUP_AGE_MS", 24*3600*1000)),
			ExpirationSweepInterval: getDuration("ENGINE_EXPIRATION_SWEEP_INTERVAL", time.Minute),
			ReplaySweepInterval:     getDuration("ENGINE_REPLAY_SWEEP_INTERVAL", 5*time.Minute),
			ScheduleTickInterval:    getDuration("ENGINE_SCHEDULE_TICK_INTERVAL", time.Minute),
			CleanupInterval:         getDuration("ENGINE_CLEANUP_INTERVAL", 24*time.Hour),
			ReplayCleanupInterval:   getDuration("ENGINE_REPLAY_CLEANUP_INTERVAL", 6*time.Hour),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", true),
			ServiceName: getEnv("SERVICE_NAME", "minoots-engine"),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
			SampleRate:  getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

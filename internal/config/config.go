package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	JWT    JWTConfig
	Sweep  SweepConfig
	MQTT   MQTTConfig
	Log    LogConfig
	// RulesFile is an optional JSON file overriding the maintenance rules.
	RulesFile string
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type SweepConfig struct {
	Schedule  string // cron spec, e.g. "@every 5m"
	OnStart   bool
	BatchSize int
}

type MQTTConfig struct {
	Broker      string // empty disables MQTT dispatch
	ClientID    string
	TopicPrefix string
	Timeout     time.Duration
}

type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// Load reads a .env file when present and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "propdocs"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret-key-change-in-production"),
			Expiry: getEnvAsDuration("JWT_EXPIRY", 24*time.Hour),
		},
		Sweep: SweepConfig{
			Schedule:  getEnv("SWEEP_SCHEDULE", "@every 5m"),
			OnStart:   getEnvAsBool("SWEEP_ON_START", true),
			BatchSize: getEnvAsInt("SWEEP_BATCH_SIZE", 200),
		},
		MQTT: MQTTConfig{
			Broker:      getEnv("MQTT_BROKER", ""),
			ClientID:    getEnv("MQTT_CLIENT_ID", "propdocs-maintenance"),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "propdocs"),
			Timeout:     getEnvAsDuration("MQTT_TIMEOUT", 5*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		RulesFile: getEnv("RULES_FILE", ""),
	}

	if cfg.Sweep.BatchSize <= 0 {
		return nil, fmt.Errorf("SWEEP_BATCH_SIZE must be positive, got %d", cfg.Sweep.BatchSize)
	}
	return cfg, nil
}

// ConfigureLogging applies the log level and formatter to the standard logger.
func (c LogConfig) ConfigureLogging() error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)

	switch strings.ToLower(c.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("LOG_FORMAT: unknown format %q", c.Format)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}

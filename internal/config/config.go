package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fjod/go_foodcart/internal/repository"
)

const (
	OrderStoreMongo    = "mongo"
	OrderStorePostgres = "postgres"
)

type Config struct {
	HTTPPort        string
	MongoURI        string
	MongoDB         string
	RedisAddr       string
	KafkaBrokers    []string
	OrderStore      string
	Postgres        repository.Credentials
	JWTSecret       string
	JWTTTL          time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:   getEnv("HTTP_PORT", "8080"),
		MongoURI:   getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:    getEnv("MONGO_DB", "foodcart"),
		RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
		OrderStore: strings.ToLower(getEnv("ORDER_STORE", OrderStoreMongo)),
		Postgres: repository.Credentials{
			Host:              getEnv("POSTGRES_HOST", "localhost"),
			User:              getEnv("POSTGRES_USER", "foodcart"),
			Password:          getEnv("POSTGRES_PASSWORD", "foodcart"),
			DBName:            getEnv("POSTGRES_DB", "foodcart"),
			MigrationsDirPath: getEnv("MIGRATIONS_DIR", "./internal/repository/migrations"),
		},
		JWTSecret: os.Getenv("JWT_SECRET"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	for _, b := range strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	var err error
	if cfg.Postgres.Port, err = getEnvInt("POSTGRES_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = getEnvDuration("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.OrderStore != OrderStoreMongo && cfg.OrderStore != OrderStorePostgres {
		return nil, fmt.Errorf("ORDER_STORE must be %q or %q, got %q", OrderStoreMongo, OrderStorePostgres, cfg.OrderStore)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

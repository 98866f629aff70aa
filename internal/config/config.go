package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	RabbitMQ     RabbitMQConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	// StrictForbidden answers 403 instead of 401 when an authenticated
	// caller is not allowed to touch a ticket.
	StrictForbidden bool
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig holds the event exchange settings. An empty URL disables publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from the environment, after merging an optional
// .env file. Unset variables take their defaults; malformed numbers fall back
// to defaults too, except REDIS_DB which must parse.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisCfg, err := loadRedis()
	if err != nil {
		return nil, err
	}

	return &Config{
		App:          loadApp(),
		Postgres:     loadPostgres(),
		Redis:        redisCfg,
		RabbitMQ:     RabbitMQConfig{URL: os.Getenv("RABBITMQ_URL"), Exchange: getEnv("RABBITMQ_EXCHANGE", "support-desk.events")},
		Logger:       LoggerConfig{Level: getEnv("LOG_LEVEL", "info"), Format: getEnv("LOG_FORMAT", "json")},
		Auth:         loadAuth(),
		Notification: NotificationConfig{EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"), WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL")},
	}, nil
}

func loadApp() AppConfig {
	return AppConfig{
		Name:                  getEnv("APP_NAME", "support-desk"),
		Env:                   getEnv("APP_ENV", "development"),
		Host:                  getEnv("APP_HOST", "0.0.0.0"),
		Port:                  getEnv("APP_PORT", "8080"),
		Version:               getEnv("APP_VERSION", "dev"),
		RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		StrictForbidden:       getEnvAsBool("HTTP_STRICT_FORBIDDEN", false),
	}
}

func loadPostgres() PostgresConfig {
	return PostgresConfig{
		DSN:            os.Getenv("POSTGRES_DSN"),
		MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
		MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
		RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", "migrations"),
		ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
		ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
	}
}

func loadRedis() (RedisConfig, error) {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func loadAuth() AuthConfig {
	return AuthConfig{
		JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
		AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
	}
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

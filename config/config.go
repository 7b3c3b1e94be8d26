package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

// Auth modes
const (
	AuthModeUsername = "username"
	AuthModePassword = "password"
)

const devSessionSecret = "dev-insecure-session-secret"

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	LogLevel string
}

type ServerConfig struct {
	Port           string
	Env            string
	RequestTimeout time.Duration
}

type StoreConfig struct {
	Backend         string
	SpreadsheetID   string
	CredentialsJSON string
}

type AuthConfig struct {
	Mode          string
	AdminUsername string
	SessionSecret string
	SessionTTL    time.Duration
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	LockTTL        time.Duration
	IdempotencyTTL time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	TopicOrder    string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
	PrometheusPort string
}

// Enabled reports whether a Redis address was configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Enabled reports whether any Kafka broker was configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Load reads .env (if present) and the environment
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            getEnv("ENV", "development"),
			RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Store: StoreConfig{
			Backend:         strings.ToLower(getEnv("STORE_BACKEND", BackendSheets)),
			SpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
			CredentialsJSON: getEnv("GOOGLE_APP_CREDS_JSON", ""),
		},
		Auth: AuthConfig{
			Mode:          strings.ToLower(getEnv("AUTH_MODE", AuthModeUsername)),
			AdminUsername: getEnv("ADMIN_USERNAME", ""),
			SessionSecret: getEnv("SESSION_SECRET", ""),
			SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_HOURS", 12)) * time.Hour,
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvInt("REDIS_DB", 0),
			LockTTL:        time.Duration(getEnvInt("LOCK_TTL_SECONDS", 30)) * time.Second,
			IdempotencyTTL: time.Duration(getEnvInt("IDEMPOTENCY_TTL_HOURS", 24)) * time.Hour,
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "")),
			TopicOrder:    getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "produce-ledger-audit"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
			PrometheusPort: getEnv("PROMETHEUS_PORT", "9090"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the configuration and fills the development session secret.
// All problems are reported at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendSheets:
		if c.Store.SpreadsheetID == "" {
			errs = append(errs, errors.New("GOOGLE_SPREADSHEET_ID is required for the sheets backend"))
		}
		if c.Store.CredentialsJSON == "" {
			errs = append(errs, errors.New("GOOGLE_APP_CREDS_JSON is required for the sheets backend"))
		}
	case BackendMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("STORE_BACKEND=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendSheets, BackendMemory, c.Store.Backend))
	}

	if c.Auth.Mode != AuthModeUsername && c.Auth.Mode != AuthModePassword {
		errs = append(errs, fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeUsername, AuthModePassword, c.Auth.Mode))
	}
	if c.Auth.SessionSecret == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("SESSION_SECRET is required in production"))
		} else {
			c.Auth.SessionSecret = devSessionSecret
		}
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL_HOURS must be positive"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT_SECONDS must be positive"))
	}
	if c.Redis.Enabled() && c.Redis.LockTTL <= 0 {
		errs = append(errs, errors.New("LOCK_TTL_SECONDS must be positive"))
	}

	return errors.Join(errs...)
}

// Credentials returns the service account key. GOOGLE_APP_CREDS_JSON holds
// either the JSON document itself or a path to it.
func (s StoreConfig) Credentials() ([]byte, error) {
	raw := strings.TrimSpace(s.CredentialsJSON)
	if strings.HasPrefix(raw, "{") {
		return []byte(raw), nil
	}
	data, err := os.ReadFile(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return data, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return val
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "")

	cfg := Load()

	assert.Equal(t, BackendSheets, cfg.Store.Backend)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOCK_TTL_SECONDS", "5")
	t.Setenv("AUTH_MODE", "PASSWORD")

	cfg := Load()

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 5*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, AuthModePassword, cfg.Auth.Mode)
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Env: "development", RequestTimeout: time.Second},
		Store:  StoreConfig{Backend: BackendMemory},
		Auth:   AuthConfig{Mode: AuthModeUsername, SessionTTL: time.Hour},
	}
}

func TestValidateFillsDevSecret(t *testing.T) {
	cfg := validConfig()

	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.Auth.SessionSecret)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Env = "production"
	cfg.Store.Backend = BackendSheets
	cfg.Auth.Mode = "oauth"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "GOOGLE_SPREADSHEET_ID")
	assert.ErrorContains(t, err, "GOOGLE_APP_CREDS_JSON")
	assert.ErrorContains(t, err, "AUTH_MODE")
	assert.ErrorContains(t, err, "SESSION_SECRET")
}

func TestCredentialsInlineOrFile(t *testing.T) {
	inline := StoreConfig{CredentialsJSON: ` {"type":"service_account"}`}
	data, err := inline.Credentials()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(data))

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"file"}`), 0o600))

	data, err = StoreConfig{CredentialsJSON: path}.Credentials()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"file"}`, string(data))

	_, err = StoreConfig{CredentialsJSON: filepath.Join(t.TempDir(), "missing.json")}.Credentials()
	assert.Error(t, err)
}

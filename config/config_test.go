package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
http:
  address: ":9090"
database:
  name: academy
registration:
  hold_ttl_minutes: 0
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, "academy", cfg.Database.Name)
	assert.Equal(t, 15*time.Minute, cfg.Registration.HoldTTL())
	assert.Equal(t, 24*time.Hour, cfg.Registration.WaitlistWindow())
	assert.Equal(t, 10*time.Second, cfg.Providers.Card.Timeout())
	assert.Equal(t, "cohortseat.notifications", cfg.Kafka.NotificationsTopic)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadConfig_RequiresWebhookSecretForBNPLB(t *testing.T) {
	path := writeConfig(t, `
providers:
  bnpl_b:
    base_url: https://b.example
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "webhook_secret")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=disable", d.DSN())
}

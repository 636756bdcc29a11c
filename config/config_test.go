package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
http:
  address: ":8081"
  api_keys_enabled: true
database:
  host: db
  port: 5433
  user: acme
  password: secret
  name: flights
  ssl_mode: disable
storage:
  driver: memory
kafka:
  brokers: ["kafka:9092"]
  booking_events_topic: booking-events
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTP.Address)
	assert.True(t, cfg.HTTP.APIKeysEnabled)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, ":9090", cfg.GRPC.Address)
	assert.Equal(t, 30, cfg.Booking.FlightsCacheTTL)
	assert.Equal(t, 3, cfg.Kafka.PublishAttempts)
	assert.Equal(t, "host=db port=5433 user=acme password=secret dbname=flights sslmode=disable", cfg.Database.DSN())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9999")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTP.Address)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_UnknownDriver(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "storage:\n  driver: sqlite\n"))
	assert.ErrorContains(t, err, "unsupported storage driver")
}

func TestLoadConfig_PublishAttempts(t *testing.T) {
	t.Setenv("KAFKA_PUBLISH_ATTEMPTS", "5")
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Kafka.PublishAttempts)

	_, err = LoadConfig(writeConfig(t, "kafka:\n  publish_attempts: 0\n"))
	assert.ErrorContains(t, err, "publish_attempts")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qdcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 25*time.Millisecond, c.LogicPeriod())
	assert.Equal(t, -1, c.AutosaveSlot)
	assert.Equal(t, "file", c.Storage.Backend)
	assert.NoError(t, c.Validate())
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
version: 1
logic_period_ms: 40
rng_seed: 99
log:
  level: debug
  format: json
storage:
  backend: redis
  redis_url: redis://localhost:6379/0
  ttl: 1h
profiler:
  addr: ":7070"
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40*time.Millisecond, c.LogicPeriod())
	assert.Equal(t, int64(99), c.RNGSeed)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "redis", c.Storage.Backend)
	assert.Equal(t, time.Hour, c.Storage.TTL)
	assert.Equal(t, ":7070", c.Profiler.Addr)
	// Untouched fields keep their defaults.
	assert.Equal(t, 8, c.MaxTicksPerAdvance)
	assert.Equal(t, 256, c.Profiler.Buffer)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"version", "version: 2\n"},
		{"period", "version: 1\nlogic_period_ms: 0\n"},
		{"backend", "version: 1\nstorage:\n  backend: floppy\n"},
		{"yaml", "version: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("QDCORE_LOGIC_PERIOD_MS", "10")
	t.Setenv("QDCORE_RNG_SEED", "7")
	t.Setenv("QDCORE_STORAGE_BACKEND", "postgres")
	t.Setenv("QDCORE_MQTT_BROKER", "tcp://broker:1883")

	secret := filepath.Join(t.TempDir(), "dsn")
	require.NoError(t, os.WriteFile(secret, []byte("postgres://u:p@db/qd\n"), 0o600))
	t.Setenv("QDCORE_POSTGRES_DSN_FILE", secret)

	c := Default()
	require.NoError(t, c.ApplyEnv())

	assert.Equal(t, 10, c.LogicPeriodMS)
	assert.Equal(t, int64(7), c.RNGSeed)
	assert.Equal(t, "postgres", c.Storage.Backend)
	assert.Equal(t, "tcp://broker:1883", c.MQTT.Broker)
	assert.Equal(t, "postgres://u:p@db/qd", c.Storage.PostgresDSN)
}

func TestApplyEnv_BadNumber(t *testing.T) {
	t.Setenv("QDCORE_AUTOSAVE_SLOT", "first")
	assert.Error(t, Default().ApplyEnv())
}

func TestResolveSecret(t *testing.T) {
	t.Setenv("QDCORE_TEST_SECRET", "env-value")
	v, err := ResolveSecret("QDCORE_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "env-value", v)

	t.Setenv("QDCORE_TEST_SECRET_FILE", filepath.Join(t.TempDir(), "absent"))
	_, err = ResolveSecret("QDCORE_TEST_SECRET")
	assert.Error(t, err)
}

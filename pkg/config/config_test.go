package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sgidt-documentos/pkg/config"
)

func TestLoad_DefaultsYEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SII_PROVIDER", "soap")
	t.Setenv("PROCESSOR_INTERVAL_SECONDS", "7")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "soap", cfg.SII.Provider)
	assert.Equal(t, 7*time.Second, cfg.Processor.Interval)
	assert.Equal(t, "local", cfg.Storage.Driver)
}

func TestLoad_GCSSinBucket(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "gcs")
	t.Setenv("GCS_BUCKET", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "sgidt", Password: "p@ss:word", DBName: "sgidt", SSLMode: "disable"}
	assert.Equal(t, "postgres://sgidt:p%40ss%3Aword@db:5432/sgidt?sslmode=disable", c.ConnectionString())
}

func TestLoadClient(t *testing.T) {
	t.Setenv("SGIDT_BASE_URL", "http://api.local:8080/")
	t.Setenv("SGIDT_POLL_SECONDS", "0")

	cfg, err := config.LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://api.local:8080", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestLoad_PoolDB(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "10")
	t.Setenv("DB_PREFER_IPV4", "false")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.DB.MaxConns)
	assert.Equal(t, 2, cfg.DB.MinConns)
	assert.False(t, cfg.DB.PreferIPv4)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("HEATMAP_MATCH", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "menu-images", cfg.UploadBucket)
	assert.Equal(t, 500*time.Millisecond, cfg.ChangePollInterval)
	assert.Equal(t, "exact", cfg.HeatmapMatch)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_DSN", "user:pass@tcp(localhost:3306)/canteen")
	t.Setenv("CHANGE_POLL_INTERVAL", "2s")
	t.Setenv("HEATMAP_MATCH", "range")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 2*time.Second, cfg.ChangePollInterval)
	assert.Equal(t, "range", cfg.HeatmapMatch)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	_, err := Load()
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	loc, err := (&Config{Timezone: "Asia/Kolkata"}).Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	loc, err = (&Config{}).Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoadClientRequiresBackend(t *testing.T) {
	t.Setenv("CANTEEN_URL", "")
	t.Setenv("CANTEEN_ANON_KEY", "")
	_, err := LoadClient()
	assert.ErrorIs(t, err, ErrMissingBackend)

	t.Setenv("CANTEEN_URL", "http://localhost:8080/")
	t.Setenv("CANTEEN_ANON_KEY", "anon")
	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.BackendURL)
	assert.Equal(t, "anon", cfg.AnonKey)
}

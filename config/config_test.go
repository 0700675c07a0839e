package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAppConfig(t *testing.T) {
	cfg := DefaultAppConfig()
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, float64(150), cfg.Drop.ExchangeRate)
	assert.Equal(t, 60, cfg.Drop.RateWindowSecs)
	assert.Equal(t, 3, cfg.Drop.MaxAttemptsPerWindow)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfile := filepath.Join(dir, "sneakerdrop.yml")
	content := `
system:
  workdir: /tmp/sneakerdrop
web:
  port: 8088
database:
  type: bolt
  path: /tmp/sneakerdrop/data.db
drop:
  exchange_rate: 140
  max_attempts_per_window: 5
`
	require.NoError(t, os.WriteFile(cfile, []byte(content), 0o644))

	cfg := LoadConfig(cfile)
	assert.Equal(t, "/tmp/sneakerdrop", cfg.System.Workdir)
	assert.Equal(t, 8088, cfg.Web.Port)
	assert.Equal(t, "bolt", cfg.Database.Type)
	assert.Equal(t, float64(140), cfg.Drop.ExchangeRate)
	assert.Equal(t, 5, cfg.Drop.MaxAttemptsPerWindow)
	// untouched keys keep their defaults
	assert.Equal(t, 60, cfg.Drop.RateWindowSecs)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SNEAKERDROP_DB_TYPE", "bolt")
	t.Setenv("SNEAKERDROP_DROP_MAX_ATTEMPTS", "2")

	cfg := LoadConfig("")
	assert.Equal(t, "bolt", cfg.Database.Type)
	assert.Equal(t, 2, cfg.Drop.MaxAttemptsPerWindow)
}

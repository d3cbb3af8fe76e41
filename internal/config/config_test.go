package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Bans.ChunkSize)
	assert.Equal(t, 200, cfg.Bans.MaxPageSize)
	assert.Equal(t, 20, cfg.Bans.DefaultPageSize)
	assert.False(t, cfg.Bans.RejectPastEndAt)
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	yml := []byte(`
server:
  port: 9000
  mode: production
database:
  host: db.internal
  dbname: bans
bans:
  chunk_size: 50
  max_page_size: 500
  cache_ttl: 10
`)
	require.NoError(t, os.WriteFile(path, yml, 0o600))

	t.Setenv("DB_HOST", "override.internal")
	t.Setenv("JWT_SECRET", "prod-secret")
	t.Setenv("BANS_REJECT_PAST_END_AT", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, "bans", cfg.Database.DBName)
	assert.Equal(t, 50, cfg.Bans.ChunkSize)
	assert.Equal(t, 200, cfg.Bans.MaxPageSize, "max page size is capped at 200")
	assert.Equal(t, int64(10), int64(cfg.Bans.CacheTTLDuration().Seconds()))
	assert.True(t, cfg.Bans.RejectPastEndAt)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 3306, DBName: "db"}
	assert.Equal(t, "u:p@tcp(h:3306)/db?charset=utf8mb4&parseTime=True&loc=UTC", d.GetDSN())
}

func TestLoadRequiresJWTSecretOutsideDevelopment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.prod.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  mode: production\n"), 0o600))
	t.Setenv("JWT_SECRET", "")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "prod-secret")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod-secret", cfg.JWT.Secret)
}

func TestLoadAllowsEmptySecretInDevelopment(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SERVER_MODE", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.JWT.Secret)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadSize)
	assert.Equal(t, "fs", cfg.Server.StorageBackend)
	assert.Equal(t, int64(60), cfg.Server.MinBlacklistTime)
	assert.Equal(t, 100, cfg.Server.ListBlacklistMaxItems)
	assert.False(t, cfg.Server.PublicBlacklist)

	assert.Equal(t, "127.0.0.1", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)

	assert.True(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Redis.ThrowOnErrors)

	assert.True(t, cfg.EntityCache.Enabled)
	assert.Equal(t, 1000, cfg.EntityCache.Limit)
	assert.Equal(t, time.Hour, cfg.EntityCache.TTL)

	assert.False(t, cfg.Maintenance.Enabled)
	assert.Equal(t, 365, cfg.Maintenance.CleanAuditDays)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FEDERATION_LISTEN", ":9090")
	t.Setenv("FEDERATION_DATABASE_HOST", "db.internal")
	t.Setenv("FEDERATION_REDIS_ENABLED", "false")
	t.Setenv("FEDERATION_ENTITY_CACHE_LIMIT", "50")
	t.Setenv("FEDERATION_PUBLIC_BLACKLIST", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 50, cfg.EntityCache.Limit)
	assert.True(t, cfg.Server.PublicBlacklist)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

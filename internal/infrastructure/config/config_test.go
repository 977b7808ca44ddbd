package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "recipe-costing", cfg.App.Name)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "merge", cfg.Import.DefaultPolicy)
	assert.Equal(t, 1, cfg.Import.QueueWorkers)
	assert.Equal(t, int64(10*1024*1024), cfg.Import.MaxUploadBytes)
	assert.Equal(t, 2*time.Second, cfg.DedupWindow)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("DATABASE_PATH", "/tmp/catalog.db")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("APP_IMPORT_DEFAULT_POLICY", "new")
	t.Setenv("LOG_MODE", "concise")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/catalog.db", cfg.Database.Path)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "cache:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "new", cfg.Import.DefaultPolicy)
	assert.Equal(t, "concise", cfg.LogMode)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown policy", map[string]string{"APP_IMPORT_DEFAULT_POLICY": "sometimes"}},
		{"unknown cache backend", map[string]string{"CACHE_BACKEND": "memcached"}},
		{"zero workers", map[string]string{"APP_IMPORT_QUEUE_WORKERS": "0"}},
		{"bad rate limit", map[string]string{"RATE_LIMIT_REQUESTS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "s3...et", MaskSecret("s3cr3t-secret"))
}

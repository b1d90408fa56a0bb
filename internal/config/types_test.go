package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("server:\n  http_port: 9000\ndatabase:\n  driver: memory\n"), 0o644))

	cfg, err := LoadFromFile(p)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30, cfg.Server.RequestTimeout)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Empty(t, cfg.Database.DBName)
	assert.Equal(t, "light", cfg.Preview.Theme)
	assert.Equal(t, "notification-audit", cfg.Elasticsearch.IndexPrefix)
	assert.NoError(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Load()
	cfg.Catalog.Path = "catalog.yaml"
	require.NoError(t, SaveToFile(p, cfg))

	back, err := LoadFromFile(p)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "7001")
	t.Setenv("ES_ENABLED", "yes")
	t.Setenv("ES_ADDRESSES", "http://es1:9200, http://es2:9200,")
	t.Setenv("RATE_LIMIT", "2.5")
	t.Setenv("PREVIEW_THEME", "dark")

	cfg := Load()
	assert.Equal(t, 7001, cfg.Server.HTTPPort)
	assert.True(t, cfg.Elasticsearch.Enabled)
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Equal(t, "dark", cfg.Preview.Theme)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"port", func(c *Config) { c.Server.HTTPPort = 70000 }},
		{"driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"mysql host", func(c *Config) { c.Database.Driver = "mysql"; c.Database.Host = "" }},
		{"sqlite file", func(c *Config) { c.Database.DBName = "" }},
		{"log level", func(c *Config) { c.Logger.Level = "trace" }},
		{"es addresses", func(c *Config) { c.Elasticsearch.Enabled = true; c.Elasticsearch.Addresses = nil }},
		{"theme", func(c *Config) { c.Preview.Theme = "sepia" }},
		{"timeout", func(c *Config) { c.Server.RequestTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.edit(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

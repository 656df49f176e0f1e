package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, 1.0, cfg.Weights.Blacklist)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":0"
redis_addr: "localhost:6379"
virustotal:
  api_key: vt-key
  cache_ttl: 6h
weights:
  blacklist: 1.0
  virustotal: 0.5
feeds:
  - name: openphish
    url: https://feed.example/list.txt
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":0", cfg.HTTPAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "vt-key", cfg.VirusTotal.APIKey)
	assert.Equal(t, 6*time.Hour, cfg.VirusTotal.CacheTTL.Std())
	assert.Equal(t, 0.5, cfg.Weights.VirusTotal)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "openphish", cfg.Feeds[0].Name)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":1234\"\n"), 0o600))

	t.Setenv("PS_HTTP_ADDR", ":5678")
	t.Setenv("PS_VIRUSTOTAL_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":5678", cfg.HTTPAddr)
	assert.Equal(t, "from-env", cfg.VirusTotal.APIKey)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

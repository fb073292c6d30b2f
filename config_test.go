package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "agent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, time.Minute, cfg.ThrottleWindow)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 2.0, cfg.BackoffBase)
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "agent.yaml", []byte(`
onebot:
  url: ws://bot:6700
  access_token: s3cret
  action_timeout: 3s
data_dir: /var/lib/nekocard
store:
  backend: redis
  redis_addr: redis:6379
throttle_window: 90s
max_retries: 5
probe:
  target: 1.1.1.1:443
log:
  format: json
`))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://bot:6700", cfg.OneBot.URL)
	assert.Equal(t, "s3cret", cfg.OneBot.AccessToken)
	assert.Equal(t, 3*time.Second, cfg.OneBot.ActionTimeout)
	assert.Equal(t, 5*time.Second, cfg.OneBot.ReconnectInterval)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, defaultRedisKey, cfg.Store.RedisKey)
	assert.Equal(t, 90*time.Second, cfg.ThrottleWindow)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 2.0, cfg.BackoffBase)
	assert.Equal(t, 3, cfg.Probe.Count)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join("/var/lib/nekocard", "name.yml"), cfg.TemplatePath())
	assert.Equal(t, filepath.Join("/var/lib/nekocard", "system_info.yml"), cfg.SnapshotPath())
}

func TestLoadConfig_ZeroValuesFallBack(t *testing.T) {
	path := writeFile(t, t.TempDir(), "agent.yaml", []byte("max_retries: 0\ntriggers: []\nbackoff_base: -1\n"))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, defaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, defaultTriggers, cfg.Triggers)
	assert.Equal(t, defaultBackoffBase, cfg.BackoffBase)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"malformed":       "onebot: [",
		"unknown backend": "store:\n  backend: etcd\n",
		"unknown format":  "log:\n  format: xml\n",
		"bad duration":    "throttle_window: soon\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, "agent.yaml", []byte(body))
			_, err := loadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger(LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = newLogger(LogConfig{Level: "loud", Format: "console"})
	assert.Error(t, err)
}

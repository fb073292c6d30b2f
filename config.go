package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	OneBot            OneBotConfig  `yaml:"onebot"`
	Triggers          []string      `yaml:"triggers"`
	DataDir           string        `yaml:"data_dir"`
	Store             StoreConfig   `yaml:"store"`
	ThrottleWindow    time.Duration `yaml:"throttle_window"`
	MaxRetries        int           `yaml:"max_retries"`
	BackoffBase       float64       `yaml:"backoff_base"`
	CPUSampleInterval time.Duration `yaml:"cpu_sample_interval"`
	Probe             ProbeConfig   `yaml:"probe"`
	HTTP              HTTPConfig    `yaml:"http"`
	Log               LogConfig     `yaml:"log"`
}

type OneBotConfig struct {
	URL               string        `yaml:"url"`
	AccessToken       string        `yaml:"access_token"`
	ActionTimeout     time.Duration `yaml:"action_timeout"`
	ActionRate        float64       `yaml:"action_rate"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

type ProbeConfig struct {
	Target  string        `yaml:"target"`
	Count   int           `yaml:"count"`
	Timeout time.Duration `yaml:"timeout"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"`
	Token  string `yaml:"token"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TemplatePath is the user-editable card template.
func (c *Config) TemplatePath() string {
	return filepath.Join(c.DataDir, "name.yml")
}

// SnapshotPath is where the file store keeps the latest snapshot.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "system_info.yml")
}

func defaultConfig() *Config {
	return &Config{
		OneBot: OneBotConfig{
			URL:               "ws://127.0.0.1:3001",
			ActionTimeout:     10 * time.Second,
			ActionRate:        5,
			ReconnectInterval: 5 * time.Second,
		},
		Triggers: append([]string(nil), defaultTriggers...),
		DataDir:  filepath.Join("data", "plugins", "astrbot_plugin_botName"),
		Store: StoreConfig{
			Backend:   "file",
			RedisAddr: "127.0.0.1:6379",
			RedisKey:  defaultRedisKey,
		},
		ThrottleWindow:    defaultThrottleWindow,
		MaxRetries:        defaultMaxRetries,
		BackoffBase:       defaultBackoffBase,
		CPUSampleInterval: time.Second,
		Probe: ProbeConfig{
			Count:   3,
			Timeout: time.Second,
		},
		HTTP: HTTPConfig{
			Listen: "127.0.0.1:9110",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.fillDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillDefaults restores defaults for keys the file set to zero values.
func (c *Config) fillDefaults() {
	def := defaultConfig()
	if c.OneBot.URL == "" {
		c.OneBot.URL = def.OneBot.URL
	}
	if c.OneBot.ActionTimeout <= 0 {
		c.OneBot.ActionTimeout = def.OneBot.ActionTimeout
	}
	if c.OneBot.ReconnectInterval <= 0 {
		c.OneBot.ReconnectInterval = def.OneBot.ReconnectInterval
	}
	if len(c.Triggers) == 0 {
		c.Triggers = def.Triggers
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.Store.Backend == "" {
		c.Store.Backend = def.Store.Backend
	}
	if c.Store.RedisKey == "" {
		c.Store.RedisKey = def.Store.RedisKey
	}
	if c.ThrottleWindow <= 0 {
		c.ThrottleWindow = def.ThrottleWindow
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = def.BackoffBase
	}
	if c.CPUSampleInterval <= 0 {
		c.CPUSampleInterval = def.CPUSampleInterval
	}
	if c.Probe.Count <= 0 {
		c.Probe.Count = def.Probe.Count
	}
	if c.Probe.Timeout <= 0 {
		c.Probe.Timeout = def.Probe.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration, loaded from server.yaml.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`
	StaticDir  string `yaml:"static_dir"`
	LogDir     string `yaml:"log_dir"`

	AuthCookieName      string `yaml:"auth_cookie_name"`
	AuthCookieExpirySec int    `yaml:"auth_cookie_expiry_sec"`
	SessionTTLSec       int    `yaml:"session_ttl_sec"`

	CronBaseDelaySec int `yaml:"cron_base_delay_sec"`
	SimIntervalSec   int `yaml:"sim_interval_sec"`
	DumpIntervalSec  int `yaml:"dump_interval_sec"`

	QueuePollTimeoutSec int `yaml:"queue_poll_timeout_sec"`

	WorldSeed       int64 `yaml:"world_seed"`
	NumberOfPlanets int   `yaml:"number_of_planets"`
}

func Defaults() Config {
	return Config{
		ListenAddr:          ":8080",
		DataDir:             "./data",
		StaticDir:           "./static",
		LogDir:              "./data/logs",
		AuthCookieName:      "zauth",
		AuthCookieExpirySec: 14 * 24 * 3600,
		SessionTTLSec:       3600,
		CronBaseDelaySec:    1,
		SimIntervalSec:      10,
		DumpIntervalSec:     3600,
		QueuePollTimeoutSec: 4,
		WorldSeed:           1337,
		NumberOfPlanets:     100,
	}
}

// Load reads a yaml config; missing keys keep their default values.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("server.yaml: %w", err)
	}
	if err := c.validate(); err != nil {
		return c, fmt.Errorf("server.yaml: %w", err)
	}
	return c, nil
}

func (c Config) validate() error {
	if c.SimIntervalSec <= 0 {
		return fmt.Errorf("sim_interval_sec must be > 0, got %d", c.SimIntervalSec)
	}
	if c.DumpIntervalSec <= 0 {
		return fmt.Errorf("dump_interval_sec must be > 0, got %d", c.DumpIntervalSec)
	}
	if c.CronBaseDelaySec <= 0 {
		return fmt.Errorf("cron_base_delay_sec must be > 0, got %d", c.CronBaseDelaySec)
	}
	if c.QueuePollTimeoutSec <= 0 {
		return fmt.Errorf("queue_poll_timeout_sec must be > 0, got %d", c.QueuePollTimeoutSec)
	}
	if c.NumberOfPlanets <= 0 {
		return fmt.Errorf("number_of_planets must be > 0, got %d", c.NumberOfPlanets)
	}
	return nil
}

func (c Config) AuthCookieExpiry() time.Duration {
	return time.Duration(c.AuthCookieExpirySec) * time.Second
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}

func (c Config) CronBaseDelay() time.Duration {
	return time.Duration(c.CronBaseDelaySec) * time.Second
}

func (c Config) SimInterval() time.Duration {
	return time.Duration(c.SimIntervalSec) * time.Second
}

func (c Config) DumpInterval() time.Duration {
	return time.Duration(c.DumpIntervalSec) * time.Second
}

func (c Config) QueuePollTimeout() time.Duration {
	return time.Duration(c.QueuePollTimeoutSec) * time.Second
}

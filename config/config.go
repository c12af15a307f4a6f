package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/scheduler"
	"github.com/HGFantasy/TPF2-Timetables-sub001/infra/replication"
)

// Config is the settings store read at startup. Every core cadence and
// every infra adapter takes its parameters from here.
type Config struct {
	Scheduler   scheduler.Config   `json:"scheduler"`
	Cache       CacheConfig        `json:"cache"`
	Replication replication.Config `json:"replication"`
	Metrics     MetricsConfig      `json:"metrics"`
	Snapshot    SnapshotConfig     `json:"snapshot"`
}

// CacheConfig bounds the staleness of the line-frequency cache.
type CacheConfig struct {
	TTLSeconds int64 `json:"ttl_seconds"`
}

// SetDefaults applies sane defaults.
func (c *CacheConfig) SetDefaults() {
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = 5
	}
}

// MetricsConfig selects the observability backends.
type MetricsConfig struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9090"
	}
}

// Validate checks backend parameters.
func (c MetricsConfig) Validate() error {
	if c.InfluxEnabled && c.InfluxURL == "" {
		return fmt.Errorf("influx_url is required when influx is enabled")
	}
	return nil
}

// SnapshotConfig locates the persisted store snapshot.
type SnapshotConfig struct {
	Path string `json:"path"`
	Keep int    `json:"keep"`
}

// SetDefaults applies sane defaults.
func (c *SnapshotConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "timetables.db"
	}
	if c.Keep <= 0 {
		c.Keep = 10
	}
}

// Load reads the configuration file (YAML or JSON) and applies
// environment overrides with the K_ prefix.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, used when
// no config file is given.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.Scheduler.SetDefaults()
	c.Cache.SetDefaults()
	c.Replication.SetDefaults()
	c.Metrics.SetDefaults()
	c.Snapshot.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if err := c.Replication.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}

// Settings exposes the replication-relevant settings attached to every
// emitted snapshot, so the read-only consumer mirrors the operator's
// cadences.
func (c *Config) Settings() map[string]any {
	return map[string]any{
		"tick_seconds":        c.Scheduler.TickSeconds,
		"gc_interval_seconds": c.Scheduler.GCIntervalSeconds,
		"cache_ttl_seconds":   c.Cache.TTLSeconds,
	}
}

// Package config loads daemon configuration from an optional YAML file with
// environment variable overrides on top.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"pagesentry/internal/aggregator"
)

// Duration is a time.Duration that unmarshals from the usual "12h" string
// form in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Provider configures one external reputation source.
type Provider struct {
	APIKey   string   `yaml:"api_key"`
	Endpoint string   `yaml:"endpoint"`
	CacheTTL Duration `yaml:"cache_ttl"`
}

// Feed is one remote blocklist source.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Retry tunes the shared provider retry policy.
type Retry struct {
	MaxAttempts int      `yaml:"max_attempts"`
	BaseDelay   Duration `yaml:"base_delay"`
}

// Config is the full daemon configuration.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	// RedisAddr switches cache and storage to redis when set; empty keeps
	// everything in memory.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	PhishTank    Provider `yaml:"phishtank"`
	SafeBrowsing Provider `yaml:"safe_browsing"`
	VirusTotal   Provider `yaml:"virustotal"`

	Retry   Retry              `yaml:"retry"`
	Weights aggregator.Weights `yaml:"weights"`
	Feeds   []Feed             `yaml:"feeds"`
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment variables.
func Load(path string) (*Config, error) {
	cfg := &Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		Weights:     aggregator.DefaultWeights(),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.HTTPAddr = getEnv("PS_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = getEnv("PS_METRICS_ADDR", cfg.MetricsAddr)
	cfg.RedisAddr = getEnv("PS_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("PS_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.PhishTank.APIKey = getEnv("PS_PHISHTANK_APP_KEY", cfg.PhishTank.APIKey)
	cfg.SafeBrowsing.APIKey = getEnv("PS_SAFEBROWSING_API_KEY", cfg.SafeBrowsing.APIKey)
	cfg.VirusTotal.APIKey = getEnv("PS_VIRUSTOTAL_API_KEY", cfg.VirusTotal.APIKey)

	return cfg, nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

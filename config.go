// CLAUDE:SUMMARY Configuration structs (sources, fetch, scheduler) and YAML loader for storefeed.
package storefeed

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes YAML strings like "30s" or "1h".
// A bare integer is read as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler. The node tag distinguishes the
// two forms: yaml decodes an int scalar into a string just as happily, so
// string-first detection would never reach the seconds branch.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
		}
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: invalid duration %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all storefeed configuration.
type Config struct {
	DBPath    string          `yaml:"db_path"`
	Listen    string          `yaml:"listen"`
	Sources   SourcesConfig   `yaml:"sources"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// SourcesConfig names the upstream endpoint per entity kind.
type SourcesConfig struct {
	Products string `yaml:"products"`
	Users    string `yaml:"users"`
}

// FetchConfig controls the upstream HTTP fetcher.
type FetchConfig struct {
	Timeout   Duration `yaml:"timeout"`
	MaxBytes  int64    `yaml:"max_bytes"`
	UserAgent string   `yaml:"user_agent"`
}

// SchedulerConfig controls periodic pipeline runs. A zero Interval disables
// the scheduler; the pipeline then only runs at startup and on demand.
type SchedulerConfig struct {
	Interval Duration `yaml:"interval"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "storefeed.db"
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = Duration(30 * time.Second)
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = 10 * 1024 * 1024
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "storefeed/1.0"
	}
}

// Validate reports missing required settings.
func (c *Config) Validate() error {
	if c.Sources.Products == "" {
		return fmt.Errorf("config: sources.products is required")
	}
	if c.Sources.Users == "" {
		return fmt.Errorf("config: sources.users is required")
	}
	return nil
}

// LoadConfigFile reads a YAML config file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	return cfg, nil
}

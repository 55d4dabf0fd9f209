package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/jarcodallo/knex/dialect"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when no --config flag is given.
const DefaultConfigFile = "knex.yaml"

// Config is the CLI configuration file.
type Config struct {
	// Default names the target used without --target.
	Default string             `yaml:"default"`
	Targets map[string]*Target `yaml:"targets"`
}

// Target is a database the CLI can connect to.
type Target struct {
	Dialect string `yaml:"dialect"`
	// DSN is expanded with environment variables before use.
	DSN string `yaml:"dsn"`
	// Database overrides the database name derived from the DSN.
	Database string `yaml:"database"`
}

// Validate checks the target.
func (t *Target) Validate() error {
	if t.Dialect == "" {
		return errors.New("target dialect is required")
	}
	d, err := dialect.Canonical(t.Dialect)
	if err != nil {
		return err
	}
	t.Dialect = d
	return nil
}

// LoadConfig reads the configuration file. Without path, DefaultConfigFile
// is read if it exists.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return &Config{}, nil
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	for name, t := range cfg.Targets {
		if t == nil {
			return nil, fmt.Errorf("target %q is empty", name)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("target %q: %w", name, err)
		}
		t.DSN = os.ExpandEnv(t.DSN)
	}
	if cfg.Default != "" {
		if _, ok := cfg.Targets[cfg.Default]; !ok {
			return nil, fmt.Errorf("default target %q is not defined", cfg.Default)
		}
	}
	return cfg, nil
}

// Target returns the named target, or the default one.
func (c *Config) Target(name string) (*Target, error) {
	if name == "" {
		name = c.Default
	}
	if name == "" {
		if len(c.Targets) == 1 {
			for _, t := range c.Targets {
				return t, nil
			}
		}
		return nil, fmt.Errorf("no target selected, use --target (available: %v)", c.names())
	}
	t, ok := c.Targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown target %q (available: %v)", name, c.names())
	}
	return t, nil
}

func (c *Config) names() []string {
	names := make([]string, 0, len(c.Targets))
	for n := range c.Targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

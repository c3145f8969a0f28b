// Package config loads the CLI configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the dirwatch CLI configuration.
type Config struct {
	Env      string `yaml:"env" env:"DIRWATCH_ENV" env-default:"development"`
	LogLevel string `yaml:"log_level" env:"DIRWATCH_LOG_LEVEL" env-default:"info"`

	Watch WatchConfig `yaml:"watch"`
}

// WatchConfig maps onto dirwatch.Options.
type WatchConfig struct {
	Dir             string        `yaml:"dir" env:"DIRWATCH_DIR"`
	Globs           []string      `yaml:"globs" env:"DIRWATCH_GLOBS"`
	IgnoreGlobs     []string      `yaml:"ignore_globs" env:"DIRWATCH_IGNORE_GLOBS"`
	Interval        time.Duration `yaml:"interval" env:"DIRWATCH_INTERVAL" env-default:"30s"`
	StableThreshold int           `yaml:"stable_threshold" env:"DIRWATCH_STABLE_THRESHOLD"`
	PreLoad         bool          `yaml:"pre_load" env:"DIRWATCH_PRE_LOAD"`
	PersistPath     string        `yaml:"persist_path" env:"DIRWATCH_PERSIST_PATH"`
	SortBy          string        `yaml:"sort_by" env:"DIRWATCH_SORT_BY" env-default:"path"`
	OrderBy         string        `yaml:"order_by" env:"DIRWATCH_ORDER_BY" env-default:"ascending"`
	Backend         string        `yaml:"backend" env:"DIRWATCH_BACKEND" env-default:"poll"`
	MaxIterations   int           `yaml:"max_iterations" env:"DIRWATCH_MAX_ITERATIONS"`
}

// Load reads the configuration. With an empty path only environment
// variables and defaults apply; with a path the file must exist.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read config from environment: %w", err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	return &cfg, nil
}

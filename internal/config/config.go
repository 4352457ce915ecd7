// ABOUTME: Viper-backed configuration for PatchRelay, including the managed project list.
// ABOUTME: Defaults, environment overrides (PATCHRELAY_*) and validation live here.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/spf13/viper"
)

// ErrInvalidProject is returned when the project list is malformed
var ErrInvalidProject = errors.New("invalid project configuration")

// EnvPrefix is prepended to every environment override
const EnvPrefix = "PATCHRELAY"

// CacheConfig controls project cache persistence and expiry
type CacheConfig struct {
	Persist bool          `mapstructure:"persist"`
	TTL     time.Duration `mapstructure:"ttl"`
	Jitter  time.Duration `mapstructure:"jitter"`
}

// Config is the resolved application configuration
type Config struct {
	Port            int                   `mapstructure:"port"`
	DataDir         string                `mapstructure:"data_dir"`
	Cache           CacheConfig           `mapstructure:"cache"`
	CommandTimeout  time.Duration         `mapstructure:"command_timeout"`
	RefreshInterval time.Duration         `mapstructure:"refresh_interval"`
	HistoryLimit    int                   `mapstructure:"history_limit"`
	LogLevel        string                `mapstructure:"log_level"`
	LogFile         string                `mapstructure:"log_file"`
	Mock            bool                  `mapstructure:"mock"`
	Projects        []types.ProjectConfig `mapstructure:"projects"`
}

// DefaultDataDir is $HOME/.patchrelay, or ./.patchrelay when no home is known
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".patchrelay"
	}
	return filepath.Join(home, ".patchrelay")
}

// SetDefaults registers every key's default and wires environment overrides
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 9090)
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("cache.persist", true)
	v.SetDefault("cache.ttl", 60*time.Minute)
	v.SetDefault("cache.jitter", 15*time.Minute)
	v.SetDefault("command_timeout", 30*time.Second)
	v.SetDefault("refresh_interval", 15*time.Minute)
	v.SetDefault("history_limit", 500)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("mock", false)
	v.SetDefault("projects", []map[string]interface{}{})
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and the project list
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.Jitter < 0 {
		return fmt.Errorf("cache.jitter must not be negative, got %s", c.Cache.Jitter)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be positive, got %s", c.CommandTimeout)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}

	seen := make(map[string]bool, len(c.Projects))
	for i, p := range c.Projects {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("%w: project %d has no id", ErrInvalidProject, i)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate project id %q", ErrInvalidProject, p.ID)
		}
		seen[p.ID] = true
		if strings.TrimSpace(p.Path) == "" {
			return fmt.Errorf("%w: project %q has no path", ErrInvalidProject, p.ID)
		}
	}
	return nil
}

// Project looks up a project by id
func (c *Config) Project(id string) (types.ProjectConfig, bool) {
	for _, p := range c.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return types.ProjectConfig{}, false
}

// CacheDir holds one cache file per project
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// StatePath is the aggregate patch state file
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "patch-state.json")
}

// HistoryPath is the applied-update history file
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "patch-history.json")
}

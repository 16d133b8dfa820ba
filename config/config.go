// Package config loads runtime configuration from defaults, an optional
// config file, environment variables, and command-line flags, and exposes
// the defer-to-parent UUID prefix list as hot-reloadable via fsnotify.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds one instance's runtime settings.
type Config struct {
	ServiceName   string
	ListenAddr    string
	ColdCacheSize int

	mu                    sync.RWMutex
	deferToParentPrefixes []string
}

// DeferToParentPrefixes returns the current UUID prefix list this instance
// always defers to its parent frame rather than claiming ownership of
// itself. Safe to call concurrently with a config-file reload.
func (c *Config) DeferToParentPrefixes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.deferToParentPrefixes...)
}

func (c *Config) setDeferToParentPrefixes(v []string) {
	c.mu.Lock()
	c.deferToParentPrefixes = v
	c.mu.Unlock()
}

type fileConfig struct {
	ServiceName           string   `mapstructure:"service_name"`
	ListenAddr            string   `mapstructure:"listen_addr"`
	ColdCacheSize         int      `mapstructure:"cold_cache_size"`
	DeferToParentPrefixes []string `mapstructure:"defer_to_parent_prefixes"`
}

// LoadConfig builds a Config from defaults, configFile (if non-empty), the
// VALUEGRAPH_-prefixed environment, and flags (if non-nil), in ascending
// precedence. When configFile is set, it is watched and a change to
// defer_to_parent_prefixes is applied live.
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VALUEGRAPH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("service_name", "valuegraph")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("cold_cache_size", 128)
	v.SetDefault("defer_to_parent_prefixes", []string{})

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg := &Config{
		ServiceName:   fc.ServiceName,
		ListenAddr:    fc.ListenAddr,
		ColdCacheSize: fc.ColdCacheSize,
	}
	cfg.setDeferToParentPrefixes(fc.DeferToParentPrefixes)

	if configFile != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			var reloaded fileConfig
			if err := v.Unmarshal(&reloaded); err != nil {
				slog.Error("config reload failed", slog.Any("err", err))
				return
			}
			cfg.setDeferToParentPrefixes(reloaded.DeferToParentPrefixes)
			slog.Info("defer-to-parent prefixes reloaded", slog.Any("prefixes", reloaded.DeferToParentPrefixes))
		})
		v.WatchConfig()
	}

	return cfg, nil
}

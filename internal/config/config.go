// Package config loads the shell's runtime configuration: log level,
// debug listen address, poll interval, and fetch timeout, via viper so
// it can come from defaults, a config file, or environment variables in
// the usual precedence order; no command-line flags are bound. The provider list itself is a separate,
// much simpler line-oriented file (see ProviderList) rather than part of
// the viper-backed config, per the one-URL-per-line format it's kept in.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the shell's tunables.
type Config struct {
	LogLevel          string        `mapstructure:"log_level"`
	DebugListenAddr   string        `mapstructure:"debug_listen_addr"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	ProviderListPath  string        `mapstructure:"provider_list_path"`
}

// Load builds a Config from (in increasing precedence) defaults, an
// optional config file at path, and SAQ_-prefixed environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("log_level", "info")
	v.SetDefault("debug_listen_addr", "127.0.0.1:9090")
	v.SetDefault("poll_interval", 30*time.Second)
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("provider_list_path", "providers.txt")

	v.SetEnvPrefix("saq")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	return &cfg, nil
}

// ProviderList reads the provider URL list: one URL per line, blank
// lines and '#'-prefixed comments ignored. If path doesn't exist, it is
// created empty so a fresh shell has somewhere to add providers to.
func ProviderList(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		if createErr := os.WriteFile(path, nil, 0o644); createErr != nil {
			return nil, fmt.Errorf("config: creating provider list %s: %w", path, createErr)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: opening provider list %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: reading provider list %s: %w", path, err)
	}
	return urls, nil
}

// Package config loads service configuration from file and environment and
// builds the logger from it.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultSourceURL is the canonical buildings feed.
const DefaultSourceURL = "https://frontend-interview-mock-data.s3.eu-central-1.amazonaws.com/mock-buildings-devices.json"

// Load reads configuration from the given file (or `bdash.yaml` in the
// working directory and /etc/bdash when empty) and BDASH_* environment
// variables, applying defaults for everything else.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("cache.path", "./data/bdash.db")
	v.SetDefault("source.url", DefaultSourceURL)
	v.SetDefault("source.timeout", "30s")
	v.SetDefault("ingest.emit_interval", "250ms")
	v.SetDefault("ingest.preview_delay", "1200ms")
	v.SetDefault("ingest.preview_bytes", 2_000_000)
	v.SetDefault("ingest.preview_header_cap", 8)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("bdash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/bdash")
	}

	v.SetEnvPrefix("BDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env apply.
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// ListenAddr returns the configured host:port listen address.
func ListenAddr(v *viper.Viper) string {
	return fmt.Sprintf("%s:%d", v.GetString("server.host"), v.GetInt("server.port"))
}

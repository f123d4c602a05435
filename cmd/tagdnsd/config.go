package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DaemonConfig is the optional ambient YAML configuration for the daemon
// process itself. It never touches DNS wire behavior — only where the
// binary Protobuf config is read from, where metrics are served, and how
// verbose logging is.
type DaemonConfig struct {
	ConfigPath  string `yaml:"config_path"`
	MetricsAddr string `yaml:"metrics_addr"`
	Verbose     bool   `yaml:"verbose"`
	RateLimit   struct {
		PerSecond float64 `yaml:"per_second"`
		Burst     int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// defaultDaemonConfig matches the behavior of running with no -config flag
// at all: read /__config__, serve metrics on 127.0.0.1:9153, no rate
// limiting, quiet logging.
func defaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		ConfigPath:  "/__config__",
		MetricsAddr: "127.0.0.1:9153",
	}
}

func loadDaemonConfig(path string) (DaemonConfig, error) {
	cfg := defaultDaemonConfig()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	// config_path has no meaningful "disabled" state, so an explicit empty
	// value is treated the same as an absent one. metrics_addr is left
	// exactly as unmarshaled: an explicit "" is how an operator disables
	// the metrics listener, and yaml.Unmarshal only overwrites keys present
	// in the file, so omitting the key entirely already preserves the
	// 127.0.0.1:9153 default set above.
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = "/__config__"
	}
	return cfg, nil
}

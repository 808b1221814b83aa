package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// loadFromEnv overrides config from TODO_* environment variables.
// If sources is non-nil, it tracks the source of each value.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) error {
	track := func(field string) {
		if sources != nil {
			sources[field] = SourceEnv
		}
	}
	envInt := func(name, field string, target *int) error {
		v := os.Getenv(name)
		if v == "" {
			return nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", name, v)
		}
		*target = i
		track(field)
		return nil
	}

	if v := os.Getenv("TODO_STORE"); v != "" {
		cfg.Store.Driver = v
		track("store.driver")
	}
	if v := os.Getenv("TODO_DB"); v != "" {
		cfg.Store.DBPath = v
		track("store.db_path")
	}
	if v := os.Getenv("TODO_JSON"); v != "" {
		cfg.Store.JSONPath = v
		track("store.json_path")
	}
	if v := os.Getenv("TODO_POSTGRES_DSN"); v != "" {
		cfg.Store.PostgresDSN = v
		track("store.postgres_dsn")
	}
	if v := os.Getenv("TODO_WATCH"); v != "" {
		cfg.Store.Watch = boolFromString(v)
		track("store.watch")
	}
	if err := envInt("TODO_LINGER_MS", "ui.linger_ms", &cfg.UI.LingerMS); err != nil {
		return err
	}
	if err := envInt("TODO_WORKERS", "ui.workers", &cfg.UI.Workers); err != nil {
		return err
	}

	// Logging configuration
	if v := os.Getenv("TODO_LOG_DIR"); v != "" {
		cfg.LogDir = v
		track("log_dir")
	}
	if v := os.Getenv("TODO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
		track("log_level")
	}
	if v := os.Getenv("TODO_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
		track("log_format")
	}
	if v := os.Getenv("TODO_LOG_TIMESTAMPS"); v != "" {
		cfg.LogTimestamps = boolFromString(v)
		track("log_timestamps")
	}
	if v := os.Getenv("TODO_LOG_CALLER"); v != "" {
		cfg.LogCaller = boolFromString(v)
		track("log_caller")
	}
	return nil
}

// boolFromString parses a boolean from a string.
func boolFromString(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

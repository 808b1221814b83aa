package config

import (
	"strconv"

	"github.com/nibzard/todo-go/internal/logging"
	"github.com/nibzard/todo-go/internal/store"
)

// StoreOptions returns the options for store.Open.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:      c.Store.Driver,
		DBPath:      c.Store.DBPath,
		JSONPath:    c.Store.JSONPath,
		PostgresDSN: c.Store.PostgresDSN,
		Watch:       c.Store.Watch,
	}
}

// LogOptions returns logger options built from the logging settings.
func (c *Config) LogOptions() (logging.Options, error) {
	opts := logging.DefaultOptions()

	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return opts, err
	}
	formatter, err := logging.ParseFormatter(c.LogFormat)
	if err != nil {
		return opts, err
	}

	opts.Level = level
	opts.Formatter = formatter
	opts.ReportTimestamp = c.LogTimestamps
	opts.ReportCaller = c.LogCaller
	return opts, nil
}

// Setting is one configuration value and where it came from.
type Setting struct {
	Name   string
	Value  string
	Source ConfigSource
}

// Settings lists every configurable value in a fixed order. The Postgres
// DSN is masked since it usually carries a password.
func (cws *ConfigWithSources) Settings() []Setting {
	fields := configFields()
	settings := make([]Setting, 0, len(fields))
	for _, name := range fields {
		settings = append(settings, Setting{
			Name:   name,
			Value:  fieldValue(cws.Config, name),
			Source: cws.Sources[name],
		})
	}
	return settings
}

func fieldValue(c *Config, name string) string {
	switch name {
	case "store.driver":
		return c.Store.Driver
	case "store.db_path":
		return c.Store.DBPath
	case "store.json_path":
		return c.Store.JSONPath
	case "store.postgres_dsn":
		if c.Store.PostgresDSN == "" {
			return ""
		}
		return "(set)"
	case "store.watch":
		return strconv.FormatBool(c.Store.Watch)
	case "ui.linger_ms":
		return strconv.Itoa(c.UI.LingerMS)
	case "ui.workers":
		return strconv.Itoa(c.UI.Workers)
	case "log_dir":
		return c.LogDir
	case "log_level":
		return c.LogLevel
	case "log_format":
		return c.LogFormat
	case "log_timestamps":
		return strconv.FormatBool(c.LogTimestamps)
	case "log_caller":
		return strconv.FormatBool(c.LogCaller)
	}
	return ""
}

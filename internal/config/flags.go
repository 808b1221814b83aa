package config

import (
	"flag"
)

// parseFlags defines the config flags on fs, parses args and applies the
// flags that were set. If sources is non-nil, it tracks the source of each value.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("todo", flag.ContinueOnError)
	}

	// Flags bind to copies so that only explicitly set ones are applied.
	v := *cfg
	flagToField := map[string]string{
		"store":          "store.driver",
		"db":             "store.db_path",
		"json":           "store.json_path",
		"postgres-dsn":   "store.postgres_dsn",
		"watch":          "store.watch",
		"linger-ms":      "ui.linger_ms",
		"workers":        "ui.workers",
		"log-dir":        "log_dir",
		"log-level":      "log_level",
		"log-format":     "log_format",
		"log-timestamps": "log_timestamps",
		"log-caller":     "log_caller",
	}

	// Store
	fs.StringVar(&v.Store.Driver, "store", cfg.Store.Driver, "Task store driver (sqlite, postgres, json)")
	fs.StringVar(&v.Store.DBPath, "db", cfg.Store.DBPath, "SQLite database path")
	fs.StringVar(&v.Store.JSONPath, "json", cfg.Store.JSONPath, "Task file path for the json driver")
	fs.StringVar(&v.Store.PostgresDSN, "postgres-dsn", cfg.Store.PostgresDSN, "PostgreSQL connection string")
	fs.BoolVar(&v.Store.Watch, "watch", cfg.Store.Watch, "Reload when the task file changes on disk (json driver)")

	// UI
	fs.IntVar(&v.UI.LingerMS, "linger-ms", cfg.UI.LingerMS, "Keep the task subscription alive this long after the view stops observing (ms)")
	fs.IntVar(&v.UI.Workers, "workers", cfg.UI.Workers, "Concurrent intent workers")

	// Logging
	fs.StringVar(&v.LogDir, "log-dir", cfg.LogDir, "Log directory")
	fs.StringVar(&v.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&v.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&v.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	fs.BoolVar(&v.LogCaller, "log-caller", cfg.LogCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		field, ok := flagToField[f.Name]
		if !ok {
			return
		}
		applyField(cfg, &v, field)
		if sources != nil {
			sources[field] = SourceFlag
		}
	})

	return nil
}

// applyField copies a single field from src to dst.
func applyField(dst, src *Config, field string) {
	switch field {
	case "store.driver":
		dst.Store.Driver = src.Store.Driver
	case "store.db_path":
		dst.Store.DBPath = src.Store.DBPath
	case "store.json_path":
		dst.Store.JSONPath = src.Store.JSONPath
	case "store.postgres_dsn":
		dst.Store.PostgresDSN = src.Store.PostgresDSN
	case "store.watch":
		dst.Store.Watch = src.Store.Watch
	case "ui.linger_ms":
		dst.UI.LingerMS = src.UI.LingerMS
	case "ui.workers":
		dst.UI.Workers = src.UI.Workers
	case "log_dir":
		dst.LogDir = src.LogDir
	case "log_level":
		dst.LogLevel = src.LogLevel
	case "log_format":
		dst.LogFormat = src.LogFormat
	case "log_timestamps":
		dst.LogTimestamps = src.LogTimestamps
	case "log_caller":
		dst.LogCaller = src.LogCaller
	}
}

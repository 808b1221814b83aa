package config

import "time"

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, user file first.
	Files []string
}

// Default values.
const (
	DefaultDriver    = "sqlite"
	DefaultDBPath    = "~/.todo/tasks.db"
	DefaultJSONPath  = "~/.todo/tasks.json"
	DefaultLogDir    = "~/.todo/logs"
	DefaultLingerMS  = 5000
	DefaultWorkers   = 1
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config holds the full configuration for todo.
type Config struct {
	Store StoreConfig `toml:"store"`
	UI    UIConfig    `toml:"ui"`

	// Logging configuration
	LogDir        string `toml:"log_dir"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`
}

// StoreConfig selects and configures the task store.
type StoreConfig struct {
	Driver      string `toml:"driver"` // sqlite, postgres or json
	DBPath      string `toml:"db_path"`
	JSONPath    string `toml:"json_path"`
	PostgresDSN string `toml:"postgres_dsn"`
	Watch       bool   `toml:"watch"` // re-emit on external edits (json driver)
}

// UIConfig holds view settings.
type UIConfig struct {
	// LingerMS keeps the task subscription alive after the view stops observing.
	LingerMS int `toml:"linger_ms"`
	// Workers bounds concurrently running intents.
	Workers int `toml:"workers"`
}

// Linger returns the linger period as a duration.
func (u UIConfig) Linger() time.Duration {
	return time.Duration(u.LingerMS) * time.Millisecond
}

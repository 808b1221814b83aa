package config

import (
	"os"
	"path/filepath"
)

const configFileName = "todo.toml"

// findProjectConfigFile returns the first of ./todo.toml and ./.todo.toml
// that exists, or "".
func findProjectConfigFile() string {
	return firstExisting(configFileName, "."+configFileName)
}

// findUserConfigFile returns ~/.todo/todo.toml if present, falling back to
// todo/todo.toml under the OS config directory.
func findUserConfigFile() string {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".todo", configFileName))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "todo", configFileName))
	}
	return firstExisting(candidates...)
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	*cfg = Config{
		Store: StoreConfig{
			Driver:   DefaultDriver,
			DBPath:   DefaultDBPath,
			JSONPath: DefaultJSONPath,
			Watch:    true,
		},
		UI: UIConfig{
			LingerMS: DefaultLingerMS,
			Workers:  DefaultWorkers,
		},
		LogDir:        DefaultLogDir,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
		LogTimestamps: true,
	}
}

// GetConfigFile returns the highest-priority config file that was read.
func (cws *ConfigWithSources) GetConfigFile() string {
	if len(cws.Files) == 0 {
		return ""
	}
	return cws.Files[len(cws.Files)-1]
}

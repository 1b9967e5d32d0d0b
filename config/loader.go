package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/kbukum/dikit/logger"
)

// LoaderConfig holds the loader's file system and explicit file paths.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	// EnvPrefix restricts environment binding to PREFIX_* variables and
	// strips the prefix from the key.
	EnvPrefix string
}

// LoaderOption configures Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem replaces the file system the loader reads from.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile skips the search and reads the given config file.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile skips the search and loads the given dotenv file.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix binds only variables starting with prefix and an underscore.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = strings.TrimSuffix(prefix, "_") }
}

// LoadConfig loads the service's configuration into cfg.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	_, err := Load(serviceName, cfg, opts...)
	return err
}

// Load reads the service's config file, then its dotenv file, binds the
// environment over both, and decodes the result into cfg. The same values
// are returned as Settings for callbacks that read their own keys. A nil
// cfg only builds the Settings.
func Load(serviceName string, cfg any, opts ...LoaderOption) (*Settings, error) {
	lc := LoaderConfig{FileSystem: RealFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}

	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(serviceName, lc)
	v := read(files, lc)

	if cfg != nil {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("decode config for %s: %w", serviceName, err)
		}
	}
	return NewSettings(v), nil
}

// read builds a viper instance from files. Files that fail to load are
// logged and skipped.
func read(files ResolvedFiles, lc LoaderConfig) *viper.Viper {
	log := logger.Get("config")
	v := viper.New()

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			log.Warn("Skipping config file", logger.MergeWithError(logger.Fields("file", files.ConfigFile), err))
		} else {
			log.Debug("Loaded config file", logger.Fields("file", files.ConfigFile))
		}
	}

	// The dotenv file only fills the process environment, so it is read
	// before binding.
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			log.Warn("Skipping env file", logger.MergeWithError(logger.Fields("file", files.EnvFile), err))
		}
	}

	bindEnv(v, lc.EnvPrefix)
	return v
}

// bindEnv binds every environment variable under each key it could mean,
// so TRACKER_SWEEP_INTERVAL reaches tracker.sweep_interval. Bound keys are
// read lazily and take precedence over the config file.
func bindEnv(v *viper.Viper, prefix string) {
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		key := name
		if prefix != "" {
			rest, found := strings.CutPrefix(name, prefix+"_")
			if !found {
				continue
			}
			key = rest
		}
		for _, variant := range envKeyVariants(key) {
			_ = v.BindEnv(variant, name)
		}
	}
}

// envKeyVariants returns the flat key, the fully dotted key, and one key per
// split point with dots before it and underscores after:
//
//	TRACKER_SWEEP_INTERVAL -> tracker_sweep_interval, tracker.sweep.interval,
//	                          tracker.sweep_interval
func envKeyVariants(envKey string) []string {
	flat := strings.ToLower(envKey)
	parts := strings.Split(flat, "_")
	if len(parts) == 1 {
		return []string{flat}
	}

	seen := map[string]bool{}
	var out []string
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}

	add(flat)
	add(strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
	}
	return out
}

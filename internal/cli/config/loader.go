package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey and cfgKey store the logger and config in the command
// context; both live here so the commands package can read them
// without an import cycle against the cli package.
type (
	loggerKey struct{}
	cfgKey    struct{}
)

var configFileUsed string

// findConfigFile picks the config file: explicit path first, then the
// conventional names in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"sqlharvest.yaml", "sqlharvest.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration. Precedence from highest to lowest:
// flags > SQLHARVEST_ env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"corpus_dir":        ".",
		"unit_mode":         DefaultUnitMode,
		"sample":            "all",
		"workers":           DefaultWorkers,
		"unit_timeout":      5 * time.Minute,
		"statement_timeout": 10 * time.Second,
		"batch_size":        DefaultBatchSize,
		"state_dsn":         DefaultStateDSN,
		"output_dir":        DefaultOutputDir,
		"log_level":         "info",
		"verbose":           false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// SQLHARVEST_CORPUS_DIR -> corpus_dir
	if err := k.Load(env.Provider("SQLHARVEST_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SQLHARVEST_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.UnitMode != "repo" && cfg.UnitMode != "file" {
		return nil, fmt.Errorf("unit_mode must be repo or file, got %q", cfg.UnitMode)
	}
	return &cfg, nil
}

// GetConfigFileUsed returns the path of the config file in effect.
func GetConfigFileUsed() string {
	return configFileUsed
}

// LoggerKey returns the context key for the logger, shared with the
// root command to avoid an import cycle with the commands package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// ConfigKey returns the context key for the loaded config.
func ConfigKey() interface{} {
	return cfgKey{}
}

// FromContext retrieves the loaded config from the command context.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(cfgKey{}).(*Config); ok {
		return c
	}
	return &Config{
		CorpusDir: ".",
		UnitMode:  DefaultUnitMode,
		Workers:   DefaultWorkers,
		BatchSize: DefaultBatchSize,
		StateDSN:  DefaultStateDSN,
		OutputDir: DefaultOutputDir,
	}
}

// Package config provides configuration for the formflow command line tool.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings shared by every formflow command.
type Config struct {
	FormsDir string
	OpenAPI  string
	DBURL    string
	Log      LogConfig
	Runtime  RuntimeConfig
}

// LogConfig selects the slog handler built by the CLI.
type LogConfig struct {
	Level  string
	Format string
}

// RuntimeConfig tunes the form instances the CLI creates.
type RuntimeConfig struct {
	HistoryLimit int
	MaxCascade   int
	Autosave     bool
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		FormsDir: "./forms",
		DBURL:    "sqlite://./formflow.db",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Runtime: RuntimeConfig{
			HistoryLimit: 100,
			MaxCascade:   64,
			Autosave:     true,
		},
	}
}

// Load reads configuration using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("forms_dir", def.FormsDir)
	v.SetDefault("openapi", def.OpenAPI)
	v.SetDefault("db_url", def.DBURL)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("runtime.history_limit", def.Runtime.HistoryLimit)
	v.SetDefault("runtime.max_cascade", def.Runtime.MaxCascade)
	v.SetDefault("runtime.autosave", def.Runtime.Autosave)

	v.SetEnvPrefix("FORMFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		FormsDir: v.GetString("forms_dir"),
		OpenAPI:  v.GetString("openapi"),
		DBURL:    v.GetString("db_url"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Runtime: RuntimeConfig{
			HistoryLimit: v.GetInt("runtime.history_limit"),
			MaxCascade:   v.GetInt("runtime.max_cascade"),
			Autosave:     v.GetBool("runtime.autosave"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and positive limits.
func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level must be one of debug, info, warn, error, got %q", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format must be json or text, got %q", cfg.Log.Format)
	}
	if cfg.Runtime.HistoryLimit < 0 {
		return fmt.Errorf("config: runtime.history_limit must not be negative, got %d", cfg.Runtime.HistoryLimit)
	}
	if cfg.Runtime.MaxCascade <= 0 {
		return fmt.Errorf("config: runtime.max_cascade must be positive, got %d", cfg.Runtime.MaxCascade)
	}
	return nil
}

package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sethvargo/go-envconfig"
)

// Settings are the process-level settings read from the environment.
type Settings struct {
	ConfigPath  string `env:"CISOURCE_CONFIG"`
	LogLevel    string `env:"CISOURCE_LOG_LEVEL,default=info"`
	MetricsAddr string `env:"CISOURCE_METRICS_ADDR"`
}

// LoadSettings reads Settings from the process environment.
func LoadSettings(ctx context.Context) (*Settings, error) {
	return LoadSettingsFrom(ctx, envconfig.OsLookuper())
}

// LoadSettingsFrom reads Settings through lookuper. An unset config path
// resolves to DefaultPath.
func LoadSettingsFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Settings, error) {
	var s Settings
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &s, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if s.ConfigPath == "" {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		s.ConfigPath = path
	}
	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseLogLevel parses debug, info, warn or error.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

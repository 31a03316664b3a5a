package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sadopc/reqdesk/internal/highlight"
	"github.com/sadopc/reqdesk/internal/telemetry"
)

// AppName names the config, data and log directories.
const AppName = "reqdesk"

// Config holds the application configuration.
type Config struct {
	HistoryPath    string    `yaml:"history_path" toml:"history_path"`
	DefaultTimeout Duration  `yaml:"default_timeout" toml:"default_timeout"`
	HighlightStyle string    `yaml:"highlight_style" toml:"highlight_style"`
	Proxy          string    `yaml:"proxy" toml:"proxy"`
	NoProxy        string    `yaml:"no_proxy" toml:"no_proxy"`
	Debug          bool      `yaml:"debug" toml:"debug"`
	Telemetry      Telemetry `yaml:"telemetry" toml:"telemetry"`
}

// Telemetry is the file form of telemetry.Config.
type Telemetry struct {
	Endpoint    string            `yaml:"endpoint" toml:"endpoint"`
	Insecure    bool              `yaml:"insecure" toml:"insecure"`
	ServiceName string            `yaml:"service_name" toml:"service_name"`
	Headers     map[string]string `yaml:"headers" toml:"headers"`
	DialTimeout Duration          `yaml:"dial_timeout" toml:"dial_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		HistoryPath:    DefaultHistoryPath(),
		DefaultTimeout: Duration(30 * time.Second),
		HighlightStyle: highlight.DefaultStyle,
		Telemetry: Telemetry{
			ServiceName: AppName,
			DialTimeout: Duration(5 * time.Second),
		},
	}
}

// DefaultHistoryPath is ~/.local/share/reqdesk/history.db, or a relative
// path when no home directory is known.
func DefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName + "-history.db"
	}
	return filepath.Join(home, ".local", "share", AppName, "history.db")
}

// TelemetryConfig converts the file section for telemetry.New.
func (c Config) TelemetryConfig(version string) telemetry.Config {
	return telemetry.Config{
		Endpoint:    c.Telemetry.Endpoint,
		Insecure:    c.Telemetry.Insecure,
		ServiceName: c.Telemetry.ServiceName,
		Version:     version,
		Headers:     c.Telemetry.Headers,
		DialTimeout: c.Telemetry.DialTimeout.Std(),
	}
}

// Duration accepts "30s"-style strings in both YAML and TOML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

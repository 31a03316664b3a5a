package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvConfig names a config file that replaces the default lookup.
const EnvConfig = "REQDESK_CONFIG"

var fileNames = []string{"config.yaml", "config.yml", "config.toml"}

// Path returns the config file Load would read and whether it exists.
func Path() (string, bool) {
	if p := os.Getenv(EnvConfig); p != "" {
		_, err := os.Stat(p)
		return p, err == nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	dir := filepath.Join(home, ".config", AppName)
	for _, name := range fileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return filepath.Join(dir, fileNames[0]), false
}

// Load reads ~/.config/reqdesk/config.{yaml,yml,toml}, or the file named by
// REQDESK_CONFIG. A missing file yields the defaults. A malformed file yields
// the defaults together with the parse error.
func Load() (Config, error) {
	path, ok := Path()
	if !ok {
		if os.Getenv(EnvConfig) != "" {
			return DefaultConfig(), fmt.Errorf("config file %s not found", path)
		}
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads one config file, choosing the format by extension. Fields
// the file omits keep their default values.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), fmt.Errorf("config file %s not found", path)
		}
		return DefaultConfig(), fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return DefaultConfig(), fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.HistoryPath = expandHome(cfg.HistoryPath)
	return cfg, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options for the kvs command.
type Config struct {
	// Path is the log file (or directory) location.
	Path string `json:"path"` //nolint:tagliatelle // snake_case for config file

	// CacheSize bounds the engine's read cache. 0 means the engine default.
	CacheSize int `json:"cache_size"`

	// CompactThreshold overrides the engine's compaction trigger.
	// 0 means the engine default.
	CompactThreshold int `json:"compact_threshold"`
}

// DefaultConfig returns the default configuration: the log lives at
// data.log in the working directory.
func DefaultConfig() Config {
	return Config{
		Path: "data.log",
	}
}

// ConfigFileName is the default config file name, looked up in the working
// directory. The file is HuJSON: comments and trailing commas are allowed.
const ConfigFileName = ".kvs.json"

// LoadConfig loads configuration with the following precedence (highest wins):
//  1. Defaults
//  2. Project config file (.kvs.json in workDir, if it exists)
//  3. Explicit config file via configPath (must exist when non-empty)
//
// CLI flag overrides are applied by the caller after loading.
func LoadConfig(workDir, configPath string) (Config, error) {
	cfg := DefaultConfig()

	path := configPath
	required := configPath != ""

	if path == "" {
		path = filepath.Join(workDir, ConfigFileName)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is from caller
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}

		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	fileCfg, err := parseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}

	cfg = mergeConfig(cfg, fileCfg)

	err = validateConfig(cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}

	return cfg, nil
}

// parseConfig decodes a HuJSON config document.
func parseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

// mergeConfig overlays non-zero fields of override onto base.
func mergeConfig(base, override Config) Config {
	if override.Path != "" {
		base.Path = override.Path
	}

	if override.CacheSize != 0 {
		base.CacheSize = override.CacheSize
	}

	if override.CompactThreshold != 0 {
		base.CompactThreshold = override.CompactThreshold
	}

	return base
}

// validateConfig rejects values the engine would refuse at open.
func validateConfig(cfg Config) error {
	if cfg.Path == "" {
		return errors.New("path must not be empty")
	}

	if cfg.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", cfg.CacheSize)
	}

	if cfg.CompactThreshold < 0 {
		return fmt.Errorf("compact_threshold must not be negative, got %d", cfg.CompactThreshold)
	}

	return nil
}

// Package project loads the cnext.toml project file: the overflow mode,
// the designated entry-point function, and the external-type header map
// the backend consumes.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"cnext/internal/helpers"
)

// ManifestName is the project file the loader looks for.
const ManifestName = "cnext.toml"

// Config is the decoded project file.
type Config struct {
	// Entry names the designated entry-point function, exempt from
	// mangling. Empty means no entry point.
	Entry string `toml:"entry"`

	Overflow OverflowConfig `toml:"overflow"`

	// Headers maps external type names to the header that declares them,
	// e.g. `Adafruit_NeoPixel = "Adafruit_NeoPixel.h"`.
	Headers map[string]string `toml:"headers"`
}

// OverflowConfig selects the global overflow behavior.
type OverflowConfig struct {
	Mode string `toml:"mode"` // "clamp" (default) or "panic"
}

// Default returns the configuration used when no project file exists.
func Default() *Config {
	return &Config{Headers: map[string]string{}}
}

// Load decodes a project file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if _, ok := helpers.ParseMode(cfg.Overflow.Mode); !ok {
		return nil, fmt.Errorf("%s: unknown overflow mode %q (want clamp or panic)",
			path, cfg.Overflow.Mode)
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	return cfg, nil
}

// Mode returns the parsed overflow mode.
func (c *Config) Mode() helpers.Mode {
	mode, _ := helpers.ParseMode(c.Overflow.Mode)
	return mode
}

// FindManifest walks up from startDir to locate cnext.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadNearest loads the manifest closest to startDir, or the default
// configuration when none exists.
func LoadNearest(startDir string) (*Config, string, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

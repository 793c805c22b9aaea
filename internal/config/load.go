package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/mamaar/rbrefactor/pkg/refactor"
)

const (
	// ProjectFileName is looked up in the workspace root.
	ProjectFileName = ".rbrefactor.toml"
	userFileName    = "config.toml"
	userDirName     = "rbrefactor"
)

// ParseError represents a TOML decode failure.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads the config file at path. Missing files result in the default
// configuration.
func Load(path string) (refactor.EngineConfig, error) {
	cfg := refactor.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return Decode(data, path)
}

// Decode parses TOML config data on top of the defaults.
func Decode(data []byte, path string) (refactor.EngineConfig, error) {
	cfg := refactor.DefaultConfig()

	var s Settings
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return cfg, &ParseError{Path: path, Err: err}
	}

	cfg, err := s.Apply(cfg)
	if err != nil {
		return refactor.DefaultConfig(), &ParseError{Path: path, Err: err}
	}
	return cfg, nil
}

// Encode renders cfg as TOML.
func Encode(cfg refactor.EngineConfig) ([]byte, error) {
	return toml.Marshal(SettingsOf(cfg))
}

// FindPath picks the config file for a workspace. RBREFACTOR_CONFIG wins,
// then a project file in root, then the user config under XDG_CONFIG_HOME or
// ~/.config. The returned path may not exist.
func FindPath(root string) (string, error) {
	if override := strings.TrimSpace(os.Getenv("RBREFACTOR_CONFIG")); override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("resolve RBREFACTOR_CONFIG %q: %w", override, err)
		}
		return abs, nil
	}

	if root != "" {
		project := filepath.Join(root, ProjectFileName)
		if _, err := os.Stat(project); err == nil {
			return project, nil
		}
	}

	if base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); base != "" {
		return filepath.Join(base, userDirName, userFileName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		if err == nil {
			err = fmt.Errorf("home directory not found")
		}
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", userDirName, userFileName), nil
}

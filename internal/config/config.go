// Package config resolves the refactoring engine configuration from a TOML
// file, environment variables, and editor settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mamaar/rbrefactor/pkg/analysis"
	"github.com/mamaar/rbrefactor/pkg/refactor"
)

// EnvExtractToVariable overrides extract_to_variable when set to a boolean.
const EnvExtractToVariable = "RBREFACTOR_EXTRACT_TO_VARIABLE"

// Settings is the user-facing form of refactor.EngineConfig. Unset fields
// leave the corresponding engine setting untouched. The same shape is read
// from the config file and from LSP initializationOptions and
// workspace/didChangeConfiguration.
type Settings struct {
	ExtractToVariable *bool  `toml:"extract_to_variable" json:"extractToVariable,omitempty"`
	Occurrences       string `toml:"occurrences" json:"occurrences,omitempty"`
	SingleLineStyle   string `toml:"single_line_style" json:"singleLineStyle,omitempty"`
	VariableName      string `toml:"variable_name" json:"variableName,omitempty"`
}

// SettingsOf returns the settings that reproduce cfg.
func SettingsOf(cfg refactor.EngineConfig) Settings {
	enabled := cfg.ExtractToVariable
	return Settings{
		ExtractToVariable: &enabled,
		Occurrences:       cfg.Occurrences.String(),
		SingleLineStyle:   cfg.SingleLineStyle.String(),
		VariableName:      cfg.VariableName,
	}
}

// Apply overlays s on cfg.
func (s Settings) Apply(cfg refactor.EngineConfig) (refactor.EngineConfig, error) {
	if s.ExtractToVariable != nil {
		cfg.ExtractToVariable = *s.ExtractToVariable
	}
	if s.Occurrences != "" {
		policy, err := analysis.ParseOccurrencePolicy(s.Occurrences)
		if err != nil {
			return cfg, fmt.Errorf("occurrences: %w", err)
		}
		cfg.Occurrences = policy
	}
	if s.SingleLineStyle != "" {
		layout, err := refactor.ParseSingleLineStyle(s.SingleLineStyle)
		if err != nil {
			return cfg, fmt.Errorf("single_line_style: %w", err)
		}
		cfg.SingleLineStyle = layout
	}
	if name := strings.TrimSpace(s.VariableName); name != "" {
		if !refactor.ValidLocalName(name) {
			return cfg, fmt.Errorf("variable_name: %q is not a valid local variable name", name)
		}
		cfg.VariableName = name
	}
	return cfg, nil
}

// ApplyEnv overlays environment overrides read through lookup on cfg.
// Pass os.LookupEnv outside of tests.
func ApplyEnv(cfg refactor.EngineConfig, lookup func(string) (string, bool)) (refactor.EngineConfig, error) {
	raw, ok := lookup(EnvExtractToVariable)
	if !ok || strings.TrimSpace(raw) == "" {
		return cfg, nil
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return cfg, fmt.Errorf("parse %s=%q: %w", EnvExtractToVariable, raw, err)
	}
	cfg.ExtractToVariable = enabled
	return cfg, nil
}

// Resolve loads the config file at path (missing files give defaults) and
// applies environment overrides.
func Resolve(path string) (refactor.EngineConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	return ApplyEnv(cfg, os.LookupEnv)
}

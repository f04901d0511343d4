// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates .filterlintrc configuration files.
//
// A config file may be YAML or JSON. Rule entries accept either a bare
// severity string or a mapping with severity and rule options:
//
//	rules:
//	  short-pattern: "off"
//	  duplicated-modifiers:
//	    severity: error
//	    options:
//	      strict: true
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/filterlint/filterlint/lint"
	"github.com/filterlint/filterlint/rules"
)

// Config file base names probed by Discover, in priority order.
var fileNames = []string{
	".filterlintrc.yaml",
	".filterlintrc.yml",
	".filterlintrc.json",
	".filterlintrc",
}

var (
	// ErrNotFound indicates no config file was discovered.
	ErrNotFound = errors.New("no config file found")

	// ErrInvalidConfig indicates a config file that parsed but failed
	// validation.
	ErrInvalidConfig = errors.New("invalid config")
)

var configValidate = validator.New()

// =============================================================================
// TYPES
// =============================================================================

// Config is the merged tool configuration.
type Config struct {
	// Rules maps rule names to per-rule settings.
	Rules map[string]RuleSetting `yaml:"rules" json:"rules" validate:"dive"`

	// Fix enables auto-fixing.
	Fix bool `yaml:"fix" json:"fix"`

	// ReportUnusedDirectives reports inline disable comments that
	// suppress nothing.
	ReportUnusedDirectives bool `yaml:"report-unused-directives" json:"report_unused_directives"`

	// SyntaxOnly restricts linting to parse errors.
	SyntaxOnly bool `yaml:"syntax-only" json:"syntax_only"`

	// LogLevel sets the slog level for the CLI.
	LogLevel string `yaml:"log-level" json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// RuleSetting configures one rule.
type RuleSetting struct {
	// Severity is "off", "info", "warning"/"warn", or "error". Empty
	// keeps the rule's default.
	Severity string `yaml:"severity" json:"severity" validate:"omitempty,oneof=off info warn warning error"`

	// Options is passed through to the rule.
	Options map[string]any `yaml:"options" json:"options"`
}

// UnmarshalYAML accepts either a bare severity string or the full mapping.
func (s *RuleSetting) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Severity = value.Value
		return nil
	}
	type plain RuleSetting
	return value.Decode((*plain)(s))
}

// UnmarshalJSON accepts either a bare severity string or the full object.
func (s *RuleSetting) UnmarshalJSON(data []byte) error {
	var severity string
	if err := json.Unmarshal(data, &severity); err == nil {
		s.Severity = severity
		return nil
	}
	type plain RuleSetting
	return json.Unmarshal(data, (*plain)(s))
}

// Default returns the built-in configuration: every rule at its default
// severity, nothing else enabled.
func Default() *Config {
	return &Config{Rules: make(map[string]RuleSetting)}
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads and validates a config file. The format follows the file
// extension; ".filterlintrc" without one is parsed as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// Discover searches dir and its ancestors for a config file and returns
// its path.
func Discover(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}

	for {
		for _, name := range fileNames {
			candidate := filepath.Join(current, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w: searched from %s upward", ErrNotFound, dir)
		}
		current = parent
	}
}

// Validate checks the config against its validation tags.
func (c *Config) Validate() error {
	return configValidate.Struct(c)
}

// =============================================================================
// POLICY CONVERSION
// =============================================================================

// Policies converts the rule settings into a policy registry for the
// runner. Rules without an entry keep their defaults.
func (c *Config) Policies(registry *rules.Registry) (*lint.PolicyRegistry, error) {
	policies := lint.NewPolicyRegistry()
	for name, setting := range c.Rules {
		rule, ok := registry.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown rule %q", ErrInvalidConfig, name)
		}

		severity := rule.Meta().DefaultSeverity
		if setting.Severity != "" {
			parsed, err := rules.ParseSeverity(setting.Severity)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", name, err)
			}
			severity = parsed
		}
		policies.Set(name, lint.Policy{Severity: severity, Options: setting.Options})
	}
	return policies, nil
}

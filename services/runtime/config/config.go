// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the aliasrt runtime configuration.
//
// A configuration is a YAML document with three sections: logging,
// telemetry and demo. Loading applies defaults to missing fields and then
// validates the result with struct tags.
//
//	cfg, err := config.Load("aliasrt.yaml")
//	if err != nil {
//	    return fmt.Errorf("load config: %w", err)
//	}
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/aliasrt/services/runtime/telemetry"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxYAMLFileSize is the maximum allowed config file size (1MB).
	MaxYAMLFileSize = 1024 * 1024

	// MaxCountdownStart bounds demo.countdown_start.
	MaxCountdownStart = 1_000_000
)

//go:embed default.yaml
var defaultYAML []byte

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrInvalidConfig is returned when a configuration fails to parse or validate.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConfigTooLarge is returned when a config file exceeds MaxYAMLFileSize.
	ErrConfigTooLarge = errors.New("configuration file too large")
)

// =============================================================================
// Types
// =============================================================================

// RuntimeConfig is the root configuration document.
type RuntimeConfig struct {
	Logging   LoggingConfig    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Demo      DemoConfig       `yaml:"demo"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format is auto (text on a terminal, JSON otherwise), text or json.
	Format string `yaml:"format" validate:"oneof=auto text json"`

	// LogDir, if set, receives a JSON log file in addition to stderr.
	LogDir string `yaml:"log_dir"`

	// Quiet suppresses stderr output. File output is unaffected.
	Quiet bool `yaml:"quiet"`
}

// DemoConfig holds defaults for the demo commands.
type DemoConfig struct {
	// CountdownStart is the default start value of the countdown command.
	CountdownStart int `yaml:"countdown_start" validate:"gte=0,lte=1000000"`

	// GraphPath is the default YAML graph for the copy command. Empty means
	// the built-in sample graph.
	GraphPath string `yaml:"graph_path"`

	// CopyMode is shallow or deep.
	CopyMode string `yaml:"copy_mode" validate:"oneof=shallow deep"`

	// LineLimit is the default number of lines printed by the lines command.
	LineLimit int `yaml:"line_limit" validate:"gte=0"`
}

// =============================================================================
// Loading
// =============================================================================

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the built-in configuration.
func Default() *RuntimeConfig {
	cfg, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// Load reads, defaults and validates the configuration file at path.
//
// Outputs:
//   - *RuntimeConfig: The validated configuration.
//   - error: ErrConfigTooLarge, ErrInvalidConfig (wrapped), or a file error.
func Load(path string) (*RuntimeConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrConfigTooLarge, info.Size(), MaxYAMLFileSize)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document, applies defaults and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (*RuntimeConfig, error) {
	var cfg RuntimeConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields.
func (c *RuntimeConfig) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}

	def := telemetry.DefaultConfig()
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = def.ServiceName
	}
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = def.ServiceVersion
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = def.Environment
	}
	if c.Telemetry.TraceExporter == "" {
		c.Telemetry.TraceExporter = def.TraceExporter
	}
	if c.Telemetry.MetricExporter == "" {
		c.Telemetry.MetricExporter = def.MetricExporter
	}
	if c.Telemetry.OTLPEndpoint == "" {
		c.Telemetry.OTLPEndpoint = def.OTLPEndpoint
	}

	if c.Demo.CopyMode == "" {
		c.Demo.CopyMode = "deep"
	}
}

// Validate checks the configuration against its struct tags.
func (c *RuntimeConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, describe(verrs))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *RuntimeConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func describe(verrs validator.ValidationErrors) string {
	var buf bytes.Buffer
	for i, fe := range verrs {
		if i > 0 {
			buf.WriteString("; ")
		}
		fmt.Fprintf(&buf, "%s failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			fmt.Fprintf(&buf, " (%s)", fe.Param())
		}
	}
	return buf.String()
}

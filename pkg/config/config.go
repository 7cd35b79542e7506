// SPDX-License-Identifier: Apache-2.0
// Package config loads engine configuration from defaults, an optional
// YAML file, and TELOS_-prefixed environment variables, in that order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log           LogConfig           `koanf:"log"`
	Telemetry     TelemetryConfig     `koanf:"telemetry"`
	Orchestration OrchestrationConfig `koanf:"orchestration"`
	Persistence   PersistenceConfig   `koanf:"persistence"`
	Types         TypesConfig         `koanf:"types"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type OrchestrationConfig struct {
	Mode              string        `koanf:"mode"` // plan_first, reactive
	MaxReactiveSteps  int           `koanf:"max_reactive_steps"`
	MaxParallel       int           `koanf:"max_parallel"`
	CapabilityTimeout time.Duration `koanf:"capability_timeout"`
	RunTimeout        time.Duration `koanf:"run_timeout"`
	Retries           int           `koanf:"retries"`
	TieBreakPriority  []string      `koanf:"tie_break_priority"`
}

type PersistenceConfig struct {
	Backend string `koanf:"backend"` // none, file, sqlite
	Path    string `koanf:"path"`
}

type TypesConfig struct {
	// Dir holds the YAML context type manifests loaded at startup.
	Dir string `koanf:"dir"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("telemetry.exporter", "stdout")

	k.Set("orchestration.mode", "plan_first")
	k.Set("orchestration.max_reactive_steps", 16)
	k.Set("orchestration.max_parallel", 4)
	k.Set("orchestration.capability_timeout", "30s")
	k.Set("orchestration.run_timeout", "5m")
	k.Set("orchestration.retries", 0)

	k.Set("persistence.backend", "none")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV. Only the first underscore separates the section
	// from the key, so TELOS_ORCHESTRATION_MAX_REACTIVE_STEPS maps to
	// orchestration.max_reactive_steps.
	if err := k.Load(env.Provider("TELOS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "TELOS_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Orchestration.Mode {
	case "plan_first", "reactive":
	default:
		return fmt.Errorf("unknown orchestration mode %q", c.Orchestration.Mode)
	}
	if c.Orchestration.MaxReactiveSteps < 1 {
		return fmt.Errorf("orchestration.max_reactive_steps must be >= 1")
	}
	if c.Orchestration.MaxParallel < 1 {
		return fmt.Errorf("orchestration.max_parallel must be >= 1")
	}
	switch c.Persistence.Backend {
	case "", "none":
	case "file", "sqlite":
		if c.Persistence.Path == "" {
			return fmt.Errorf("persistence.path is required for backend %q", c.Persistence.Backend)
		}
	default:
		return fmt.Errorf("unknown persistence backend %q", c.Persistence.Backend)
	}
	return nil
}

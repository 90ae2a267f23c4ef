// Package config loads the optional per-repository rule file.
//
// The file lives at the repository root and lets a project pin its watch
// rule so the hook can be registered as a bare `onchange` invocation:
//
//	on: "src/**/*.ts"
//	ignore:
//	  - "**/node_modules/**"
//	exec:
//	  - npm run build
//	  - npm run lint
//	exec_timeout_seconds: 300
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the rule file name, resolved against the repository root.
const FileName = ".onchange.yaml"

// DefaultTimeoutSeconds applies when neither the file nor the flags set a
// per-command timeout.
const DefaultTimeoutSeconds = 300

// Config is the parsed rule file.
type Config struct {
	On             string   `yaml:"on"`
	Ignore         []string `yaml:"ignore"`
	Exec           []string `yaml:"exec"`
	TimeoutSeconds int      `yaml:"exec_timeout_seconds"`
}

// Load reads <root>/.onchange.yaml. A missing file is not an error: it
// yields a zero config with exists=false so flags alone can drive a run.
func Load(root string) (*Config, bool, error) {
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, false, nil
		}
		return nil, false, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, false, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, true, nil
}

// Validate checks structural constraints. Glob validity is checked where
// flags and file values meet, at the CLI boundary.
func (c *Config) Validate() error {
	for i, command := range c.Exec {
		if strings.TrimSpace(command) == "" {
			return fmt.Errorf("exec[%d] is empty", i)
		}
	}
	if c.TimeoutSeconds < 0 {
		return errors.New("exec_timeout_seconds cannot be negative")
	}
	return nil
}

// Timeout returns the configured per-command timeout, with the default
// applied.
func (c *Config) Timeout() time.Duration {
	seconds := c.TimeoutSeconds
	if seconds <= 0 {
		seconds = DefaultTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

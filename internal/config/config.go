// Package config loads the pizzamock configuration from pizzamock.yaml,
// PIZZAMOCK_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "pizzamock.yaml"

// EnvPrefix prefixes environment overrides, e.g. PIZZAMOCK_SERVER_PORT.
const EnvPrefix = "PIZZAMOCK"

// Config is the full pizzamock configuration.
type Config struct {
	Server   Server   `mapstructure:"server" yaml:"server"`
	Mock     Mock     `mapstructure:"mock" yaml:"mock"`
	Contract Contract `mapstructure:"contract" yaml:"contract"`
	Admin    Admin    `mapstructure:"admin" yaml:"admin"`
}

// Server configures the HTTP listener of `pizzamock serve`.
type Server struct {
	Port     int           `mapstructure:"port" yaml:"port"`
	Latency  time.Duration `mapstructure:"latency" yaml:"latency"`
	FailRate float64       `mapstructure:"fail_rate" yaml:"fail_rate"`
	Verbose  bool          `mapstructure:"verbose" yaml:"verbose"`
}

// Mock selects the rules the mock server answers with.
type Mock struct {
	// Rules lists rule files and directories, loaded in order.
	Rules []string `mapstructure:"rules" yaml:"rules"`
	// Scenarios lists built-in scenarios registered after the files.
	Scenarios []string `mapstructure:"scenarios" yaml:"scenarios"`
}

// Contract configures `pizzamock test`.
type Contract struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Dir holds extra scenario files run after the bundled ones.
	Dir     string        `mapstructure:"dir" yaml:"dir"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Admin points `pizzamock admin` at a running server.
type Admin struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:   Server{Port: 4000},
		Mock:     Mock{},
		Contract: Contract{BaseURL: "http://localhost:3000", Timeout: 10 * time.Second},
		Admin:    Admin{URL: "http://localhost:4000"},
	}
}

// setDefaults registers every key so AutomaticEnv can override nested keys.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.latency", d.Server.Latency)
	v.SetDefault("server.fail_rate", d.Server.FailRate)
	v.SetDefault("server.verbose", d.Server.Verbose)
	v.SetDefault("mock.rules", []string{})
	v.SetDefault("mock.scenarios", []string{})
	v.SetDefault("contract.base_url", d.Contract.BaseURL)
	v.SetDefault("contract.dir", d.Contract.Dir)
	v.SetDefault("contract.timeout", d.Contract.Timeout)
	v.SetDefault("admin.url", d.Admin.URL)
}

// Load reads the configuration into v and decodes it. An empty file falls
// back to DefaultFile in the working directory, which may be absent; an
// explicitly named file must exist. Flags bound to v beforehand win over
// both the file and the environment.
func Load(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	} else if _, err := os.Stat(DefaultFile); err == nil {
		v.SetConfigFile(DefaultFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", DefaultFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.FailRate < 0 || c.Server.FailRate > 1 {
		errs = append(errs, fmt.Errorf("server.fail_rate must be between 0.0 and 1.0, got %v", c.Server.FailRate))
	}
	if c.Server.Latency < 0 {
		errs = append(errs, errors.New("server.latency must not be negative"))
	}
	if c.Contract.Timeout <= 0 {
		errs = append(errs, errors.New("contract.timeout must be positive"))
	}
	return errors.Join(errs...)
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg.document())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// document renders durations as strings, the form Load accepts.
func (c *Config) document() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"port":      c.Server.Port,
			"latency":   c.Server.Latency.String(),
			"fail_rate": c.Server.FailRate,
			"verbose":   c.Server.Verbose,
		},
		"mock": map[string]any{
			"rules":     nonNil(c.Mock.Rules),
			"scenarios": nonNil(c.Mock.Scenarios),
		},
		"contract": map[string]any{
			"base_url": c.Contract.BaseURL,
			"dir":      c.Contract.Dir,
			"timeout":  c.Contract.Timeout.String(),
		},
		"admin": map[string]any{
			"url": c.Admin.URL,
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

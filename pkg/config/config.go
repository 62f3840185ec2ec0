// Package config handles configuration for uiresolve.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/uiresolve/pkg/core"
	"github.com/devicelab-dev/uiresolve/pkg/diagnostic"
	"github.com/devicelab-dev/uiresolve/pkg/wait"
)

// Config represents the workspace configuration (uiresolve.yaml).
type Config struct {
	// Driver settings
	DriverURL    string                 `yaml:"driverURL"`    // WebDriver endpoint
	Capabilities map[string]interface{} `yaml:"capabilities"` // Session capabilities (alwaysMatch)
	Mobile       bool                   `yaml:"mobile"`       // Mobile selector inference
	Strict       *bool                  `yaml:"strictLocators"`

	// Lookup settings
	Wait           WaitConfig     `yaml:"wait"`
	TimeoutsConfig TimeoutsConfig `yaml:"timeouts"`
	Delivery       string         `yaml:"delivery"` // throw | collect

	// Diagnostics
	TraceInclude []string `yaml:"traceInclude"` // Function prefixes kept in traces
	Templates    string   `yaml:"templates"`    // Message template file
	LogFile      string   `yaml:"logFile"`
}

// WaitConfig is the default wait policy.
type WaitConfig struct {
	Mode   string `yaml:"mode"` // immediate | wait-then-fail | wait-then-fallback
	WaitMs int    `yaml:"waitMs"`
	PollMs int    `yaml:"pollMs"`
}

// TimeoutsConfig holds driver-level timeouts.
type TimeoutsConfig struct {
	ScriptMs   int `yaml:"scriptMs"`
	PageLoadMs int `yaml:"pageLoadMs"`
}

// Environment overrides read by ApplyEnv.
const (
	EnvDriverURL = "UIRESOLVE_DRIVER_URL"
	EnvMobile    = "UIRESOLVE_MOBILE"
	EnvWaitMode  = "UIRESOLVE_WAIT_MODE"
	EnvWaitMs    = "UIRESOLVE_WAIT_MS"
	EnvPollMs    = "UIRESOLVE_POLL_MS"
	EnvDelivery  = "UIRESOLVE_DELIVERY"
	EnvLogFile   = "UIRESOLVE_LOG_FILE"
)

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cfg.Templates != "" && !filepath.IsAbs(cfg.Templates) {
		cfg.Templates = filepath.Join(filepath.Dir(path), cfg.Templates)
	}
	return &cfg, nil
}

// LoadFromDir looks for uiresolve.yaml or uiresolve.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	if path := findIn(dir); path != "" {
		return Load(path)
	}

	// No config file found, return empty config
	return &Config{}, nil
}

func findIn(dir string) string {
	for _, name := range []string{"uiresolve.yaml", "uiresolve.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}
	return ""
}

// ApplyEnv overlays UIRESOLVE_* environment variables onto the config.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDriverURL); v != "" {
		c.DriverURL = v
	}
	if v := os.Getenv(EnvMobile); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMobile, err)
		}
		c.Mobile = b
	}
	if v := os.Getenv(EnvWaitMode); v != "" {
		c.Wait.Mode = v
	}
	for env, dst := range map[string]*int{EnvWaitMs: &c.Wait.WaitMs, EnvPollMs: &c.Wait.PollMs} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		*dst = n
	}
	if v := os.Getenv(EnvDelivery); v != "" {
		c.Delivery = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
	return nil
}

// Policy returns the configured default wait policy. Unset fields keep the
// values of wait.DefaultPolicy.
func (c *Config) Policy() (wait.Policy, error) {
	p := wait.DefaultPolicy()
	if c.Wait.Mode != "" {
		mode, err := wait.ParseMode(strings.TrimSpace(c.Wait.Mode))
		if err != nil {
			return p, err
		}
		p.Mode = mode
	}
	if c.Wait.WaitMs != 0 {
		p.Wait = time.Duration(c.Wait.WaitMs) * time.Millisecond
	}
	if c.Wait.PollMs != 0 {
		p.Poll = time.Duration(c.Wait.PollMs) * time.Millisecond
	}
	if p.Mode == wait.Immediate {
		return wait.Immediately(), nil
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Timeouts returns the configured driver timeouts, defaulting unset fields.
func (c *Config) Timeouts() (core.Timeouts, error) {
	t := core.DefaultTimeouts()
	if c.TimeoutsConfig.ScriptMs < 0 || c.TimeoutsConfig.PageLoadMs < 0 {
		return t, fmt.Errorf("negative timeout in config")
	}
	if c.TimeoutsConfig.ScriptMs > 0 {
		t.Script = time.Duration(c.TimeoutsConfig.ScriptMs) * time.Millisecond
	}
	if c.TimeoutsConfig.PageLoadMs > 0 {
		t.PageLoad = time.Duration(c.TimeoutsConfig.PageLoadMs) * time.Millisecond
	}
	return t, nil
}

// DeliveryMode returns the configured delivery mode.
func (c *Config) DeliveryMode() (diagnostic.DeliveryMode, error) {
	return diagnostic.ParseDeliveryMode(c.Delivery)
}

// TraceFilter returns the default trace filter extended with TraceInclude.
func (c *Config) TraceFilter() diagnostic.TraceFilter {
	return diagnostic.DefaultTraceFilter(c.TraceInclude...)
}

// StrictLocators reports whether locators should be rewritten for strict W3C
// endpoints. Defaults to true on desktop and false in mobile mode.
func (c *Config) StrictLocators() bool {
	if c.Strict != nil {
		return *c.Strict
	}
	return !c.Mobile
}

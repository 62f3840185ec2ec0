package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/uiresolve/pkg/config"
	"github.com/devicelab-dev/uiresolve/pkg/core"
	"github.com/devicelab-dev/uiresolve/pkg/logger"
	"github.com/devicelab-dev/uiresolve/pkg/webdriver"
)

// newDriver opens a driver session. Replaced in tests.
var newDriver = func(cfg *config.Config) (core.Driver, func() error, error) {
	client := webdriver.NewClient(cfg.DriverURL, webdriver.WithStrictLocators(cfg.StrictLocators()))
	caps := cfg.Capabilities
	if caps == nil {
		caps = map[string]interface{}{}
	}
	if err := client.Connect(caps); err != nil {
		return nil, nil, err
	}
	return client, client.Disconnect, nil
}

// loadConfig merges, lowest priority first: config file, UIRESOLVE_*
// environment, global flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		var cwd string
		if cwd, err = os.Getwd(); err == nil {
			cfg, err = config.Discover(cwd)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if c.IsSet("driver-url") || cfg.DriverURL == "" {
		cfg.DriverURL = c.String("driver-url")
	}
	if c.IsSet("mobile") {
		cfg.Mobile = c.Bool("mobile")
	}
	if c.IsSet("log-file") {
		cfg.LogFile = c.String("log-file")
	}
	return cfg, nil
}

// initLogging routes the log to the configured file, or to stderr with
// --verbose. It returns the matching cleanup.
func initLogging(c *cli.Context, cfg *config.Config) func() {
	if cfg.LogFile != "" {
		if err := logger.Init(cfg.LogFile); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "Warning: Failed to initialize logger: %v\n", err)
			return func() {}
		}
		return logger.Close
	}
	if c.Bool("verbose") {
		logger.InitWriter(c.App.ErrWriter, true)
		return logger.Close
	}
	return func() {}
}

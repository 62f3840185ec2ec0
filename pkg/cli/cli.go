// Package cli provides the command-line interface for uiresolve.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file (default: uiresolve.yaml in the working or home directory)",
	},
	&cli.StringFlag{
		Name:  "driver-url",
		Usage: "WebDriver endpoint (chromedriver, Selenium Grid, Appium)",
		Value: "http://127.0.0.1:4444",
	},
	&cli.BoolFlag{
		Name:  "mobile",
		Usage: "Infer selectors for native mobile apps (xpath, resource-id, accessibility name)",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable verbose logging to stderr",
	},
	&cli.StringFlag{
		Name:  "log-file",
		Usage: "Write the debug log to this file",
	},
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "uiresolve",
		Usage:   "Resolve UI selectors against a WebDriver session",
		Version: Version,
		Description: `uiresolve resolves selectors against a live WebDriver session, waits
for them to become ready and reports classified failures.

Examples:
  uiresolve find "#login"
  uiresolve find --readiness visible --wait 5s "form input.user"
  uiresolve --mobile find --collect "com.app:id/login" "//android.widget.Button"
  uiresolve templates`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			findCommand,
			templatesCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

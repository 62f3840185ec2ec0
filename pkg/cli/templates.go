package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/uiresolve/pkg/diagnostic"
)

var templatesCommand = &cli.Command{
	Name:  "templates",
	Usage: "Print the failure message templates in use",
	Description: `Print the message template of every failure kind, from --file, the
config's templates entry, or the built-in table.

Examples:
  uiresolve templates
  uiresolve templates --file messages.yaml`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "Template file to check instead of the configured one",
		},
	},
	Action: runTemplates,
}

func runTemplates(c *cli.Context) error {
	path := c.String("file")
	if path == "" {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		path = cfg.Templates
	}

	templates, err := diagnostic.LoadTemplates(path)
	if err != nil {
		return err
	}

	source := path
	if source == "" {
		source = "built-in"
	}
	fmt.Fprintf(c.App.Writer, "# %s\n", source)
	for _, kind := range templates.Kinds() {
		text, _ := templates.Source(kind)
		fmt.Fprintf(c.App.Writer, "%-9s %-26s %s\n", kind.Family(), kind, text)
	}
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/uiresolve/pkg/config"
	"github.com/devicelab-dev/uiresolve/pkg/core"
	"github.com/devicelab-dev/uiresolve/pkg/diagnostic"
	"github.com/devicelab-dev/uiresolve/pkg/logger"
	"github.com/devicelab-dev/uiresolve/pkg/session"
	"github.com/devicelab-dev/uiresolve/pkg/wait"
)

var findCommand = &cli.Command{
	Name:      "find",
	Usage:     "Resolve one or more selectors and print the element handles",
	ArgsUsage: "SELECTOR...",
	Description: `Resolve each selector in the document and wait for the readiness
condition. Without --collect the first failure stops the run.

Examples:
  uiresolve find "#login"
  uiresolve find --readiness editable --mode wait-then-fail --wait 3s --poll 100ms "input.user"
  uiresolve find --collect ".header" ".footer" "#missing"`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "readiness",
			Usage: "present, visible, invisible, editable, absent-or-invisible",
			Value: "visible",
		},
		&cli.StringFlag{
			Name:  "mode",
			Usage: "immediate, wait-then-fail, wait-then-fallback (default from config)",
		},
		&cli.DurationFlag{
			Name:  "wait",
			Usage: "Maximum wait (default from config)",
		},
		&cli.DurationFlag{
			Name:  "poll",
			Usage: "Poll interval (default from config)",
		},
		&cli.BoolFlag{
			Name:  "collect",
			Usage: "Collect failures and report them at the end instead of stopping",
		},
	},
	Action: runFind,
}

func runFind(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one selector is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer initLogging(c, cfg)()

	readiness, err := wait.ParseReadiness(c.String("readiness"))
	if err != nil {
		return err
	}
	policy, err := findPolicy(c, cfg)
	if err != nil {
		return err
	}
	opts, err := sessionOptions(cfg)
	if err != nil {
		return err
	}
	opts = append(opts, session.WithPolicy(policy))
	if c.Bool("collect") {
		opts = append(opts, session.WithDeliveryMode(diagnostic.CollectErrors))
	}

	d, closeDriver, err := newDriver(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.DriverURL, err)
	}
	defer func() {
		if err := closeDriver(); err != nil {
			logger.Warn("failed to close driver session: %v", err)
		}
	}()

	sess, err := session.New(d, opts...)
	if err != nil {
		return err
	}
	logger.Info("find %d selectors with %s, readiness %s", c.NArg(), policy, readiness)

	out := c.App.Writer
	for _, text := range c.Args().Slice() {
		before := len(sess.CollectedExceptions())
		start := time.Now()
		el, err := sess.Find(text, readiness)
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			var rec *core.ExceptionRecord
			if errors.As(err, &rec) {
				fmt.Fprintln(c.App.ErrWriter, rec.Report())
			}
			return fmt.Errorf("failed to resolve %q", text)
		}
		switch {
		case el != nil:
			fmt.Fprintf(out, "%s\t%s\t%v\n", text, el.Handle(), elapsed)
		case len(sess.CollectedExceptions()) > before:
			fmt.Fprintf(out, "%s\tFAILED\t%v\n", text, elapsed)
		default:
			fmt.Fprintf(out, "%s\t-\t%v\n", text, elapsed)
		}
	}

	collected := sess.DrainCollectedExceptions()
	for _, rec := range collected {
		fmt.Fprintln(c.App.ErrWriter, rec.Report())
	}
	if len(collected) > 0 {
		return fmt.Errorf("%d of %d selectors failed", len(collected), c.NArg())
	}
	return nil
}

// findPolicy starts from the configured policy and applies the command flags.
func findPolicy(c *cli.Context, cfg *config.Config) (wait.Policy, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return policy, err
	}
	if c.IsSet("mode") {
		if policy.Mode, err = wait.ParseMode(c.String("mode")); err != nil {
			return policy, err
		}
		if policy.Mode != wait.Immediate && policy.Wait == 0 {
			policy.Wait, policy.Poll = wait.DefaultWait, wait.DefaultPoll
		}
	}
	if c.IsSet("wait") {
		policy.Wait = c.Duration("wait")
	}
	if c.IsSet("poll") {
		policy.Poll = c.Duration("poll")
	}
	return policy, policy.Validate()
}

func sessionOptions(cfg *config.Config) ([]session.Option, error) {
	timeouts, err := cfg.Timeouts()
	if err != nil {
		return nil, err
	}
	delivery, err := cfg.DeliveryMode()
	if err != nil {
		return nil, err
	}
	templates, err := diagnostic.LoadTemplates(cfg.Templates)
	if err != nil {
		return nil, err
	}
	return []session.Option{
		session.WithMobile(cfg.Mobile),
		session.WithTimeouts(timeouts),
		session.WithDeliveryMode(delivery),
		session.WithClassifier(diagnostic.NewClassifier(templates, cfg.TraceFilter())),
	}, nil
}

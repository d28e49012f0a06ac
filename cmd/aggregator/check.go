package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:        "check",
		Usage:       "Validate the config file",
		Description: `Loads the config file over the defaults and reports the first invalid setting.`,
		Flags:       []cli.Flag{configFlag()},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			fmt.Fprintf(ctx.App.Writer, "Config is valid: %d feeds, polling every %s\n", len(cfg.RSSFeeds), cfg.Interval())
			return nil
		},
	}
}

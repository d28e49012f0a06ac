package main

import (
	"errors"
	"os"

	"rss_aggregator/internal/config"

	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "rss_aggregator",
		Usage: "Aggregates RSS feeds and keeps their posts up to date",
		Description: `Adds RSS feeds by URL through an HTTP API, loads them through a CORS proxy
		and polls every known feed, appending only posts that were not seen before.

		Flags can generally be set via environment variables, e.g.:

		--listen => RSS_AGGREGATOR_LISTEN=:8080
		--database-url => RSS_AGGREGATOR_DATABASE_URL=postgres://...
		`,
		Commands: []*cli.Command{
			serveCmd(),
			checkCmd(),
		},
		Action: func(ctx *cli.Context) error {
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a JSON or TOML config file",
		EnvVars: []string{"RSS_AGGREGATOR_CONFIG"},
		Value:   "config.json",
	}
}

// loadConfig читает файл конфигурации. Отсутствующий файл по умолчанию
// не считается ошибкой: используются значения по умолчанию.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path := ctx.String("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if !ctx.IsSet("config") && errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

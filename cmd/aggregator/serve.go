package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"rss_aggregator/internal/aggregator"
	"rss_aggregator/internal/config"
	"rss_aggregator/internal/db"
	"rss_aggregator/internal/fetcher"
	"rss_aggregator/internal/i18n"
	"rss_aggregator/internal/ids"
	"rss_aggregator/internal/logger"
	"rss_aggregator/internal/metrics"
	"rss_aggregator/internal/notify"
	"rss_aggregator/internal/queue"
	"rss_aggregator/internal/server"
	"rss_aggregator/internal/store"
	"rss_aggregator/internal/view"
	"rss_aggregator/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

const (
	retryInterval   = 500 * time.Millisecond
	shutdownTimeout = 5 * time.Second
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the aggregator HTTP API and poll feeds",
		Description: `Starts the HTTP API, submits the feeds listed in the config
		and polls all known feeds on the configured interval.`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "HTTP listen address",
				EnvVars: []string{"RSS_AGGREGATOR_LISTEN"},
			},
			&cli.IntFlag{
				Name:    "poll-interval",
				Usage:   "Seconds between poll cycles",
				EnvVars: []string{"RSS_AGGREGATOR_POLL_INTERVAL"},
			},
			&cli.StringFlag{
				Name:    "proxy",
				Usage:   "CORS proxy base URL",
				EnvVars: []string{"RSS_AGGREGATOR_PROXY"},
			},
			&cli.StringSliceFlag{
				Name:    "feed",
				Usage:   "Feed URL to add on start, may be repeated",
				EnvVars: []string{"RSS_AGGREGATOR_FEEDS"},
			},
			&cli.StringFlag{
				Name:    "language",
				Usage:   "Message language (en, ru)",
				EnvVars: []string{"RSS_AGGREGATOR_LANGUAGE"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection string for the archive",
				EnvVars: []string{"RSS_AGGREGATOR_DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "amqp-url",
				Usage:   "RabbitMQ URL for new post messages",
				EnvVars: []string{"RSS_AGGREGATOR_AMQP_URL"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level",
				EnvVars: []string{"RSS_AGGREGATOR_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (json, text)",
				EnvVars: []string{"RSS_AGGREGATOR_LOG_FORMAT"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			applyFlags(ctx, cfg)
			logger.Init(cfg.LogLevel, cfg.LogFormat)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return serve(ctx.Context, cfg)
		},
	}
}

func applyFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet("listen") {
		cfg.ListenAddr = ctx.String("listen")
	}
	if ctx.IsSet("poll-interval") {
		cfg.PollInterval = ctx.Int("poll-interval")
	}
	if ctx.IsSet("proxy") {
		cfg.ProxyURL = ctx.String("proxy")
	}
	if ctx.IsSet("feed") {
		cfg.RSSFeeds = ctx.StringSlice("feed")
	}
	if ctx.IsSet("language") {
		cfg.Language = ctx.String("language")
	}
	if ctx.IsSet("database-url") {
		cfg.DatabaseURL = ctx.String("database-url")
	}
	if ctx.IsSet("amqp-url") {
		cfg.AMQPURL = ctx.String("amqp-url")
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("log-format") {
		cfg.LogFormat = ctx.String("log-format")
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	defer logger.Log.Info("Application stopped")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := ids.New(cfg.IDScheme, cfg.NodeID)
	if err != nil {
		return err
	}
	f, err := fetcher.New(cfg.ProxyURL,
		fetcher.WithTimeout(cfg.Timeout()),
		fetcher.WithRetries(cfg.MaxRetries, retryInterval),
		fetcher.WithRateLimit(cfg.RateLimit),
	)
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher()
	tr := i18n.New(cfg.Language)

	hub := view.NewHub()
	defer hub.Close()
	view.NewRenderer(tr, hub, view.NewLogSink()).Register(dispatcher)

	m := metrics.New(nil)
	m.Observe(dispatcher)

	opts := []server.Option{
		server.WithWebsocket(hub),
		server.WithMetrics(promhttp.Handler()),
	}

	// Инициализация архива
	if cfg.DatabaseURL != "" {
		database, err := db.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("DB connection error: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return err
		}
		mirror := db.NewMirror(database)
		defer mirror.Close()
		mirror.Register(dispatcher)
		opts = append(opts, server.WithHealthCheck(database))
	}

	// Настройка RabbitMQ Producer
	if cfg.AMQPURL != "" {
		producer, err := queue.NewProducer(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("RabbitMQ producer error: %w", err)
		}
		defer producer.Close()
		publisher := queue.NewPostPublisher(producer)
		defer publisher.Close()
		publisher.Register(dispatcher)
	}

	st := store.New(dispatcher)
	agg := aggregator.New(st, worker.NewWorker(f, nil),
		aggregator.WithInterval(cfg.Interval()),
		aggregator.WithWorkers(cfg.Workers),
		aggregator.WithIDs(gen),
		aggregator.WithMetrics(m),
	)
	agg.Start(ctx)

	go func() {
		for _, url := range cfg.RSSFeeds {
			if _, err := agg.Submit(ctx, url); err != nil {
				logger.Log.WithField("url", url).Warnf("Failed to add configured feed: %v", err)
			}
		}
	}()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.NewServer(agg, st, tr, opts...).Handler(),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infof("Starting HTTP server on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Log.Info("Shutting down...")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	return nil
}

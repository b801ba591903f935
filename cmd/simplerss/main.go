package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rasxm/simplerss/internal/api/rest"
	"github.com/rasxm/simplerss/internal/app"
	"github.com/rasxm/simplerss/internal/config"
	"github.com/rasxm/simplerss/internal/entity"
	"github.com/rasxm/simplerss/internal/feed"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := app.Logger()
	slog.SetDefault(logger)

	if err := newApp().Run(os.Args); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "simplerss",
		Usage: "Relay a fixed catalog of RSS feeds to a browser front end as JSON",
		Description: `Serves the reader front end from the static root, the feed catalog
		on /rsslist and the latest items of a catalog feed on /rssfeed.

		Flags can generally be set via environment variables, e.g.:

		--port => HTTP_SERVER_PORT=8080
		--static-root => SIMPLERSS_STATIC_ROOT=./rss
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				EnvVars: []string{"HTTP_SERVER_PORT"},
			},
			&cli.StringFlag{
				Name:    "static-root",
				Usage:   "Directory holding the front end files",
				EnvVars: []string{"SIMPLERSS_STATIC_ROOT"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML file with server settings and the feed catalog, the built-in catalog is used when empty",
				EnvVars: []string{"SIMPLERSS_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "max-items",
				Usage:   "Maximum number of items returned per feed",
				EnvVars: []string{"SIMPLERSS_MAX_ITEMS"},
			},
			&cli.DurationFlag{
				Name:    "fetch-timeout",
				Usage:   "Timeout for a single upstream fetch",
				EnvVars: []string{"SIMPLERSS_FETCH_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level: debug, info, warn or error",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	if err := app.SetLevel(c.String("log-level")); err != nil {
		return err
	}

	cfg, err := loadConfig(c)

	if err != nil {
		return err
	}

	logger := app.Logger()

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Received first shutdown signal, starting graceful shutdown...")
		cancel()

		// If we receive a second signal, exit immediately
		<-sigChan
		logger.Info("Received second shutdown signal, exiting immediately...")
		os.Exit(1)
	}()

	fetcher := feed.NewFetcher(cfg.Sources, cfg.Feed)
	transformer := feed.NewTransformer(cfg.Feed)

	// Initialize and run the HTTP server
	server := rest.NewServer(cfg, fetcher, transformer)

	if err := server.Run(ctx); err != nil {
		return err
	}

	logger.Info("Server exited gracefully")

	return nil
}

// loadConfig reads the config file and applies explicitly set flags on top of it
func loadConfig(c *cli.Context) (*entity.Config, error) {
	cfg, err := config.Read(c.String("config"))

	if err != nil {
		return nil, err
	}

	if c.IsSet("port") {
		cfg.Server.Port = c.String("port")
	}

	if c.IsSet("static-root") {
		cfg.Server.StaticRoot = c.String("static-root")
	}

	if c.IsSet("max-items") {
		if c.Int("max-items") <= 0 {
			return nil, fmt.Errorf("max-items must be positive")
		}

		cfg.Feed.MaxItems = c.Int("max-items")
	}

	if c.IsSet("fetch-timeout") {
		if c.Duration("fetch-timeout") <= 0 {
			return nil, fmt.Errorf("fetch-timeout must be positive")
		}

		cfg.Feed.FetchTimeout = entity.Duration{Duration: c.Duration("fetch-timeout")}
	}

	return cfg, nil
}

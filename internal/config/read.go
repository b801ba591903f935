package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rasxm/simplerss/internal/entity"
)

const (
	defaultPort         = "8080"
	defaultStaticRoot   = "./rss"
	defaultIndexFile    = "index.html"
	defaultFetchTimeout = 15 * time.Second
	defaultMaxBodySize  = 10 << 20
	defaultUserAgent    = "simplerss/1.0 (+https://github.com/rasxm/simplerss)"
)

//go:embed default.toml
var defaultConfig []byte

// Default returns the built-in configuration with the Sky and BBC catalog
func Default() (*entity.Config, error) {
	return parse(defaultConfig)
}

// Read loads the configuration at configPath, or the built-in one when configPath is empty
func Read(configPath string) (*entity.Config, error) {
	if configPath == "" {
		return Default()
	}

	contents, err := os.ReadFile(configPath)

	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	return parse(contents)
}

func parse(contents []byte) (*entity.Config, error) {
	var config entity.Config

	if err := toml.Unmarshal(contents, &config); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// nolint: cyclop
func validate(config *entity.Config) error {
	if config.Server.Port == "" {
		config.Server.Port = defaultPort
	}

	if config.Server.StaticRoot == "" {
		config.Server.StaticRoot = defaultStaticRoot
	}

	if config.Server.IndexFile == "" {
		config.Server.IndexFile = defaultIndexFile
	}

	if config.Feed.MaxItems == 0 {
		config.Feed.MaxItems = entity.MaxItemsDefault
	}

	if config.Feed.MaxItems < 0 {
		return fmt.Errorf("feed.max_items must be positive")
	}

	if config.Feed.FetchTimeout.Duration == 0 {
		config.Feed.FetchTimeout.Duration = defaultFetchTimeout
	}

	if config.Feed.FetchTimeout.Duration < 0 {
		return fmt.Errorf("feed.fetch_timeout must be positive")
	}

	if config.Feed.MaxBodySize == 0 {
		config.Feed.MaxBodySize = defaultMaxBodySize
	}

	if config.Feed.MaxBodySize < 0 {
		return fmt.Errorf("feed.max_body_size must be positive")
	}

	if config.Feed.UserAgent == "" {
		config.Feed.UserAgent = defaultUserAgent
	}

	if len(config.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}

	for i := range config.Sources {
		s := &config.Sources[i]

		if s.Title == "" || s.Host == "" || s.Path == "" {
			return fmt.Errorf("source #%d: title, host and path are required", i)
		}

		if !strings.HasPrefix(s.Path, "/") {
			return fmt.Errorf("source %q: path must start with /", s.Title)
		}

		switch s.Scheme {
		case "":
			s.Scheme = entity.SchemeHTTPS
		case entity.SchemeHTTP, entity.SchemeHTTPS:
		default:
			return fmt.Errorf("source %q: scheme must be %s or %s", s.Title, entity.SchemeHTTP, entity.SchemeHTTPS)
		}
	}

	return nil
}

package entity

import "time"

type Config struct {
	Server  ServerConfig `toml:"server"`
	Feed    FeedConfig   `toml:"feed"`
	Sources Catalog      `toml:"sources"`
}

type ServerConfig struct {
	Port       string `toml:"port"`
	StaticRoot string `toml:"static_root"`
	// Entry file served for / and /favicon.ico, relative to StaticRoot.
	IndexFile string `toml:"index_file"`
}

type FeedConfig struct {
	MaxItems     int      `toml:"max_items"`
	FetchTimeout Duration `toml:"fetch_timeout"`
	UserAgent    string   `toml:"user_agent"`
	// Upper bound in bytes for an upstream document.
	MaxBodySize int `toml:"max_body_size"`
	// Reduce HTML descriptions to plain text.
	PlainText bool `toml:"plain_text"`
}

// Duration is a time.Duration read from a string such as "15s"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))

	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

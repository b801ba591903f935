package entity

import (
	"net"
	"strings"

	"github.com/samber/lo"
)

const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// FeedSource is a named upstream RSS endpoint known to the catalog
type FeedSource struct {
	Title string `json:"title" toml:"title"`
	Host  string `json:"host" toml:"host"`
	Path  string `json:"path" toml:"path"`

	// Scheme used to reach the host, http or https.
	// It is not part of the public catalog representation.
	Scheme string `json:"-" toml:"scheme"`
}

// URL returns the absolute address of the feed
func (s FeedSource) URL() string {
	scheme := s.Scheme

	if scheme == "" {
		scheme = SchemeHTTPS
	}

	return scheme + "://" + s.Host + s.Path
}

// Catalog is the ordered list of known feed sources.
// It is built once at startup and never modified afterwards.
type Catalog []FeedSource

// Lookup finds the source registered for host and path.
// Hosts are compared case-insensitively, paths exactly.
func (c Catalog) Lookup(host, path string) (FeedSource, bool) {
	return lo.Find(c, func(s FeedSource) bool {
		return strings.EqualFold(s.Host, host) && s.Path == path
	})
}

// Hostnames returns the distinct hostnames of the catalog without ports
func (c Catalog) Hostnames() []string {
	return lo.Uniq(lo.Map(c, func(s FeedSource, _ int) string {
		return hostname(s.Host)
	}))
}

func hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return strings.ToLower(h)
	}

	return strings.ToLower(host)
}

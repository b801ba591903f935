package feed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/gocolly/colly/v2"
	"github.com/rasxm/simplerss/internal/entity"
	"github.com/rasxm/simplerss/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceFor(server *httptest.Server, path string) entity.FeedSource {
	return entity.FeedSource{
		Title:  "Local",
		Host:   strings.TrimPrefix(server.URL, "http://"),
		Path:   path,
		Scheme: entity.SchemeHTTP,
	}
}

func getRequest(src entity.FeedSource) *entity.FetchRequest {
	return &entity.FetchRequest{Host: src.Host, Path: src.Path, Method: http.MethodGet, Headers: http.Header{}}
}

func TestFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name           string
		handler        http.HandlerFunc
		request        func(src entity.FeedSource) *entity.FetchRequest
		timeout        time.Duration
		expectedBody   string
		expectedStatus int
		expectTimeout  bool
	}{
		{
			name: "Successful fetch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/news/rss.xml", r.URL.Path)
				assert.Equal(t, "simplerss-test", r.UserAgent())
				w.Header().Set("Content-Type", "application/rss+xml")
				_, _ = w.Write([]byte("<rss/>"))
			},
			request:      getRequest,
			expectedBody: "<rss/>",
		},
		{
			name: "Method and headers forwarded",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/rss+xml", r.Header.Get("Accept"))
				assert.Equal(t, "custom-agent", r.UserAgent())
				_, _ = w.Write([]byte("posted"))
			},
			request: func(src entity.FeedSource) *entity.FetchRequest {
				return &entity.FetchRequest{
					Host:   src.Host,
					Path:   src.Path,
					Method: http.MethodPost,
					Headers: http.Header{
						"Accept":     []string{"application/rss+xml"},
						"User-Agent": []string{"custom-agent"},
					},
				}
			},
			expectedBody: "posted",
		},
		{
			name: "Upstream error status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			request:        getRequest,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "Upstream not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			request:        getRequest,
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Upstream too slow",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(5 * time.Second):
				case <-r.Context().Done():
				}
			},
			request:       getRequest,
			timeout:       100 * time.Millisecond,
			expectTimeout: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			src := sourceFor(server, "/news/rss.xml")

			timeout := tt.timeout

			if timeout == 0 {
				timeout = 5 * time.Second
			}

			fetcher := feed.NewFetcher(entity.Catalog{src}, entity.FeedConfig{
				UserAgent:    "simplerss-test",
				FetchTimeout: entity.Duration{Duration: timeout},
			})

			body, err := fetcher.Fetch(context.Background(), src, tt.request(src))

			if tt.expectedStatus == 0 && !tt.expectTimeout {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedBody, string(body))
				return
			}

			require.Error(t, err)
			assert.Nil(t, body)

			var upstreamErr *entity.UpstreamError
			require.ErrorAs(t, err, &upstreamErr)
			assert.Equal(t, src.URL(), upstreamErr.URL)
			assert.Equal(t, tt.expectedStatus, upstreamErr.StatusCode)
			assert.Equal(t, tt.expectTimeout, upstreamErr.Timeout())
		})
	}
}

func TestFetcher_Fetch_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	src := sourceFor(server, "/feed.xml")
	server.Close()

	fetcher := feed.NewFetcher(entity.Catalog{src}, entity.FeedConfig{
		FetchTimeout: entity.Duration{Duration: 2 * time.Second},
	})

	body, err := fetcher.Fetch(context.Background(), src, getRequest(src))

	require.Error(t, err)
	assert.Nil(t, body)

	var upstreamErr *entity.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Zero(t, upstreamErr.StatusCode)
	assert.False(t, upstreamErr.Timeout())
}

func TestFetcher_Fetch_HostOutsideCatalog(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer server.Close()

	src := sourceFor(server, "/feed.xml")
	fetcher := feed.NewFetcher(entity.Catalog{{Title: "Sky", Host: "news.sky.com", Path: "/feed.xml"}}, entity.FeedConfig{})

	_, err := fetcher.Fetch(context.Background(), src, getRequest(src))

	require.Error(t, err)
	assert.True(t, errors.Is(err, colly.ErrForbiddenDomain))
	assert.False(t, called)
}

func TestFetcher_Fetch_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer server.Close()

	src := sourceFor(server, "/feed.xml")
	fetcher := feed.NewFetcher(entity.Catalog{src}, entity.FeedConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Fetch(ctx, src, getRequest(src))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetcher_Fetch_HostHeaderIgnored(t *testing.T) {
	var seenHost string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHost = r.Host
		assert.Equal(t, "application/rss+xml", r.Header.Get("Accept"))
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer server.Close()

	src := sourceFor(server, "/feed.xml")
	fetcher := feed.NewFetcher(entity.Catalog{src}, entity.FeedConfig{
		FetchTimeout: entity.Duration{Duration: 2 * time.Second},
	})

	req := getRequest(src)
	req.Headers.Set("Host", "internal-admin.example")
	req.Headers.Set("Accept", "application/rss+xml")

	_, err := fetcher.Fetch(context.Background(), src, req)

	require.NoError(t, err)
	assert.Equal(t, src.Host, seenHost)
}

func TestFetcher_Fetch_KeepsDeclaredEncoding(t *testing.T) {
	doc := `<?xml version="1.0" encoding="ISO-8859-1"?>
<rss version="2.0">
<channel>
<title>Latin-1</title>
<link>https://example.com</link>
<description>Latin-1 feed</description>
<item>
<description>café crème</description>
<link>https://example.com/1</link>
<pubDate>Tue, 14 Oct 2025 08:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

	latin1, err := charmap.ISO8859_1.NewEncoder().String(doc)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml; charset=ISO-8859-1")
		_, _ = w.Write([]byte(latin1))
	}))
	defer server.Close()

	src := sourceFor(server, "/feed.xml")
	fetcher := feed.NewFetcher(entity.Catalog{src}, entity.FeedConfig{
		FetchTimeout: entity.Duration{Duration: 2 * time.Second},
	})

	body, err := fetcher.Fetch(context.Background(), src, getRequest(src))
	require.NoError(t, err)
	assert.Equal(t, []byte(latin1), body)

	items, err := feed.NewTransformer(entity.FeedConfig{}).Transform(body)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "café crème", items[0].Description)
}

func TestFetcher_Fetch_BodySizeLimit(t *testing.T) {
	const limit = 1024

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size := limit

		if r.URL.Path == "/large.xml" {
			size = limit + 1
		}

		_, _ = w.Write([]byte(strings.Repeat("x", size)))
	}))
	defer server.Close()

	fits := sourceFor(server, "/fits.xml")
	large := sourceFor(server, "/large.xml")

	fetcher := feed.NewFetcher(entity.Catalog{fits, large}, entity.FeedConfig{
		FetchTimeout: entity.Duration{Duration: 2 * time.Second},
		MaxBodySize:  limit,
	})

	t.Run("At the limit", func(t *testing.T) {
		body, err := fetcher.Fetch(context.Background(), fits, getRequest(fits))

		require.NoError(t, err)
		assert.Len(t, body, limit)
	})

	t.Run("Over the limit", func(t *testing.T) {
		body, err := fetcher.Fetch(context.Background(), large, getRequest(large))

		require.Error(t, err)
		assert.Nil(t, body)
		assert.ErrorIs(t, err, entity.ErrBodyTooLarge)

		var upstreamErr *entity.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.False(t, upstreamErr.Timeout())
	})
}

func TestFetcher_Fetch_ConfiguredTimeoutAboveFifteenSeconds(t *testing.T) {
	if testing.Short() {
		t.Skip("waits 16s for a slow upstream")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(16 * time.Second):
		case <-r.Context().Done():
			return
		}

		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer server.Close()

	src := sourceFor(server, "/feed.xml")
	fetcher := feed.NewFetcher(entity.Catalog{src}, entity.FeedConfig{
		FetchTimeout: entity.Duration{Duration: 30 * time.Second},
	})

	body, err := fetcher.Fetch(context.Background(), src, getRequest(src))

	require.NoError(t, err)
	assert.Equal(t, "<rss/>", string(body))
}

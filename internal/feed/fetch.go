package feed

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rasxm/simplerss/internal/app"
	"github.com/rasxm/simplerss/internal/entity"
)

var fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "simplerss_upstream_fetch_duration_seconds",
	Help:    "Duration of upstream feed fetches",
	Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
}, []string{"host", "outcome"})

// Fetcher downloads feed documents from catalog sources
type Fetcher struct {
	allowedDomains []string
	userAgent      string
	timeout        time.Duration
	maxBodySize    int
}

// NewFetcher creates a Fetcher restricted to the hosts of the catalog
func NewFetcher(catalog entity.Catalog, cfg entity.FeedConfig) *Fetcher {
	return &Fetcher{
		allowedDomains: catalog.Hostnames(),
		userAgent:      cfg.UserAgent,
		timeout:        cfg.FetchTimeout.Duration,
		maxBodySize:    cfg.MaxBodySize,
	}
}

// Fetch requests the source and returns the complete response body.
// Connection failures, timeouts, non-2xx statuses and oversized bodies are returned as *entity.UpstreamError.
// The body is returned as sent, the parser decodes it according to the XML declaration.
func (f *Fetcher) Fetch(ctx context.Context, src entity.FeedSource, req *entity.FetchRequest) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	options := []colly.CollectorOption{
		colly.AllowedDomains(f.allowedDomains...),
		colly.StdlibContext(ctx),
	}

	if f.userAgent != "" {
		options = append(options, colly.UserAgent(f.userAgent))
	}

	// One extra byte tells a body at the limit apart from a truncated one
	if f.maxBodySize > 0 {
		options = append(options, colly.MaxBodySize(f.maxBodySize+1))
	}

	c := colly.NewCollector(options...)
	c.WithTransport(httpTransport)

	if f.timeout > 0 {
		c.SetRequestTimeout(f.timeout)
	}

	var (
		body       []byte
		statusCode int
	)

	// colly converts bodies with a declared charset to UTF-8, which the
	// encoding in the XML declaration would then decode a second time.
	c.OnResponseHeaders(func(r *colly.Response) {
		stripCharset(*r.Headers)
	})

	c.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = r.Body
	})

	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	url := src.URL()
	start := time.Now()
	err := c.Request(req.Method, url, nil, nil, req.OutboundHeaders())

	if err == nil && f.maxBodySize > 0 && len(body) > f.maxBodySize {
		err = fmt.Errorf("%w: more than %d bytes", entity.ErrBodyTooLarge, f.maxBodySize)
		body = nil
	}

	outcome := "ok"

	if err != nil {
		outcome = "error"
	}

	fetchDuration.WithLabelValues(src.Host, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = errors.Join(err, ctxErr)
		}

		return nil, &entity.UpstreamError{URL: url, StatusCode: statusCode, Err: err}
	}

	app.Logger().Debug("Fetched upstream feed",
		"url", url,
		"status", statusCode,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return body, nil
}

// stripCharset drops the charset parameter of the Content-Type header
func stripCharset(headers http.Header) {
	contentType := headers.Get("Content-Type")

	if contentType == "" {
		return
	}

	mediaType, _, err := mime.ParseMediaType(contentType)

	if err != nil {
		headers.Del("Content-Type")
		return
	}

	headers.Set("Content-Type", mediaType)
}

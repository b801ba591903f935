package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rasxm/simplerss/internal/app"
	"github.com/rasxm/simplerss/internal/entity"
)

var feedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "simplerss_feed_requests_total",
	Help: "Feed relay requests by outcome",
}, []string{"outcome"})

// Fetcher downloads the raw document of a catalog source
type Fetcher interface {
	Fetch(ctx context.Context, src entity.FeedSource, req *entity.FetchRequest) ([]byte, error)
}

// Transformer converts a raw RSS document into feed items
type Transformer interface {
	Transform(body []byte) ([]entity.FeedItem, error)
}

// RSSHandler handles the catalog and feed relay routes
type RSSHandler struct {
	catalog     entity.Catalog
	fetcher     Fetcher
	transformer Transformer
	logger      *slog.Logger
}

// NewRSSHandler creates a new RSSHandler and registers its routes on mux
func NewRSSHandler(mux *http.ServeMux, catalog entity.Catalog, f Fetcher, t Transformer) *RSSHandler {
	handler := &RSSHandler{
		catalog:     catalog,
		fetcher:     f,
		transformer: t,
		logger:      app.Logger(),
	}

	mux.HandleFunc("GET /rsslist", handler.GetCatalog)
	mux.HandleFunc("POST /rssfeed", handler.GetFeed)

	return handler
}

// GetCatalog returns the list of known feed sources
func (h *RSSHandler) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, entity.NewEnvelope([]entity.FeedSource(h.catalog)))
}

// GetFeed fetches the source described by the request body and returns its latest items
func (h *RSSHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	req, err := entity.NewFetchRequestFromRequest(r)

	if err != nil {
		h.fail(w, err, "bad_request")
		return
	}

	src, ok := h.catalog.Lookup(req.Host, req.Path)

	if !ok {
		h.fail(w, fmt.Errorf("%w: %s%s", entity.ErrForbiddenTarget, req.Host, req.Path), "forbidden")
		return
	}

	body, err := h.fetcher.Fetch(r.Context(), src, req)

	if err != nil {
		outcome := "upstream_error"

		var upstreamErr *entity.UpstreamError

		if errors.As(err, &upstreamErr) && upstreamErr.Timeout() {
			outcome = "upstream_timeout"
		}

		h.fail(w, err, outcome)

		return
	}

	items, err := h.transformer.Transform(body)

	if err != nil {
		h.fail(w, fmt.Errorf("could not transform %s: %w", src.URL(), err), "malformed")
		return
	}

	h.logger.Info("Relayed feed", "source", src.Title, "items", len(items))
	feedRequests.WithLabelValues("ok").Inc()

	writeJSON(w, http.StatusOK, entity.NewEnvelope(items))
}

func (h *RSSHandler) fail(w http.ResponseWriter, err error, outcome string) {
	feedRequests.WithLabelValues(outcome).Inc()
	handleError(w, err, statusForError(err))
}

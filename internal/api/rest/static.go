package rest

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/rasxm/simplerss/internal/app"
	"github.com/rasxm/simplerss/internal/entity"
)

// StaticHandler serves the front end files from a root directory
type StaticHandler struct {
	root      string
	indexFile string
}

// NewStaticHandler creates a new StaticHandler and registers it as the fallback route on mux
func NewStaticHandler(mux *http.ServeMux, root, indexFile string) *StaticHandler {
	handler := &StaticHandler{
		root:      root,
		indexFile: indexFile,
	}

	// Any method, the API routes are more specific and take precedence
	mux.HandleFunc("/{$}", handler.GetIndex)
	mux.HandleFunc("/favicon.ico", handler.GetIndex)
	mux.HandleFunc("/", handler.GetFile)

	return handler
}

// GetIndex serves the entry file
func (h *StaticHandler) GetIndex(w http.ResponseWriter, _ *http.Request) {
	h.serveFile(w, "/"+h.indexFile)
}

// GetFile serves the file at the request path relative to the root
func (h *StaticHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r.URL.Path)
}

// serveFile writes the whole file or a 404 naming the requested path.
// Lookups go through os.Root so neither ".." nor symlinks can leave the root.
func (h *StaticHandler) serveFile(w http.ResponseWriter, requested string) {
	contents, err := h.readFile(requested)

	if err != nil {
		app.Logger().Debug("Static file unavailable", "path", requested, "error", err)
		http.Error(w, fmt.Sprintf("404 : %s not found", requested), http.StatusNotFound)
		return
	}

	if contentType := mime.TypeByExtension(path.Ext(requested)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(contents); err != nil {
		handleBadResponse(err, requested)
	}
}

func (h *StaticHandler) readFile(requested string) ([]byte, error) {
	contents, err := h.read(requested)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrNotFound, err)
	}

	return contents, nil
}

func (h *StaticHandler) read(requested string) ([]byte, error) {
	name := strings.TrimPrefix(path.Clean("/"+requested), "/")

	if name == "" {
		return nil, fmt.Errorf("%s is a directory", requested)
	}

	root, err := os.OpenRoot(h.root)

	if err != nil {
		return nil, err
	}

	defer root.Close()

	f, err := root.Open(name)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	info, err := f.Stat()

	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", requested)
	}

	return io.ReadAll(f)
}

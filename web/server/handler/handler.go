package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	aerrors "go.hackfix.me/dirserve/app/errors"
	"go.hackfix.me/dirserve/content"
	"go.hackfix.me/dirserve/tree"
	"go.hackfix.me/dirserve/web/listing"
	"go.hackfix.me/dirserve/web/server/types"
)

// SearchParam is the only query parameter the handler accepts.
const SearchParam = "search"

// ResponseKind classifies responses for metrics.
type ResponseKind string

const (
	KindFile     ResponseKind = "file"
	KindListing  ResponseKind = "listing"
	KindSearch   ResponseKind = "search"
	KindRedirect ResponseKind = "redirect"
	KindFavicon  ResponseKind = "favicon"
	KindError    ResponseKind = "error"
)

// Observer is notified of every response the handler writes.
type Observer interface {
	ObserveResponse(kind ResponseKind)
}

// Handler serves the files and directories under a tree.Root, and answers
// search queries over it.
type Handler struct {
	root     *tree.Root
	renderer *listing.Renderer
	streamer *Streamer
	logger   *slog.Logger
	observer Observer
}

// Option configures a Handler.
type Option func(*Handler)

// WithObserver sets the Observer notified of every response.
func WithObserver(o Observer) Option {
	return func(h *Handler) {
		h.observer = o
	}
}

// New returns a new Handler.
func New(
	root *tree.Root, renderer *listing.Renderer, streamer *Streamer,
	logger *slog.Logger, opts ...Option,
) *Handler {
	h := &Handler{
		root:     root,
		renderer: renderer,
		streamer: streamer,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.RawQuery != "" {
		h.serveSearch(w, r)
		return
	}

	if strings.TrimPrefix(r.URL.Path, "/") == "favicon.ico" {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
		h.observe(KindFavicon)
		return
	}

	reqPath := r.URL.EscapedPath()
	entry, ok := h.resolve(w, reqPath)
	if !ok {
		return
	}

	if entry.Kind == tree.KindDirectory {
		if !strings.HasSuffix(reqPath, "/") {
			http.Redirect(w, r, reqPath+"/", http.StatusMovedPermanently)
			h.observe(KindRedirect)
			return
		}

		index, found, err := h.root.Index(entry)
		if err != nil {
			h.fail(w, err)
			return
		}
		if !found {
			h.serveListing(w, r, entry)
			return
		}
		entry = index
	}

	h.serveFile(w, r, entry)
}

// resolve maps reqPath to an entry, writing an error response if that fails
// or if nothing exists at reqPath.
func (h *Handler) resolve(w http.ResponseWriter, reqPath string) (*tree.Entry, bool) {
	entry, err := h.root.Resolve(reqPath)
	if err != nil {
		h.fail(w, err)
		return nil, false
	}

	if entry.Kind == tree.KindMissing {
		if entry.Traversal {
			h.logger.Warn("rejected path outside of the served root", "path", reqPath)
		} else {
			h.logger.Debug("path not found", "path", reqPath)
		}
		h.writeError(w, types.NewNotFoundError())
		return nil, false
	}

	return entry, true
}

func (h *Handler) serveSearch(w http.ResponseWriter, r *http.Request) {
	term, err := searchTerm(r.URL.RawQuery)
	if err != nil {
		h.logger.Debug("unsupported query", "query", r.URL.RawQuery, "error", err.Error())
		h.writeError(w, types.NewMethodNotAllowedError())
		return
	}

	scope, ok := h.resolve(w, r.URL.EscapedPath())
	if !ok {
		return
	}
	if scope.Kind != tree.KindDirectory {
		h.logger.Debug("search scope is not a directory", "path", scope.DisplayPath)
		h.writeError(w, types.NewNotFoundError())
		return
	}

	results, err := h.root.Search(r.Context(), scope, term)
	if err != nil {
		if r.Context().Err() != nil {
			h.logger.Debug("search canceled", "term", term, "scope", scope.DisplayPath)
			return
		}
		h.fail(w, err)
		return
	}

	title := fmt.Sprintf("Search results for %q in %s", term, dirTitle(scope))
	body, err := h.renderer.Render(title, results)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeHTML(w, r, body)
	h.observe(KindSearch)
}

func (h *Handler) serveListing(w http.ResponseWriter, r *http.Request, dir *tree.Entry) {
	entries, err := h.root.List(dir)
	if err != nil {
		h.fail(w, err)
		return
	}

	body, err := h.renderer.Render("Directory listing for "+dirTitle(dir), entries)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeHTML(w, r, body)
	h.observe(KindListing)
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, file *tree.Entry) {
	desc := content.Classify(h.root.FS(), file.AbsPath)
	if err := h.streamer.Respond(w, r, file, desc); err != nil {
		aerrors.Log(h.logger, err)
		h.observe(KindError)
		return
	}
	h.observe(KindFile)
}

// fail logs err and writes a 500 response.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	aerrors.Log(h.logger, err)
	h.writeError(w, types.NewInternalError())
}

func (h *Handler) writeError(w http.ResponseWriter, terr *types.Error) {
	writeError(w, terr)
	h.observe(KindError)
}

func (h *Handler) observe(kind ResponseKind) {
	if h.observer != nil {
		h.observer.ObserveResponse(kind)
	}
}

// searchTerm extracts the search term from a raw query string. The query
// must parse, and must contain no other keys than the search parameter.
func searchTerm(rawQuery string) (string, error) {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("malformed query: %w", err)
	}

	for k := range q {
		if k != SearchParam {
			return "", fmt.Errorf("unsupported query parameter '%s'", k)
		}
	}
	if len(q[SearchParam]) == 0 {
		return "", fmt.Errorf("missing query parameter '%s'", SearchParam)
	}

	return q.Get(SearchParam), nil
}

func dirTitle(dir *tree.Entry) string {
	if dir.IsRoot() {
		return "/"
	}
	return dir.DisplayPath + "/"
}

// Package site serves the embedded single-page frontend.
package site

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ciwomuli/eve-wormhole/internal/domain/routes"
)

// Error constants
var (
	ErrServe = errors.New("site serve failed")
)

const indexFile = "index.html"

// Register attaches the frontend routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", NewRootHandler())
}

// RootHandler serves static assets and answers client-side routes with the
// application shell.
type RootHandler struct {
	files  http.Handler
	client map[string]struct{}
}

// NewRootHandler creates a new root handler
func NewRootHandler() *RootHandler {
	client := map[string]struct{}{}
	for _, p := range routes.Paths() {
		client[p] = struct{}{}
	}
	return &RootHandler{files: http.FileServer(FS()), client: client}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleRoot(w, r)
}

// HandleRoot serves the shell for / and every route-table path, and the
// embedded file otherwise.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	p := strings.TrimSuffix(r.URL.Path, "/")
	if p == "" || p == "/"+indexFile {
		h.serveIndex(w, r)
		return
	}
	if _, ok := h.client[p]; ok {
		h.serveIndex(w, r)
		return
	}
	h.files.ServeHTTP(w, r)
}

func (h *RootHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	f, err := FS().Open(indexFile)
	if err != nil {
		http.Error(w, ErrServe.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		http.Error(w, ErrServe.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, indexFile, st.ModTime(), f)
}

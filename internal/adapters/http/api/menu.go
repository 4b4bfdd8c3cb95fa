package api

import (
	"net/http"

	"github.com/ciwomuli/eve-wormhole/internal/domain/routes"
	"github.com/ciwomuli/eve-wormhole/internal/i18n"
)

// MenuHandler serves the route table for backend-driven menus.
type MenuHandler struct{}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler() *MenuHandler {
	return &MenuHandler{}
}

// HandleAll handles GET /menu/all. Titles are translated into the request
// locale (?lang=, then Accept-Language).
func (h *MenuHandler) HandleAll(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, "api.menu_all", http.MethodGet) {
		return
	}
	tag := i18n.Resolve(r)
	w.Header().Set("Content-Language", tag.String())
	writeData(w, http.StatusOK, routes.Localize(i18n.Translator(tag)))
}

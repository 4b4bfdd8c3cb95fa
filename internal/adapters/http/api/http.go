// Package api declares the HTTP surface of the wormhole backend and its
// route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/ciwomuli/eve-wormhole/internal/app"
	"github.com/ciwomuli/eve-wormhole/internal/auth"
	"github.com/ciwomuli/eve-wormhole/internal/domain/types"
	"github.com/ciwomuli/eve-wormhole/pkg/logger"
)

// WormholeService is what the wormhole handlers need from the service.
type WormholeService interface {
	Submit(ctx context.Context, who service.Submitter, req types.AddWormholeRequest) (types.AddWormholeResult, error)
	ListUser(ctx context.Context, submitterID string) ([]types.Wormhole, error)
}

// TokenVerifier authenticates a request.
type TokenVerifier interface {
	FromRequest(r *http.Request) (*auth.Claims, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	wormholeHandler *WormholeHandler
	menuHandler     *MenuHandler
	verifier        TokenVerifier
}

// NewServer creates a new API server with all handlers.
func NewServer(svc WormholeService, verifier TokenVerifier, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		wormholeHandler: NewWormholeHandler(svc),
		menuHandler:     NewMenuHandler(),
		verifier:        verifier,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/menu/all", MetricsMiddleware(s.menuHandler.HandleAll, "menu_all"))
	mux.HandleFunc("/wormhole/add",
		MetricsMiddleware(AuthMiddleware(s.verifier, s.wormholeHandler.HandleAdd), "wormhole_add"))
	mux.HandleFunc("/wormhole/listuser",
		MetricsMiddleware(AuthMiddleware(s.verifier, s.wormholeHandler.HandleListUser), "wormhole_listuser"))
}

// envelope is the body of every JSON response.
type envelope struct {
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Code: types.CodeOK, Data: data, Message: "ok"})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("api").Error(ctx, "request failed", logger.Error(err))
	}
	writeJSON(w, status, envelope{Code: types.CodeError, Error: code, Message: publicMessage(err, status)})
}

func requireMethod(w http.ResponseWriter, r *http.Request, op, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(r.Context(), w, NewKind(op, ErrMethodNotAllowed))
	return false
}

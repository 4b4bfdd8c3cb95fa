package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	service "github.com/ciwomuli/eve-wormhole/internal/app"
	"github.com/ciwomuli/eve-wormhole/internal/auth"
	"github.com/ciwomuli/eve-wormhole/internal/domain/types"
	"github.com/ciwomuli/eve-wormhole/internal/i18n"
)

const maxBodyBytes = 1 << 16

// WormholeHandler handles the /wormhole endpoints.
type WormholeHandler struct {
	svc       WormholeService
	validator *requestValidator
}

// NewWormholeHandler creates a new wormhole handler.
func NewWormholeHandler(svc WormholeService) *WormholeHandler {
	return &WormholeHandler{svc: svc, validator: newRequestValidator()}
}

// HandleAdd handles POST /wormhole/add.
func (h *WormholeHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.wormhole_add"
	if !requireMethod(w, r, op, http.MethodPost) {
		return
	}
	ctx := r.Context()
	claims, ok := auth.ClaimsFrom(ctx)
	if !ok {
		writeError(ctx, w, NewKind(op, ErrUnauthorized))
		return
	}

	var req types.AddWormholeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		writeError(ctx, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	trimRequest(&req)
	if err := h.validator.Struct(i18n.Resolve(r), req); err != nil {
		writeError(ctx, w, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.svc.Submit(ctx, service.Submitter{ID: claims.UserID, Name: claims.Username}, req)
	if err != nil {
		writeError(ctx, w, Wrap(op, err))
		return
	}
	status := http.StatusAccepted
	if res.Duplicate {
		status = http.StatusOK
	}
	writeData(w, status, res)
}

// trimRequest strips surrounding whitespace so blank fields fail "required".
func trimRequest(req *types.AddWormholeRequest) {
	req.Signature = strings.TrimSpace(req.Signature)
	req.SourceSystem = strings.TrimSpace(req.SourceSystem)
	req.TargetSystem = strings.TrimSpace(req.TargetSystem)
	req.Type = strings.TrimSpace(req.Type)
	req.Life = strings.ToLower(strings.TrimSpace(req.Life))
	req.Mass = strings.ToLower(strings.TrimSpace(req.Mass))
	req.Note = strings.TrimSpace(req.Note)
}

// HandleListUser handles GET /wormhole/listuser.
func (h *WormholeHandler) HandleListUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.wormhole_listuser"
	if !requireMethod(w, r, op, http.MethodGet) {
		return
	}
	ctx := r.Context()
	claims, ok := auth.ClaimsFrom(ctx)
	if !ok {
		writeError(ctx, w, NewKind(op, ErrUnauthorized))
		return
	}

	rows, err := h.svc.ListUser(ctx, claims.UserID)
	if err != nil {
		writeError(ctx, w, Wrap(op, err))
		return
	}
	writeData(w, http.StatusOK, rows)
}

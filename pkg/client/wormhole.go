package client

import (
	"context"
	"encoding/json"
)

// API paths.
const (
	PathWormholeAdd      = "/wormhole/add"
	PathWormholeListUser = "/wormhole/listuser"
	PathMenuAll          = "/menu/all"
)

// Requester is the subset of RequestClient the API calls use.
type Requester interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// WormholeAPI exposes the wormhole endpoints. It passes arguments and
// results through untouched.
type WormholeAPI struct {
	rc Requester
}

// NewWormholeAPI creates the API on top of rc.
func NewWormholeAPI(rc Requester) *WormholeAPI {
	return &WormholeAPI{rc: rc}
}

// AddWormhole reports a wormhole.
func (a *WormholeAPI) AddWormhole(ctx context.Context, params any) (json.RawMessage, error) {
	return a.rc.Post(ctx, PathWormholeAdd, params)
}

// ListWormholeUser lists the caller's wormholes.
func (a *WormholeAPI) ListWormholeUser(ctx context.Context) (json.RawMessage, error) {
	return a.rc.Get(ctx, PathWormholeListUser)
}

// ListMenus fetches the localized route table.
func (a *WormholeAPI) ListMenus(ctx context.Context) (json.RawMessage, error) {
	return a.rc.Get(ctx, PathMenuAll)
}

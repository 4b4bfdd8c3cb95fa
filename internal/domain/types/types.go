// Package types contains the JSON shapes exchanged between the API, its
// client and wormholectl.
package types

import (
	"encoding/json"
	"time"
)

// Envelope codes.
const (
	CodeOK    = 0
	CodeError = -1
)

// Envelope wraps every API response body.
type Envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message"`
}

// AddWormholeRequest is the body of POST /wormhole/add.
type AddWormholeRequest struct {
	Signature    string `json:"signature" validate:"required,signature"`
	SourceSystem string `json:"source_system" validate:"required,max=64"`
	TargetSystem string `json:"target_system" validate:"required,max=64"`
	Type         string `json:"type" validate:"required,whtype"`
	Life         string `json:"life,omitempty" validate:"omitempty,oneof=stable eol"`
	Mass         string `json:"mass,omitempty" validate:"omitempty,oneof=stable destab critical"`
	Note         string `json:"note,omitempty" validate:"max=256"`
}

// Submission statuses.
const (
	StatusAccepted  = "accepted"
	StatusDuplicate = "duplicate"
)

// AddWormholeResult is the data returned by POST /wormhole/add.
type AddWormholeResult struct {
	ID        string `json:"id,omitempty"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Wormhole is one row of GET /wormhole/listuser.
type Wormhole struct {
	ID           string    `json:"id"`
	Signature    string    `json:"signature"`
	SourceSystem string    `json:"source_system"`
	TargetSystem string    `json:"target_system"`
	Type         string    `json:"type"`
	Life         string    `json:"life"`
	Mass         string    `json:"mass"`
	Note         string    `json:"note,omitempty"`
	Submitter    string    `json:"submitter"`
	SubmittedAt  time.Time `json:"submitted_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Expired      bool      `json:"expired"`
}

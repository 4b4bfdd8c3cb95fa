// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Life is the reported lifetime stage of a wormhole.
type Life string

// Lifetime stages.
const (
	LifeStable Life = "stable"
	LifeEOL    Life = "eol" // end of life, under four hours left
)

// Mass is the reported mass stage of a wormhole.
type Mass string

// Mass stages.
const (
	MassStable   Mass = "stable"
	MassDestab   Mass = "destab"
	MassCritical Mass = "critical"
)

// Submission is a wormhole report accepted from a pilot, before enrichment.
type Submission struct {
	ID            string
	SubmitterID   string
	SubmitterName string
	Signature     string // cosmic signature, e.g. "ABC-123"
	SourceSystem  string
	TargetSystem  string
	Type          string // wormhole type code, e.g. "K162"
	Life          Life
	Mass          Mass
	Note          string
	SubmittedAt   time.Time
}

// Fingerprint identifies repeated reports of the same signature by the same
// submitter in the same system.
func (s Submission) Fingerprint() string { //nolint:gocritic // value receiver keeps Submission usable as a map value
	return s.SubmitterID + "|" + strings.ToUpper(s.Signature) + "|" + strings.ToUpper(s.SourceSystem)
}

// Wormhole is a stored submission with its estimated expiry.
type Wormhole struct {
	Submission
	ExpiresAt time.Time
}

// Expired reports whether the wormhole has collapsed by now.
func (w Wormhole) Expired(now time.Time) bool { //nolint:gocritic // value receiver for read-only access
	return !w.ExpiresAt.IsZero() && !now.Before(w.ExpiresAt)
}

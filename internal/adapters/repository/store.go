// Package repository persists reported wormholes.
package repository

import (
	"context"
	"sort"

	"github.com/ciwomuli/eve-wormhole/internal/domain/model"
)

// Store provides read/write access to stored wormholes.
type Store interface {
	// Save inserts w, or replaces the stored wormhole with the same ID.
	Save(ctx context.Context, w model.Wormhole) error

	// ListBySubmitter returns the wormholes reported by submitterID,
	// newest first. Unknown submitters yield an empty slice.
	ListBySubmitter(ctx context.Context, submitterID string) ([]model.Wormhole, error)

	// Count returns the number of stored wormholes.
	Count(ctx context.Context) int

	Close() error
}

func validate(w *model.Wormhole) error {
	switch {
	case w.ID == "":
		return ErrEmptyID
	case w.SubmitterID == "":
		return ErrEmptySubmitter
	}
	return nil
}

// sortNewestFirst orders by submission time descending, then ID ascending.
func sortNewestFirst(ws []model.Wormhole) {
	sort.Slice(ws, func(i, j int) bool {
		if !ws[i].SubmittedAt.Equal(ws[j].SubmittedAt) {
			return ws[i].SubmittedAt.After(ws[j].SubmittedAt)
		}
		return ws[i].ID < ws[j].ID
	})
}

// Package mirror defines the remote persistence boundary. This is the
// only place network I/O occurs; implementations classify failures into
// the transient/permanent taxonomy consumed by the sync coordinator.
package mirror

import (
	"context"

	"github.com/and161185/fitkeeper/internal/convert"
	"github.com/and161185/fitkeeper/internal/model"
)

// Mirror is a key/value-oriented remote persistence adapter.
type Mirror interface {
	// Fetch returns one document, errs.ErrNotFound if absent,
	// errs.ErrTransient on retryable failures.
	Fetch(ctx context.Context, kind model.Kind, key string) (convert.Document, error)
	// Push overwrites one document. Returns errs.ErrTransient or
	// errs.ErrPermanent on failure.
	Push(ctx context.Context, kind model.Kind, key string, doc convert.Document) error
	// Delete removes one document. Deleting an absent document is not an error.
	Delete(ctx context.Context, kind model.Kind, key string) error
	// FetchAllByOwner returns every document of the kind owned by ownerID.
	FetchAllByOwner(ctx context.Context, kind model.Kind, ownerID string) ([]convert.Document, error)
}

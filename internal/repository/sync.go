package repository

import (
	"context"

	"github.com/and161185/fitkeeper/internal/convert"
	"github.com/and161185/fitkeeper/internal/model"
)

// DirtyRecord is one locally-changed entity awaiting mirroring.
// Deleted records carry no document: the mirror only needs the key.
// Rev is the row revision at listing time; every dirty write bumps it.
type DirtyRecord struct {
	Kind    model.Kind
	Key     string
	OwnerID string
	Deleted bool
	Rev     int64
	Doc     convert.Document
}

// SyncRepository is the generic store surface used by the sync coordinator.
type SyncRepository interface {
	// ListDirty returns every dirty record of the kind, tombstones included.
	ListDirty(ctx context.Context, kind model.Kind) ([]DirtyRecord, error)
	// ClearDirty marks a record as mirrored, but only if its revision
	// still equals rev; a row re-dirtied after listing stays dirty. For
	// confirmed tombstones the row is purged.
	ClearDirty(ctx context.Context, kind model.Kind, key string, rev int64) error
	// UpsertFromDoc hydrates one entity from a mirror document. When
	// dirty is false the write is a hydration and loses to a locally
	// dirty row, which holds an edit not yet confirmed by the mirror.
	UpsertFromDoc(ctx context.Context, kind model.Kind, doc convert.Document, dirty bool) error
	// CountDirty reports the number of unsynced records across all kinds.
	CountDirty(ctx context.Context) (int64, error)
	// ClearAll wipes every entity row. Runs to completion before any new
	// user's data may be loaded.
	ClearAll(ctx context.Context) error
}

// Package service contains the orchestration layer: the only component
// that performs I/O and calls the pure progression/achievement engines.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/mirror"
	"github.com/and161185/fitkeeper/internal/model"
	"github.com/and161185/fitkeeper/internal/repository"
)

// SyncControl is the coordinator surface the services depend on.
type SyncControl interface {
	// RequestSync is a non-blocking, debounced "sync wanted soon" signal.
	RequestSync()
	// ForceFullSync pulls the owner's full snapshot, then pushes dirty records.
	ForceFullSync(ctx context.Context, ownerID string) error
	// ClearAllData wipes the local store; runs to completion before returning.
	ClearAllData(ctx context.Context) error
}

// newID generates an entity key.
func newID() string { return uuid.Must(uuid.NewV4()).String() }

// ownerLocks serializes read-modify-write chains per user, so two
// overlapping operations never interleave on the same Stats record.
type ownerLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{m: make(map[string]*sync.Mutex)}
}

// lock acquires the owner's mutex and returns its unlock func.
func (l *ownerLocks) lock(owner string) func() {
	l.mu.Lock()
	om, ok := l.m[owner]
	if !ok {
		om = &sync.Mutex{}
		l.m[owner] = om
	}
	l.mu.Unlock()
	om.Lock()
	return om.Unlock
}

// Hydrator fills local cache misses straight from the mirror. The pull
// path is synchronous and caller-driven: first-read latency stays
// bounded instead of depending on background sync timing.
type Hydrator struct {
	mirror mirror.Mirror
	store  repository.SyncRepository
}

// NewHydrator constructs a hydrator.
func NewHydrator(m mirror.Mirror, store repository.SyncRepository) *Hydrator {
	return &Hydrator{mirror: m, store: store}
}

// Entity fetches one record by key and upserts it clean.
func (h *Hydrator) Entity(ctx context.Context, kind model.Kind, key string) error {
	doc, err := h.mirror.Fetch(ctx, kind, key)
	if err != nil {
		return err
	}
	return h.store.UpsertFromDoc(ctx, kind, doc, false)
}

// StatsByUser fetches the owner's stats document (the stats id is not
// known on a cold cache) and upserts it clean.
func (h *Hydrator) StatsByUser(ctx context.Context, userID string) error {
	docs, err := h.mirror.FetchAllByOwner(ctx, model.KindStats, userID)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("stats for user %s: %w", userID, errs.ErrNotFound)
	}
	return h.store.UpsertFromDoc(ctx, model.KindStats, docs[0], false)
}

// fetchThrough runs get, and on a local miss hydrates then retries once.
func fetchThrough[T any](
	ctx context.Context,
	get func(context.Context) (T, error),
	hydrate func(context.Context) error,
) (T, error) {
	v, err := get(ctx)
	if err == nil || !errors.Is(err, errs.ErrNotFound) {
		return v, err
	}
	if herr := hydrate(ctx); herr != nil {
		var zero T
		if errors.Is(herr, errs.ErrNotFound) {
			return zero, err // keep the local-miss error
		}
		return zero, herr
	}
	return get(ctx)
}

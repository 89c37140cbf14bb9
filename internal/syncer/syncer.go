// Package syncer reconciles the local entity store with the remote
// mirror without blocking foreground operations.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/and161185/fitkeeper/internal/convert"
	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/mirror"
	"github.com/and161185/fitkeeper/internal/model"
	"github.com/and161185/fitkeeper/internal/repository"
)

// DefaultDebounce is the window within which repeated sync requests
// collapse into one push cycle.
const DefaultDebounce = 500 * time.Millisecond

// Coordinator drains dirty records to the mirror and pulls full
// snapshots on demand. One background goroutine owns the push loop.
type Coordinator struct {
	store    repository.SyncRepository
	mirror   mirror.Mirror
	log      *zap.Logger
	debounce time.Duration

	kick chan struct{}
	wg   sync.WaitGroup

	mu sync.Mutex // serializes push cycles with ForceFullSync/ClearAllData
}

// New constructs a coordinator. debounce <= 0 selects DefaultDebounce.
func New(store repository.SyncRepository, m mirror.Mirror, log *zap.Logger, debounce time.Duration) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Coordinator{
		store:    store,
		mirror:   m,
		log:      log,
		debounce: debounce,
		kick:     make(chan struct{}, 1),
	}
}

// Start launches the background loop. It stops when ctx is canceled;
// in-flight pushes are best-effort and may be abandoned.
func (c *Coordinator) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

// Wait blocks until the background loop has exited.
func (c *Coordinator) Wait() { c.wg.Wait() }

// RequestSync signals "sync wanted soon". Non-blocking; calls within
// the debounce window coalesce into a single cycle.
func (c *Coordinator) RequestSync() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Coordinator) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.kick:
		}

		// Debounce: absorb further requests before pushing.
		timer := time.NewTimer(c.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		c.drainKick()

		if err := c.PushDirty(ctx); err != nil {
			c.log.Warn("push cycle failed", zap.Error(err))
		}
	}
}

func (c *Coordinator) drainKick() {
	select {
	case <-c.kick:
	default:
	}
}

// PushDirty pushes every dirty record across all kinds. Transient
// failures leave the record dirty for the next cycle; permanent
// failures abandon the record (dirty cleared) and are logged.
func (c *Coordinator) PushDirty(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushDirtyLocked(ctx)
}

func (c *Coordinator) pushDirtyLocked(ctx context.Context) error {
	var firstErr error
	for _, kind := range model.SyncKinds {
		recs, err := c.store.ListDirty(ctx, kind)
		if err != nil {
			return fmt.Errorf("list dirty %s: %w", kind, err)
		}
		for _, rec := range recs {
			if err := c.pushOne(ctx, rec); err != nil && firstErr == nil {
				firstErr = err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
	return firstErr
}

func (c *Coordinator) pushOne(ctx context.Context, rec repository.DirtyRecord) error {
	var err error
	if rec.Deleted {
		err = c.mirror.Delete(ctx, rec.Kind, rec.Key)
	} else {
		err = c.mirror.Push(ctx, rec.Kind, rec.Key, rec.Doc)
	}
	switch {
	case err == nil:
		return c.store.ClearDirty(ctx, rec.Kind, rec.Key, rec.Rev)
	case errors.Is(err, errs.ErrTransient):
		// Stay dirty; the next debounce cycle retries. No hot loop here.
		c.log.Debug("push deferred",
			zap.String("kind", string(rec.Kind)),
			zap.String("key", rec.Key),
			zap.Error(err),
		)
		return err
	case errors.Is(err, errs.ErrPermanent):
		c.log.Warn("record abandoned",
			zap.String("kind", string(rec.Kind)),
			zap.String("key", rec.Key),
			zap.Error(err),
		)
		return c.store.ClearDirty(ctx, rec.Kind, rec.Key, rec.Rev)
	default:
		return err
	}
}

// ForceFullSync pulls every entity kind for the owner from the mirror,
// upserts into the local store, then pushes any currently-dirty
// records. Blocking; used once per sign-in.
func (c *Coordinator) ForceFullSync(ctx context.Context, ownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	for _, kind := range model.SyncKinds {
		var docs []convert.Document
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			got, err := c.mirror.FetchAllByOwner(ctx, kind, ownerID)
			if errors.Is(err, errs.ErrTransient) {
				return retry.RetryableError(err)
			}
			if err != nil {
				return err
			}
			docs = got
			return nil
		})
		if err != nil {
			return fmt.Errorf("pull %s: %w", kind, err)
		}
		for _, doc := range docs {
			if err := c.store.UpsertFromDoc(ctx, kind, doc, false); err != nil {
				return fmt.Errorf("hydrate %s: %w", kind, err)
			}
		}
	}
	return c.pushDirtyLocked(ctx)
}

// ClearAllData wipes the local store for a signed-out user. Runs to
// completion before a new user's data may be loaded.
func (c *Coordinator) ClearAllData(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainKick()
	return c.store.ClearAll(ctx)
}

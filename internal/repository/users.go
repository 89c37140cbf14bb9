// Package repository defines Entity Store interfaces implemented by concrete backends.
//
// Every successful write is immediately visible to subsequent reads.
// Writes that originate locally are stored dirty until the sync
// coordinator confirms the remote mirror accepted them.
package repository

import (
	"context"

	"github.com/and161185/fitkeeper/internal/model"
)

// UserRepository provides access to the user identity aggregate.
type UserRepository interface {
	// CreateUser inserts the user row. Fails with errs.ErrConflict if it exists.
	CreateUser(ctx context.Context, u *model.User, dirty bool) error
	// GetUser loads a user by id.
	GetUser(ctx context.Context, id string) (*model.User, error)
	// GetAnyUserID returns the id of whichever user currently owns the
	// local cache, errs.ErrNotFound if the store is empty. The cache
	// holds at most one user's data at a time.
	GetAnyUserID(ctx context.Context) (string, error)

	// PutAuth upserts an auth record.
	PutAuth(ctx context.Context, a *model.Auth, dirty bool) error
	// GetAuth loads an auth record by id.
	GetAuth(ctx context.Context, id string) (*model.Auth, error)

	// PutProfile upserts a profile.
	PutProfile(ctx context.Context, p *model.Profile, dirty bool) error
	// GetProfile loads a profile by id.
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
}

// StatsRepository provides access to derived progression state.
type StatsRepository interface {
	// PutStats upserts the stats record.
	PutStats(ctx context.Context, s *model.Stats, dirty bool) error
	// GetStats loads stats by id.
	GetStats(ctx context.Context, id string) (*model.Stats, error)
	// GetStatsByUser loads the stats record owned by userID.
	GetStatsByUser(ctx context.Context, userID string) (*model.Stats, error)
}

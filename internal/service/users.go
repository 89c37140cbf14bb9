package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/fitkeeper/internal/clock"
	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/identity"
	"github.com/and161185/fitkeeper/internal/model"
	"github.com/and161185/fitkeeper/internal/repository"
)

// UserAggregate is the fully-resolved identity: a User always resolves
// to exactly one Auth, Profile and Stats record or the read fails.
type UserAggregate struct {
	User    *model.User
	Auth    *model.Auth
	Profile *model.Profile
	Stats   *model.Stats
}

// UserService defines sign-in and identity aggregate operations.
type UserService interface {
	// SignIn establishes the local session for the token's subject:
	// wipes a previous user's cache, creates or hydrates the aggregate,
	// pulls the full snapshot, seeds default categories and bumps last-login.
	SignIn(ctx context.Context, rawIDToken string, provider model.Provider) (*UserAggregate, error)
	// Aggregate reads the user aggregate with cache-miss hydration.
	Aggregate(ctx context.Context, userID string) (*UserAggregate, error)
	// UpdateProfile applies a user edit to the profile.
	UpdateProfile(ctx context.Context, userID, displayName, photoURL, favoriteBodyPart string) (*model.Profile, error)
}

type UserServiceImpl struct {
	users      repository.UserRepository
	stats      repository.StatsRepository
	categories repository.CategoryRepository
	hydrator   *Hydrator
	sync       SyncControl
	clock      clock.Clock
	log        *zap.Logger
}

// NewUserService constructs UserService with required dependencies.
func NewUserService(
	users repository.UserRepository,
	stats repository.StatsRepository,
	categories repository.CategoryRepository,
	hydrator *Hydrator,
	sync SyncControl,
	clk clock.Clock,
	log *zap.Logger,
) *UserServiceImpl {
	return &UserServiceImpl{
		users:      users,
		stats:      stats,
		categories: categories,
		hydrator:   hydrator,
		sync:       sync,
		clock:      clk,
		log:        log,
	}
}

// defaultCategories seeded once per user.
var defaultCategories = []struct {
	name  string
	color string
}{
	{"Chest", "#E53935"},
	{"Back", "#1E88E5"},
	{"Legs", "#43A047"},
	{"Shoulders", "#FB8C00"},
	{"Arms", "#8E24AA"},
	{"Core", "#FDD835"},
}

// SignIn establishes the local session for the token's subject.
func (s *UserServiceImpl) SignIn(ctx context.Context, rawIDToken string, provider model.Provider) (*UserAggregate, error) {
	claims, err := identity.Parse(rawIDToken)
	if err != nil {
		return nil, err
	}
	userID := claims.Subject

	// A different previous user's cache must be gone before any of the
	// new user's data lands locally.
	prevID, err := s.users.GetAnyUserID(ctx)
	switch {
	case err == nil && prevID != userID:
		if err := s.sync.ClearAllData(ctx); err != nil {
			return nil, fmt.Errorf("clear previous user data: %w", err)
		}
		s.log.Info("local cache cleared for account switch", zap.String("user", userID))
	case err != nil && !errors.Is(err, errs.ErrNotFound):
		return nil, err
	}

	agg, created, err := s.getOrCreateAggregate(ctx, userID, claims, provider)
	if err != nil {
		return nil, err
	}

	// Full snapshot pull; transient failure here degrades to local-only
	// operation rather than failing the sign-in.
	synced := true
	if err := s.sync.ForceFullSync(ctx, userID); err != nil {
		if !errors.Is(err, errs.ErrTransient) {
			return nil, err
		}
		synced = false
		s.log.Warn("full sync deferred", zap.String("user", userID), zap.Error(err))
	}

	// Seeding runs after the pull so a reinstall sees the user's own
	// categories and does not mint remote duplicates. With the mirror
	// unreachable only a brand-new user gets the defaults; an existing
	// user's empty cache waits for hydration.
	if created || synced {
		if err := s.ensureDefaultCategories(ctx, userID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	agg.Auth.LastLoginAt = now
	if err := s.users.PutAuth(ctx, agg.Auth, true); err != nil {
		return nil, err
	}
	s.sync.RequestSync()

	// Re-read after hydration so the caller sees the merged state.
	return s.Aggregate(ctx, userID)
}

// getOrCreateAggregate loads the aggregate, hydrating local misses from
// the mirror, and creates it for a first sign-in. created reports the
// create path: the user does not exist remotely yet.
func (s *UserServiceImpl) getOrCreateAggregate(
	ctx context.Context, userID string, claims identity.Claims, provider model.Provider,
) (*UserAggregate, bool, error) {
	u, err := fetchThrough(ctx,
		func(ctx context.Context) (*model.User, error) { return s.users.GetUser(ctx, userID) },
		func(ctx context.Context) error { return s.hydrator.Entity(ctx, model.KindUser, userID) },
	)
	if err == nil {
		agg, err := s.resolve(ctx, u)
		return agg, false, err
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, false, err
	}

	// First sign-in on a clean remote: create the aggregate locally, dirty.
	now := s.clock.Now()
	agg := &UserAggregate{
		User: &model.User{
			ID:        userID,
			AuthID:    newID(),
			ProfileID: newID(),
			StatsID:   newID(),
			CreatedAt: now,
		},
	}
	agg.Auth = &model.Auth{
		ID:          agg.User.AuthID,
		UserID:      userID,
		Email:       claims.Email,
		Provider:    provider,
		CreatedAt:   now,
		LastLoginAt: now,
		Language:    claims.Locale,
	}
	agg.Profile = &model.Profile{
		ID:          agg.User.ProfileID,
		UserID:      userID,
		DisplayName: claims.DisplayName,
		PhotoURL:    claims.PhotoURL,
	}
	agg.Stats = &model.Stats{
		ID:        agg.User.StatsID,
		UserID:    userID,
		Level:     1,
		Exercises: map[string]model.ExerciseStat{},
		Types:     map[string]model.TypeStat{},
	}

	if err := s.users.CreateUser(ctx, agg.User, true); err != nil {
		return nil, false, err
	}
	if err := s.users.PutAuth(ctx, agg.Auth, true); err != nil {
		return nil, false, err
	}
	if err := s.users.PutProfile(ctx, agg.Profile, true); err != nil {
		return nil, false, err
	}
	if err := s.stats.PutStats(ctx, agg.Stats, true); err != nil {
		return nil, false, err
	}
	s.log.Info("user aggregate created", zap.String("user", userID))
	return agg, true, nil
}

// resolve loads the referenced records with cache-miss hydration.
func (s *UserServiceImpl) resolve(ctx context.Context, u *model.User) (*UserAggregate, error) {
	auth, err := fetchThrough(ctx,
		func(ctx context.Context) (*model.Auth, error) { return s.users.GetAuth(ctx, u.AuthID) },
		func(ctx context.Context) error { return s.hydrator.Entity(ctx, model.KindAuth, u.AuthID) },
	)
	if err != nil {
		return nil, fmt.Errorf("user %s auth: %w", u.ID, err)
	}
	profile, err := fetchThrough(ctx,
		func(ctx context.Context) (*model.Profile, error) { return s.users.GetProfile(ctx, u.ProfileID) },
		func(ctx context.Context) error { return s.hydrator.Entity(ctx, model.KindProfile, u.ProfileID) },
	)
	if err != nil {
		return nil, fmt.Errorf("user %s profile: %w", u.ID, err)
	}
	st, err := fetchThrough(ctx,
		func(ctx context.Context) (*model.Stats, error) { return s.stats.GetStats(ctx, u.StatsID) },
		func(ctx context.Context) error { return s.hydrator.StatsByUser(ctx, u.ID) },
	)
	if err != nil {
		return nil, fmt.Errorf("user %s stats: %w", u.ID, err)
	}
	return &UserAggregate{User: u, Auth: auth, Profile: profile, Stats: st}, nil
}

// Aggregate reads the user aggregate with cache-miss hydration.
func (s *UserServiceImpl) Aggregate(ctx context.Context, userID string) (*UserAggregate, error) {
	u, err := fetchThrough(ctx,
		func(ctx context.Context) (*model.User, error) { return s.users.GetUser(ctx, userID) },
		func(ctx context.Context) error { return s.hydrator.Entity(ctx, model.KindUser, userID) },
	)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, u)
}

// UpdateProfile applies a user edit to the profile.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID, displayName, photoURL, favoriteBodyPart string) (*model.Profile, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.users.GetProfile(ctx, u.ProfileID)
	if err != nil {
		return nil, err
	}
	p.DisplayName = displayName
	p.PhotoURL = photoURL
	p.FavoriteBodyPart = favoriteBodyPart
	if err := s.users.PutProfile(ctx, p, true); err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return p, nil
}

func (s *UserServiceImpl) ensureDefaultCategories(ctx context.Context, userID string) error {
	existing, err := s.categories.ListCategories(ctx, userID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, dc := range defaultCategories {
		c := &model.WorkoutCategory{
			ID:     newID(),
			UserID: userID,
			Name:   dc.name,
			Color:  dc.color,
		}
		if err := s.categories.PutCategory(ctx, c, true); err != nil {
			return err
		}
	}
	return nil
}

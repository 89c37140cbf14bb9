package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
)

// CreateUser inserts the user row exactly once.
func (s *Store) CreateUser(ctx context.Context, u *model.User, dirty bool) error {
	const q = `
INSERT INTO users (id, auth_id, profile_id, stats_id, created_at, dirty, deleted, sync_rev)
VALUES (?, ?, ?, ?, ?, ?, 0, ?)`
	_, err := s.db.ExecContext(ctx, q, u.ID, u.AuthID, u.ProfileID, u.StatsID, unixNano(u.CreatedAt), boolInt(dirty), boolInt(dirty))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", u.ID, errs.ErrConflict)
		}
		return storeErr("create user", err)
	}
	return nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	const q = `
SELECT id, auth_id, profile_id, stats_id, created_at
FROM users WHERE id = ? AND deleted = 0`
	var (
		u  model.User
		ns int64
	)
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.AuthID, &u.ProfileID, &u.StatsID, &ns); err != nil {
		return nil, storeErr("get user", err)
	}
	u.CreatedAt = fromNano(ns)
	return &u, nil
}

// GetAnyUserID returns the id of the user currently cached locally.
func (s *Store) GetAnyUserID(ctx context.Context) (string, error) {
	const q = `SELECT id FROM users WHERE deleted = 0 LIMIT 1`
	var id string
	if err := s.db.QueryRowContext(ctx, q).Scan(&id); err != nil {
		return "", storeErr("get any user", err)
	}
	return id, nil
}

// PutAuth upserts an auth record.
func (s *Store) PutAuth(ctx context.Context, a *model.Auth, dirty bool) error {
	const q = `
INSERT INTO auths (id, user_id, email, provider, created_at, last_login_at, language, dirty, deleted, sync_rev)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
ON CONFLICT(id) DO UPDATE SET
    user_id = excluded.user_id,
    email = excluded.email,
    provider = excluded.provider,
    last_login_at = excluded.last_login_at,
    language = excluded.language,
    dirty = excluded.dirty,
    deleted = 0,
    sync_rev = sync_rev + excluded.dirty`
	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.UserID, a.Email, string(a.Provider),
		unixNano(a.CreatedAt), unixNano(a.LastLoginAt), a.Language, boolInt(dirty), boolInt(dirty))
	if err != nil {
		return storeErr("put auth", err)
	}
	return nil
}

// GetAuth loads an auth record by id.
func (s *Store) GetAuth(ctx context.Context, id string) (*model.Auth, error) {
	const q = `
SELECT id, user_id, email, provider, created_at, last_login_at, language
FROM auths WHERE id = ? AND deleted = 0`
	var (
		a        model.Auth
		provider string
		created  int64
		login    int64
	)
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&a.ID, &a.UserID, &a.Email, &provider, &created, &login, &a.Language); err != nil {
		return nil, storeErr("get auth", err)
	}
	a.Provider = model.Provider(provider)
	a.CreatedAt = fromNano(created)
	a.LastLoginAt = fromNano(login)
	return &a, nil
}

// PutProfile upserts a profile.
func (s *Store) PutProfile(ctx context.Context, p *model.Profile, dirty bool) error {
	const q = `
INSERT INTO profiles (id, user_id, display_name, photo_url, favorite_body_part, dirty, deleted, sync_rev)
VALUES (?, ?, ?, ?, ?, ?, 0, ?)
ON CONFLICT(id) DO UPDATE SET
    user_id = excluded.user_id,
    display_name = excluded.display_name,
    photo_url = excluded.photo_url,
    favorite_body_part = excluded.favorite_body_part,
    dirty = excluded.dirty,
    deleted = 0,
    sync_rev = sync_rev + excluded.dirty`
	_, err := s.db.ExecContext(ctx, q, p.ID, p.UserID, p.DisplayName, p.PhotoURL, p.FavoriteBodyPart, boolInt(dirty), boolInt(dirty))
	if err != nil {
		return storeErr("put profile", err)
	}
	return nil
}

// GetProfile loads a profile by id.
func (s *Store) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	const q = `
SELECT id, user_id, display_name, photo_url, favorite_body_part
FROM profiles WHERE id = ? AND deleted = 0`
	var p model.Profile
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.UserID, &p.DisplayName, &p.PhotoURL, &p.FavoriteBodyPart); err != nil {
		return nil, storeErr("get profile", err)
	}
	return &p, nil
}

// isUniqueViolation reports whether the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

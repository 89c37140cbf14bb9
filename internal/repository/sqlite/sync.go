package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/and161185/fitkeeper/internal/convert"
	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
	"github.com/and161185/fitkeeper/internal/repository"
)

var kindTables = map[model.Kind]string{
	model.KindUser:                "users",
	model.KindAuth:                "auths",
	model.KindProfile:             "profiles",
	model.KindStats:               "stats",
	model.KindCategory:            "categories",
	model.KindTemplate:            "templates",
	model.KindWorkout:             "workouts",
	model.KindAchievementProgress: "achievement_progress",
}

func tableFor(kind model.Kind) (string, error) {
	t, ok := kindTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown kind %q: %w", kind, errs.ErrInvalidRecord)
	}
	return t, nil
}

// ownerCol is "id" for users (a user owns itself) and "user_id" elsewhere.
func ownerCol(kind model.Kind) string {
	if kind == model.KindUser {
		return "id"
	}
	return "user_id"
}

// ListDirty returns every dirty record of the kind. Tombstoned records
// carry only their key; live records carry the encoded document.
func (s *Store) ListDirty(ctx context.Context, kind model.Kind) ([]repository.DirtyRecord, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT id, %s, deleted, sync_rev FROM %s WHERE dirty = 1`, ownerCol(kind), table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, storeErr("list dirty", err)
	}
	defer rows.Close()

	var recs []repository.DirtyRecord
	for rows.Next() {
		var (
			rec     repository.DirtyRecord
			deleted int64
		)
		if err := rows.Scan(&rec.Key, &rec.OwnerID, &deleted, &rec.Rev); err != nil {
			return nil, storeErr("list dirty", err)
		}
		rec.Kind = kind
		rec.Deleted = deleted != 0
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list dirty", err)
	}

	for i := range recs {
		if recs[i].Deleted {
			continue
		}
		entity, err := s.loadEntity(ctx, kind, recs[i].Key)
		if err != nil {
			return nil, err
		}
		doc, err := convert.Encode(kind, entity)
		if err != nil {
			return nil, err
		}
		recs[i].Doc = doc
	}
	return recs, nil
}

func (s *Store) loadEntity(ctx context.Context, kind model.Kind, key string) (any, error) {
	switch kind {
	case model.KindUser:
		return s.GetUser(ctx, key)
	case model.KindAuth:
		return s.GetAuth(ctx, key)
	case model.KindProfile:
		return s.GetProfile(ctx, key)
	case model.KindStats:
		return s.GetStats(ctx, key)
	case model.KindCategory:
		return s.GetCategory(ctx, key)
	case model.KindTemplate:
		return s.GetTemplate(ctx, key)
	case model.KindWorkout:
		return s.GetWorkout(ctx, key)
	case model.KindAchievementProgress:
		return s.getProgressByID(ctx, key)
	}
	return nil, fmt.Errorf("unknown kind %q: %w", kind, errs.ErrInvalidRecord)
}

func (s *Store) getProgressByID(ctx context.Context, id string) (*model.AchievementProgress, error) {
	q := `SELECT ` + progressCols + ` FROM achievement_progress WHERE id = ? AND deleted = 0`
	row := s.db.QueryRowContext(ctx, q, id)
	p, err := scanProgress(row.Scan)
	if err != nil {
		return nil, storeErr("get achievement progress", err)
	}
	return p, nil
}

// ClearDirty marks a record mirrored, guarded by the revision seen at
// listing time: a row re-dirtied since then keeps its flag and is
// pushed again on the next cycle. Confirmed tombstones are purged.
func (s *Store) ClearDirty(ctx context.Context, kind model.Kind, key string, rev int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	del := fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND deleted = 1 AND sync_rev = ?`, table)
	res, err := s.db.ExecContext(ctx, del, key, rev)
	if err != nil {
		return storeErr("clear dirty", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	upd := fmt.Sprintf(`UPDATE %s SET dirty = 0 WHERE id = ? AND sync_rev = ?`, table)
	if _, err := s.db.ExecContext(ctx, upd, key, rev); err != nil {
		return storeErr("clear dirty", err)
	}
	return nil
}

// UpsertFromDoc hydrates one entity from a mirror document. A clean
// hydration never lands on a dirty row: the local edit has not been
// pushed yet and must win until the mirror confirms it.
func (s *Store) UpsertFromDoc(ctx context.Context, kind model.Kind, doc convert.Document, dirty bool) error {
	entity, err := convert.Decode(kind, doc)
	if err != nil {
		return err
	}
	if !dirty {
		blocked, err := s.dirtyLocally(ctx, kind, entity)
		if err != nil {
			return err
		}
		if blocked {
			return nil
		}
	}
	switch v := entity.(type) {
	case *model.User:
		// user rows are immutable; an existing local row wins
		err = s.CreateUser(ctx, v, dirty)
		if errors.Is(err, errs.ErrConflict) {
			err = nil
		}
	case *model.Auth:
		err = s.PutAuth(ctx, v, dirty)
	case *model.Profile:
		err = s.PutProfile(ctx, v, dirty)
	case *model.Stats:
		err = s.PutStats(ctx, v, dirty)
	case *model.WorkoutCategory:
		err = s.PutCategory(ctx, v, dirty)
	case *model.WorkoutTemplate:
		err = s.PutTemplate(ctx, v, dirty)
	case *model.CompletedWorkout:
		err = s.PutWorkout(ctx, v, dirty)
	case *model.AchievementProgress:
		err = s.PutProgress(ctx, v, dirty)
	default:
		err = fmt.Errorf("unknown entity type %T: %w", entity, errs.ErrInvalidRecord)
	}
	return err
}

// dirtyLocally reports whether the local row for the entity carries an
// unpushed edit. Progress rows are matched by (user, achievement): a
// row minted on another device may carry a different id for the pair.
func (s *Store) dirtyLocally(ctx context.Context, kind model.Kind, entity any) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	q := fmt.Sprintf(`SELECT dirty FROM %s WHERE id = ?`, table)
	args := []any{entityKey(entity)}
	if p, ok := entity.(*model.AchievementProgress); ok {
		q = `SELECT dirty FROM achievement_progress WHERE user_id = ? AND achievement_id = ?`
		args = []any{p.UserID, p.AchievementID}
	}
	var d int64
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("check dirty", err)
	}
	return d != 0, nil
}

func entityKey(entity any) string {
	switch v := entity.(type) {
	case *model.User:
		return v.ID
	case *model.Auth:
		return v.ID
	case *model.Profile:
		return v.ID
	case *model.Stats:
		return v.ID
	case *model.WorkoutCategory:
		return v.ID
	case *model.WorkoutTemplate:
		return v.ID
	case *model.CompletedWorkout:
		return v.ID
	case *model.AchievementProgress:
		return v.ID
	}
	return ""
}

// CountDirty reports the number of unsynced records across all kinds.
func (s *Store) CountDirty(ctx context.Context) (int64, error) {
	var total int64
	for _, table := range kindTables {
		q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE dirty = 1`, table)
		var n int64
		if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
			return 0, storeErr("count dirty", err)
		}
		total += n
	}
	return total, nil
}

// ClearAll wipes every entity row. Must run to completion before a new
// user's data is loaded, to prevent cross-account bleed.
func (s *Store) ClearAll(ctx context.Context) error {
	for _, table := range kindTables {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return storeErr("clear all", err)
		}
	}
	return nil
}

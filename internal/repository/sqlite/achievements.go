package sqlite

import (
	"context"
	"database/sql"

	"github.com/and161185/fitkeeper/internal/model"
)

// PutProgress upserts an achievement progress row.
func (s *Store) PutProgress(ctx context.Context, p *model.AchievementProgress, dirty bool) error {
	const q = `
INSERT INTO achievement_progress (id, user_id, achievement_id, current,
    completed, completed_at, xp_granted, updated_at, dirty, deleted, sync_rev)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
ON CONFLICT(user_id, achievement_id) DO UPDATE SET
    current = excluded.current,
    completed = excluded.completed,
    completed_at = excluded.completed_at,
    xp_granted = excluded.xp_granted,
    updated_at = excluded.updated_at,
    dirty = excluded.dirty,
    deleted = 0,
    sync_rev = sync_rev + excluded.dirty`
	_, err := s.db.ExecContext(ctx, q,
		p.ID, p.UserID, p.AchievementID, p.Current,
		boolInt(p.Completed), optNano(p.CompletedAt), boolInt(p.XPGranted),
		unixNano(p.UpdatedAt), boolInt(dirty), boolInt(dirty))
	if err != nil {
		return storeErr("put achievement progress", err)
	}
	return nil
}

const progressCols = `id, user_id, achievement_id, current, completed, completed_at, xp_granted, updated_at`

func scanProgress(scan func(...any) error) (*model.AchievementProgress, error) {
	var (
		p         model.AchievementProgress
		completed int64
		doneAt    sql.NullInt64
		granted   int64
		updated   int64
	)
	if err := scan(&p.ID, &p.UserID, &p.AchievementID, &p.Current,
		&completed, &doneAt, &granted, &updated); err != nil {
		return nil, err
	}
	p.Completed = completed != 0
	p.CompletedAt = fromOptNano(doneAt)
	p.XPGranted = granted != 0
	p.UpdatedAt = fromNano(updated)
	return &p, nil
}

// GetProgress loads progress by (user, achievement definition) pair.
func (s *Store) GetProgress(ctx context.Context, userID, achievementID string) (*model.AchievementProgress, error) {
	q := `SELECT ` + progressCols + ` FROM achievement_progress
WHERE user_id = ? AND achievement_id = ? AND deleted = 0`
	row := s.db.QueryRowContext(ctx, q, userID, achievementID)
	p, err := scanProgress(row.Scan)
	if err != nil {
		return nil, storeErr("get achievement progress", err)
	}
	return p, nil
}

// ListProgress returns all progress rows owned by userID.
func (s *Store) ListProgress(ctx context.Context, userID string) ([]*model.AchievementProgress, error) {
	q := `SELECT ` + progressCols + ` FROM achievement_progress
WHERE user_id = ? AND deleted = 0`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, storeErr("list achievement progress", err)
	}
	defer rows.Close()

	var out []*model.AchievementProgress
	for rows.Next() {
		p, err := scanProgress(rows.Scan)
		if err != nil {
			return nil, storeErr("list achievement progress", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list achievement progress", err)
	}
	return out, nil
}

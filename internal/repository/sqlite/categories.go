package sqlite

import (
	"context"

	"github.com/and161185/fitkeeper/internal/model"
)

// PutCategory upserts a workout category.
func (s *Store) PutCategory(ctx context.Context, c *model.WorkoutCategory, dirty bool) error {
	const q = `
INSERT INTO categories (id, user_id, name, color, dirty, deleted, sync_rev)
VALUES (?, ?, ?, ?, ?, 0, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    color = excluded.color,
    dirty = excluded.dirty,
    deleted = 0,
    sync_rev = sync_rev + excluded.dirty`
	_, err := s.db.ExecContext(ctx, q, c.ID, c.UserID, c.Name, c.Color, boolInt(dirty), boolInt(dirty))
	if err != nil {
		return storeErr("put category", err)
	}
	return nil
}

// GetCategory loads a category by id.
func (s *Store) GetCategory(ctx context.Context, id string) (*model.WorkoutCategory, error) {
	const q = `
SELECT id, user_id, name, color FROM categories WHERE id = ? AND deleted = 0`
	var c model.WorkoutCategory
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.UserID, &c.Name, &c.Color); err != nil {
		return nil, storeErr("get category", err)
	}
	return &c, nil
}

// ListCategories returns the user's categories by name.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]*model.WorkoutCategory, error) {
	const q = `
SELECT id, user_id, name, color
FROM categories WHERE user_id = ? AND deleted = 0 ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	defer rows.Close()

	var out []*model.WorkoutCategory
	for rows.Next() {
		var c model.WorkoutCategory
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color); err != nil {
			return nil, storeErr("list categories", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list categories", err)
	}
	return out, nil
}

// DeleteCategory tombstones a category. Dependents are detached by the
// service layer before this is called.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.tombstone(ctx, "categories", "delete category", id)
}

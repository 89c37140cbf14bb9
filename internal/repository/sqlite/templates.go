package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
)

// PutTemplate upserts a workout template.
func (s *Store) PutTemplate(ctx context.Context, t *model.WorkoutTemplate, dirty bool) error {
	exercises, err := json.Marshal(t.Exercises)
	if err != nil {
		return fmt.Errorf("marshal template exercises: %v: %w", err, errs.ErrInvalidRecord)
	}
	const q = `
INSERT INTO templates (id, user_id, name, category_id, exercises, dirty, deleted, sync_rev)
VALUES (?, ?, ?, ?, ?, ?, 0, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    category_id = excluded.category_id,
    exercises = excluded.exercises,
    dirty = excluded.dirty,
    deleted = 0,
    sync_rev = sync_rev + excluded.dirty`
	_, err = s.db.ExecContext(ctx, q, t.ID, t.UserID, t.Name, t.CategoryID, string(exercises), boolInt(dirty), boolInt(dirty))
	if err != nil {
		return storeErr("put template", err)
	}
	return nil
}

func scanTemplate(scan func(...any) error) (*model.WorkoutTemplate, error) {
	var (
		t         model.WorkoutTemplate
		exercises string
	)
	if err := scan(&t.ID, &t.UserID, &t.Name, &t.CategoryID, &exercises); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(exercises), &t.Exercises); err != nil {
		return nil, fmt.Errorf("unmarshal template exercises: %v: %w", err, errs.ErrInvalidRecord)
	}
	return &t, nil
}

// GetTemplate loads a template by id.
func (s *Store) GetTemplate(ctx context.Context, id string) (*model.WorkoutTemplate, error) {
	const q = `
SELECT id, user_id, name, category_id, exercises
FROM templates WHERE id = ? AND deleted = 0`
	row := s.db.QueryRowContext(ctx, q, id)
	t, err := scanTemplate(row.Scan)
	if err != nil {
		return nil, storeErr("get template", err)
	}
	return t, nil
}

// ListTemplates returns the user's templates by name.
func (s *Store) ListTemplates(ctx context.Context, userID string) ([]*model.WorkoutTemplate, error) {
	const q = `
SELECT id, user_id, name, category_id, exercises
FROM templates WHERE user_id = ? AND deleted = 0 ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, storeErr("list templates", err)
	}
	defer rows.Close()

	var out []*model.WorkoutTemplate
	for rows.Next() {
		t, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, storeErr("list templates", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list templates", err)
	}
	return out, nil
}

// DeleteTemplate tombstones a template.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	return s.tombstone(ctx, "templates", "delete template", id)
}

// ClearTemplateCategory detaches the user's templates from a category.
func (s *Store) ClearTemplateCategory(ctx context.Context, userID, categoryID string) error {
	const q = `
UPDATE templates SET category_id = '', dirty = 1, sync_rev = sync_rev + 1
WHERE user_id = ? AND category_id = ? AND deleted = 0`
	if _, err := s.db.ExecContext(ctx, q, userID, categoryID); err != nil {
		return storeErr("clear template category", err)
	}
	return nil
}

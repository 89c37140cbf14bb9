package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
)

// PutWorkout upserts a workout, exercises stored as JSON.
func (s *Store) PutWorkout(ctx context.Context, w *model.CompletedWorkout, dirty bool) error {
	exercises, err := json.Marshal(w.Exercises)
	if err != nil {
		return fmt.Errorf("marshal exercises: %v: %w", err, errs.ErrInvalidRecord)
	}
	const q = `
INSERT INTO workouts (id, user_id, name, template_id, category_id,
    started_at, ended_at, duration_sec, exercises, dirty, deleted, sync_rev)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    template_id = excluded.template_id,
    category_id = excluded.category_id,
    started_at = excluded.started_at,
    ended_at = excluded.ended_at,
    duration_sec = excluded.duration_sec,
    exercises = excluded.exercises,
    dirty = excluded.dirty,
    deleted = 0,
    sync_rev = sync_rev + excluded.dirty`
	_, err = s.db.ExecContext(ctx, q,
		w.ID, w.UserID, w.Name, w.TemplateID, w.CategoryID,
		unixNano(w.StartedAt), optNano(w.EndedAt), w.DurationSec,
		string(exercises), boolInt(dirty), boolInt(dirty))
	if err != nil {
		return storeErr("put workout", err)
	}
	return nil
}

const workoutCols = `id, user_id, name, template_id, category_id, started_at, ended_at, duration_sec, exercises`

func scanWorkout(scan func(...any) error) (*model.CompletedWorkout, error) {
	var (
		w         model.CompletedWorkout
		started   int64
		ended     sql.NullInt64
		exercises string
	)
	if err := scan(&w.ID, &w.UserID, &w.Name, &w.TemplateID, &w.CategoryID,
		&started, &ended, &w.DurationSec, &exercises); err != nil {
		return nil, err
	}
	w.StartedAt = fromNano(started)
	w.EndedAt = fromOptNano(ended)
	if err := json.Unmarshal([]byte(exercises), &w.Exercises); err != nil {
		return nil, fmt.Errorf("unmarshal exercises: %v: %w", err, errs.ErrInvalidRecord)
	}
	return &w, nil
}

// GetWorkout loads a workout by id.
func (s *Store) GetWorkout(ctx context.Context, id string) (*model.CompletedWorkout, error) {
	q := `SELECT ` + workoutCols + ` FROM workouts WHERE id = ? AND deleted = 0`
	row := s.db.QueryRowContext(ctx, q, id)
	w, err := scanWorkout(row.Scan)
	if err != nil {
		return nil, storeErr("get workout", err)
	}
	return w, nil
}

// GetInProgress returns the user's open workout, errs.ErrNotFound if none.
func (s *Store) GetInProgress(ctx context.Context, userID string) (*model.CompletedWorkout, error) {
	q := `SELECT ` + workoutCols + ` FROM workouts
WHERE user_id = ? AND ended_at IS NULL AND deleted = 0`
	row := s.db.QueryRowContext(ctx, q, userID)
	w, err := scanWorkout(row.Scan)
	if err != nil {
		return nil, storeErr("get in-progress workout", err)
	}
	return w, nil
}

// ListWorkouts returns the user's workouts, in-progress first, then
// ended-at descending.
func (s *Store) ListWorkouts(ctx context.Context, userID string) ([]*model.CompletedWorkout, error) {
	q := `SELECT ` + workoutCols + ` FROM workouts
WHERE user_id = ? AND deleted = 0
ORDER BY ended_at IS NOT NULL, ended_at DESC`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, storeErr("list workouts", err)
	}
	defer rows.Close()

	var out []*model.CompletedWorkout
	for rows.Next() {
		w, err := scanWorkout(rows.Scan)
		if err != nil {
			return nil, storeErr("list workouts", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list workouts", err)
	}
	return out, nil
}

// DeleteWorkout tombstones a workout for remote deletion.
func (s *Store) DeleteWorkout(ctx context.Context, id string) error {
	return s.tombstone(ctx, "workouts", "delete workout", id)
}

// ClearWorkoutCategory detaches the user's workouts from a category.
func (s *Store) ClearWorkoutCategory(ctx context.Context, userID, categoryID string) error {
	const q = `
UPDATE workouts SET category_id = '', dirty = 1, sync_rev = sync_rev + 1
WHERE user_id = ? AND category_id = ? AND deleted = 0`
	if _, err := s.db.ExecContext(ctx, q, userID, categoryID); err != nil {
		return storeErr("clear workout category", err)
	}
	return nil
}

// tombstone marks a row deleted and dirty so the push loop propagates
// the deletion before the row is purged.
func (s *Store) tombstone(ctx context.Context, table, op, id string) error {
	q := fmt.Sprintf(`UPDATE %s SET deleted = 1, dirty = 1, sync_rev = sync_rev + 1 WHERE id = ? AND deleted = 0`, table)
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return storeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
)

// PutStats upserts the stats record. Nested rollups are stored as JSON.
func (s *Store) PutStats(ctx context.Context, st *model.Stats, dirty bool) error {
	exercises, err := json.Marshal(st.Exercises)
	if err != nil {
		return fmt.Errorf("marshal exercise stats: %v: %w", err, errs.ErrInvalidRecord)
	}
	types, err := json.Marshal(st.Types)
	if err != nil {
		return fmt.Errorf("marshal type stats: %v: %w", err, errs.ErrInvalidRecord)
	}
	const q = `
INSERT INTO stats (id, user_id, xp, level, current_streak, longest_streak,
    total_workouts, total_seconds, last_workout_at, exercises, types, dirty, deleted, sync_rev)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
ON CONFLICT(id) DO UPDATE SET
    xp = excluded.xp,
    level = excluded.level,
    current_streak = excluded.current_streak,
    longest_streak = excluded.longest_streak,
    total_workouts = excluded.total_workouts,
    total_seconds = excluded.total_seconds,
    last_workout_at = excluded.last_workout_at,
    exercises = excluded.exercises,
    types = excluded.types,
    dirty = excluded.dirty,
    deleted = 0,
    sync_rev = sync_rev + excluded.dirty`
	_, err = s.db.ExecContext(ctx, q,
		st.ID, st.UserID, st.XP, st.Level, st.CurrentStreak, st.LongestStreak,
		st.TotalWorkouts, st.TotalSeconds, optNano(st.LastWorkoutAt),
		string(exercises), string(types), boolInt(dirty), boolInt(dirty))
	if err != nil {
		return storeErr("put stats", err)
	}
	return nil
}

// GetStats loads stats by id.
func (s *Store) GetStats(ctx context.Context, id string) (*model.Stats, error) {
	return s.getStats(ctx, "id = ?", id)
}

// GetStatsByUser loads the stats record owned by userID.
func (s *Store) GetStatsByUser(ctx context.Context, userID string) (*model.Stats, error) {
	return s.getStats(ctx, "user_id = ?", userID)
}

func (s *Store) getStats(ctx context.Context, where string, arg any) (*model.Stats, error) {
	q := `
SELECT id, user_id, xp, level, current_streak, longest_streak,
    total_workouts, total_seconds, last_workout_at, exercises, types
FROM stats WHERE deleted = 0 AND ` + where
	var (
		st             model.Stats
		lastWorkout    sql.NullInt64
		exercises, tps string
	)
	err := s.db.QueryRowContext(ctx, q, arg).Scan(
		&st.ID, &st.UserID, &st.XP, &st.Level, &st.CurrentStreak, &st.LongestStreak,
		&st.TotalWorkouts, &st.TotalSeconds, &lastWorkout, &exercises, &tps)
	if err != nil {
		return nil, storeErr("get stats", err)
	}
	st.LastWorkoutAt = fromOptNano(lastWorkout)
	if err := json.Unmarshal([]byte(exercises), &st.Exercises); err != nil {
		return nil, fmt.Errorf("unmarshal exercise stats: %v: %w", err, errs.ErrInvalidRecord)
	}
	if err := json.Unmarshal([]byte(tps), &st.Types); err != nil {
		return nil, fmt.Errorf("unmarshal type stats: %v: %w", err, errs.ErrInvalidRecord)
	}
	if st.Exercises == nil {
		st.Exercises = map[string]model.ExerciseStat{}
	}
	if st.Types == nil {
		st.Types = map[string]model.TypeStat{}
	}
	return &st, nil
}

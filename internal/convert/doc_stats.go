package convert

import (
	"fmt"

	"github.com/and161185/fitkeeper/internal/model"
)

// StatsDoc encodes Stats with its nested per-exercise and per-type rollups.
func StatsDoc(s *model.Stats) Document {
	exercises := make(map[string]any, len(s.Exercises))
	for id, es := range s.Exercises {
		history := make([]any, 0, len(es.History))
		for _, b := range es.History {
			history = append(history, map[string]any{
				"weight":       b.Weight,
				"reps":         int64(b.Reps),
				"performed_at": b.PerformedAt,
			})
		}
		exercises[id] = map[string]any{
			"count":             es.Count,
			"best_weight":       es.BestWeight,
			"best_reps":         int64(es.BestReps),
			"avg_weight":        es.AvgWeight,
			"avg_reps":          es.AvgReps,
			"avg_sets":          es.AvgSets,
			"last_performed_at": es.LastPerformedAt,
			"history":           history,
		}
	}
	types := make(map[string]any, len(s.Types))
	for id, ts := range s.Types {
		types[id] = map[string]any{
			"count":             ts.Count,
			"total_seconds":     ts.TotalSeconds,
			"last_performed_at": ts.LastPerformedAt,
		}
	}
	d := Document{
		"id":             s.ID,
		"user_id":        s.UserID,
		"xp":             s.XP,
		"level":          int64(s.Level),
		"current_streak": int64(s.CurrentStreak),
		"longest_streak": int64(s.LongestStreak),
		"total_workouts": s.TotalWorkouts,
		"total_seconds":  s.TotalSeconds,
		"exercises":      exercises,
		"types":          types,
	}
	if s.LastWorkoutAt != nil {
		d["last_workout_at"] = *s.LastWorkoutAt
	}
	return d
}

// StatsFromDoc decodes Stats.
func StatsFromDoc(d Document) (*model.Stats, error) {
	var (
		s   model.Stats
		err error
	)
	if s.ID, err = getStr(d, "id"); err != nil {
		return nil, err
	}
	if s.UserID, err = getStr(d, "user_id"); err != nil {
		return nil, err
	}
	if s.XP, err = getInt(d, "xp"); err != nil {
		return nil, err
	}
	level, err := getInt(d, "level")
	if err != nil {
		return nil, err
	}
	s.Level = int(level)
	cur, err := getInt(d, "current_streak")
	if err != nil {
		return nil, err
	}
	s.CurrentStreak = int(cur)
	longest, err := getInt(d, "longest_streak")
	if err != nil {
		return nil, err
	}
	s.LongestStreak = int(longest)
	if s.TotalWorkouts, err = getInt(d, "total_workouts"); err != nil {
		return nil, err
	}
	if s.TotalSeconds, err = getInt(d, "total_seconds"); err != nil {
		return nil, err
	}
	if s.LastWorkoutAt, err = optTime(d, "last_workout_at"); err != nil {
		return nil, err
	}

	em, err := getMap(d, "exercises")
	if err != nil {
		return nil, err
	}
	s.Exercises = make(map[string]model.ExerciseStat, len(em))
	for id, v := range em {
		ed, err := subDoc(v)
		if err != nil {
			return nil, fmt.Errorf("exercises[%s]: %w", id, err)
		}
		es, err := exerciseStatFromDoc(ed)
		if err != nil {
			return nil, fmt.Errorf("exercises[%s]: %w", id, err)
		}
		s.Exercises[id] = es
	}

	tm, err := getMap(d, "types")
	if err != nil {
		return nil, err
	}
	s.Types = make(map[string]model.TypeStat, len(tm))
	for id, v := range tm {
		td, err := subDoc(v)
		if err != nil {
			return nil, fmt.Errorf("types[%s]: %w", id, err)
		}
		var ts model.TypeStat
		if ts.Count, err = getInt(td, "count"); err != nil {
			return nil, fmt.Errorf("types[%s]: %w", id, err)
		}
		if ts.TotalSeconds, err = getInt(td, "total_seconds"); err != nil {
			return nil, fmt.Errorf("types[%s]: %w", id, err)
		}
		if ts.LastPerformedAt, err = getTime(td, "last_performed_at"); err != nil {
			return nil, fmt.Errorf("types[%s]: %w", id, err)
		}
		s.Types[id] = ts
	}
	return &s, nil
}

func exerciseStatFromDoc(d Document) (model.ExerciseStat, error) {
	var (
		es  model.ExerciseStat
		err error
	)
	if es.Count, err = getInt(d, "count"); err != nil {
		return es, err
	}
	if es.BestWeight, err = getFloat(d, "best_weight"); err != nil {
		return es, err
	}
	reps, err := getInt(d, "best_reps")
	if err != nil {
		return es, err
	}
	es.BestReps = int(reps)
	if es.AvgWeight, err = getFloat(d, "avg_weight"); err != nil {
		return es, err
	}
	if es.AvgReps, err = getFloat(d, "avg_reps"); err != nil {
		return es, err
	}
	if es.AvgSets, err = getFloat(d, "avg_sets"); err != nil {
		return es, err
	}
	if es.LastPerformedAt, err = getTime(d, "last_performed_at"); err != nil {
		return es, err
	}
	list, err := getList(d, "history")
	if err != nil {
		return es, err
	}
	es.History = make([]model.BestSet, 0, len(list))
	for i, v := range list {
		bd, err := subDoc(v)
		if err != nil {
			return es, fmt.Errorf("history[%d]: %w", i, err)
		}
		var b model.BestSet
		if b.Weight, err = getFloat(bd, "weight"); err != nil {
			return es, fmt.Errorf("history[%d]: %w", i, err)
		}
		r, err := getInt(bd, "reps")
		if err != nil {
			return es, fmt.Errorf("history[%d]: %w", i, err)
		}
		b.Reps = int(r)
		if b.PerformedAt, err = getTime(bd, "performed_at"); err != nil {
			return es, fmt.Errorf("history[%d]: %w", i, err)
		}
		es.History = append(es.History, b)
	}
	return es, nil
}

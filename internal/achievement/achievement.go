// Package achievement evaluates definitions against derived stats.
// Pure computation, no I/O.
package achievement

import (
	"time"

	"github.com/and161185/fitkeeper/internal/model"
)

// WorkoutMeta carries the workout facts the rules need beyond Stats.
type WorkoutMeta struct {
	StartHour   int // 0..23, UTC hour of the workout start
	DurationSec int64
}

// Update is one evaluated progress row. NewlyCompleted is true only on
// the false→true completion transition; the XP award decision still
// consults XPGranted at the orchestration layer.
type Update struct {
	Progress       model.AchievementProgress
	Def            model.AchievementDefinition
	NewlyCompleted bool
}

// Evaluate compares every definition against the updated stats and the
// caller's current progress set, returning the rows that changed.
//
// Completion is monotonic: once a progress row is completed it stays
// completed even if the underlying metric later decreases.
func Evaluate(
	defs []model.AchievementDefinition,
	current map[string]model.AchievementProgress, // by definition id
	stats *model.Stats,
	meta WorkoutMeta,
	now time.Time,
) []Update {
	var out []Update
	for _, def := range defs {
		prev, hasPrev := current[def.ID]
		value := metricValue(def, stats, meta, prev)

		next := prev
		next.AchievementID = def.ID
		next.UserID = stats.UserID
		if !hasPrev {
			next.Current = 0
		}

		changed := false
		if value != next.Current {
			// completed rows keep their high-water metric visible
			if !next.Completed || value > next.Current {
				next.Current = value
				changed = true
			}
		}

		newlyCompleted := false
		if !next.Completed && value >= def.Threshold {
			next.Completed = true
			t := now
			next.CompletedAt = &t
			newlyCompleted = true
			changed = true
		}

		if !hasPrev && !changed && value == 0 {
			continue // nothing to record yet
		}
		if !changed && hasPrev {
			continue
		}
		next.UpdatedAt = now
		out = append(out, Update{Progress: next, Def: def, NewlyCompleted: newlyCompleted})
	}
	return out
}

// metricValue extracts the definition's metric from the inputs.
// Counter metrics (early bird, night owl) accumulate on top of the
// previous progress value; threshold metrics read the stats directly.
func metricValue(
	def model.AchievementDefinition,
	stats *model.Stats,
	meta WorkoutMeta,
	prev model.AchievementProgress,
) int64 {
	switch def.Metric {
	case model.MetricWorkoutCount:
		return stats.TotalWorkouts
	case model.MetricStreakDays:
		return int64(stats.LongestStreak)
	case model.MetricDurationSeconds:
		if meta.DurationSec > prev.Current {
			return meta.DurationSec
		}
		return prev.Current
	case model.MetricEarlyBirdCount:
		if meta.StartHour < 8 {
			return prev.Current + 1
		}
		return prev.Current
	case model.MetricNightOwlCount:
		if meta.StartHour >= 21 {
			return prev.Current + 1
		}
		return prev.Current
	case model.MetricExerciseWeight:
		if es, ok := stats.Exercises[def.ExerciseID]; ok {
			return int64(es.BestWeight)
		}
		return prev.Current
	}
	return prev.Current
}

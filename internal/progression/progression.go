// Package progression derives updated Stats from a finalized workout.
// Pure computation, no I/O: the orchestration layer owns persistence.
package progression

import (
	"fmt"
	"time"

	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
)

// Apply folds one finalized workout into the prior stats and returns
// the next stats. The input workout must have a non-nil EndedAt;
// anything else is a programming error upstream and fails loudly.
func Apply(prior *model.Stats, w *model.CompletedWorkout) (*model.Stats, error) {
	if w.EndedAt == nil {
		return nil, fmt.Errorf("apply progression to in-progress workout %s: %w", w.ID, errs.ErrInvalidRecord)
	}
	next := prior.Clone()
	endedAt := w.EndedAt.UTC()

	applyStreak(next, endedAt)
	applyExercises(next, w, endedAt)
	applyTypes(next, w, endedAt)

	next.TotalWorkouts++
	next.TotalSeconds += w.DurationSec
	next.LastWorkoutAt = &endedAt
	return next, nil
}

// applyStreak updates the consecutive-day counters using calendar-day
// buckets, not 24h windows.
func applyStreak(s *model.Stats, endedAt time.Time) {
	switch {
	case s.LastWorkoutAt == nil:
		s.CurrentStreak = 1
	default:
		switch dayDiff(*s.LastWorkoutAt, endedAt) {
		case 0:
			// same-day repeat: streak unchanged
		case 1:
			s.CurrentStreak++
		default:
			s.CurrentStreak = 1
		}
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
}

// dayDiff counts whole calendar days between two instants in UTC.
func dayDiff(from, to time.Time) int {
	f := from.UTC()
	t := to.UTC()
	fd := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	td := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(td.Sub(fd) / (24 * time.Hour))
}

func applyExercises(s *model.Stats, w *model.CompletedWorkout, endedAt time.Time) {
	for _, ex := range w.Exercises {
		if len(ex.Sets) == 0 {
			continue
		}
		es := s.Exercises[ex.ExerciseID]
		oldCount := es.Count
		es.Count++

		var (
			sumWeight float64
			sumReps   float64
			best      model.Set
			bestScore float64
		)
		for i, set := range ex.Sets {
			sumWeight += set.Weight
			sumReps += float64(set.Reps)
			score := set.Weight * float64(set.Reps)
			if i == 0 || score > bestScore {
				best = set
				bestScore = score
			}
			if set.Weight > es.BestWeight {
				es.BestWeight = set.Weight
			}
			if set.Reps > es.BestReps {
				es.BestReps = set.Reps
			}
		}
		n := float64(len(ex.Sets))
		es.AvgWeight = incrementalMean(es.AvgWeight, oldCount, sumWeight/n)
		es.AvgReps = incrementalMean(es.AvgReps, oldCount, sumReps/n)
		es.AvgSets = incrementalMean(es.AvgSets, oldCount, n)
		es.LastPerformedAt = endedAt

		es.History = append(es.History, model.BestSet{
			Weight:      best.Weight,
			Reps:        best.Reps,
			PerformedAt: endedAt,
		})
		if over := len(es.History) - model.BestSetHistoryCap; over > 0 {
			es.History = append([]model.BestSet(nil), es.History[over:]...)
		}
		s.Exercises[ex.ExerciseID] = es
	}
}

// incrementalMean folds one per-workout average into a running mean
// weighted by the number of prior workouts.
func incrementalMean(oldAvg float64, oldCount int64, sample float64) float64 {
	return (oldAvg*float64(oldCount) + sample) / float64(oldCount+1)
}

func applyTypes(s *model.Stats, w *model.CompletedWorkout, endedAt time.Time) {
	seen := map[string]bool{}
	for _, ex := range w.Exercises {
		cat := ex.Category
		if cat == "" {
			cat = "uncategorized"
		}
		if seen[cat] {
			continue
		}
		seen[cat] = true
		ts := s.Types[cat]
		ts.Count++
		ts.TotalSeconds += w.DurationSec
		ts.LastPerformedAt = endedAt
		s.Types[cat] = ts
	}
}

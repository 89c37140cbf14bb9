package model

import "time"

// BestSetHistoryCap bounds per-exercise best-set history; oldest entries
// are dropped first on overflow.
const BestSetHistoryCap = 50

// BestSet is the single best set (by weight*reps) of one past workout.
type BestSet struct {
	Weight      float64
	Reps        int
	PerformedAt time.Time
}

// ExerciseStat is the per-exercise rollup inside Stats.
// BestWeight and BestReps are monotonically non-decreasing.
type ExerciseStat struct {
	Count           int64
	BestWeight      float64
	BestReps        int
	AvgWeight       float64
	AvgReps         float64
	AvgSets         float64
	LastPerformedAt time.Time
	History         []BestSet
}

// TypeStat is the per-category rollup inside Stats.
type TypeStat struct {
	Count           int64
	TotalSeconds    int64
	LastPerformedAt time.Time
}

// Stats is the derived progression state for one user.
// Level is always recomputed from XP, never stored independently.
// XP, LongestStreak and TotalWorkouts are monotonically non-decreasing.
type Stats struct {
	ID            string
	UserID        string
	XP            int64
	Level         int
	CurrentStreak int
	LongestStreak int
	TotalWorkouts int64
	TotalSeconds  int64
	LastWorkoutAt *time.Time
	Exercises     map[string]ExerciseStat
	Types         map[string]TypeStat
}

// Clone returns a deep copy so that pure engines never alias caller state.
func (s *Stats) Clone() *Stats {
	out := *s
	if s.LastWorkoutAt != nil {
		t := *s.LastWorkoutAt
		out.LastWorkoutAt = &t
	}
	out.Exercises = make(map[string]ExerciseStat, len(s.Exercises))
	for k, v := range s.Exercises {
		v.History = append([]BestSet(nil), v.History...)
		out.Exercises[k] = v
	}
	out.Types = make(map[string]TypeStat, len(s.Types))
	for k, v := range s.Types {
		out.Types[k] = v
	}
	return &out
}

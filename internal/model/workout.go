package model

import "time"

// SetType classifies a single set within an exercise.
type SetType string

const (
	SetNormal  SetType = "normal"
	SetWarmup  SetType = "warmup"
	SetDropset SetType = "dropset"
	SetFailure SetType = "failure"
)

// Set is one performed (or planned) set.
type Set struct {
	Type   SetType
	Weight float64
	Reps   int
}

// CompletedExercise is one exercise inside a workout with its ordered sets.
type CompletedExercise struct {
	ExerciseID string
	Category   string
	Sets       []Set
}

// CompletedWorkout is a workout session. EndedAt is nil while the
// session is in progress; at most one such record exists per user.
// DurationSec is whole seconds between start and end.
type CompletedWorkout struct {
	ID          string
	UserID      string
	Name        string
	TemplateID  string // empty if started ad hoc
	CategoryID  string // empty = uncategorized
	StartedAt   time.Time
	EndedAt     *time.Time
	DurationSec int64
	Exercises   []CompletedExercise
}

// InProgress reports whether the workout has not been finalized yet.
func (w *CompletedWorkout) InProgress() bool { return w.EndedAt == nil }

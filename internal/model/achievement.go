package model

import "time"

// Metric identifies what an achievement definition measures.
type Metric string

const (
	// MetricWorkoutCount compares against Stats.TotalWorkouts.
	MetricWorkoutCount Metric = "workout_count"
	// MetricStreakDays compares against Stats.LongestStreak.
	MetricStreakDays Metric = "streak_days"
	// MetricDurationSeconds compares against a single workout's duration.
	MetricDurationSeconds Metric = "duration_seconds"
	// MetricEarlyBirdCount counts workouts started before 08:00.
	MetricEarlyBirdCount Metric = "early_bird_count"
	// MetricNightOwlCount counts workouts started at or after 21:00.
	MetricNightOwlCount Metric = "night_owl_count"
	// MetricExerciseWeight compares against the best weight of a named exercise.
	MetricExerciseWeight Metric = "exercise_weight"
)

// AchievementDefinition is static seed data describing one achievement.
// Immutable after seeding; not user-owned and not stored in the entity store.
type AchievementDefinition struct {
	ID          string
	Title       string
	Description string
	Metric      Metric
	Threshold   int64
	ExerciseID  string // only for MetricExerciseWeight
	XPReward    int64
}

// AchievementProgress tracks one user's progress toward one definition.
// Completed is set at most once and never reverts; CompletedAt is set
// exactly when Completed flips true. XPGranted records that the reward
// was paid, so re-evaluation never double-pays.
type AchievementProgress struct {
	ID            string
	UserID        string
	AchievementID string
	Current       int64
	Completed     bool
	CompletedAt   *time.Time
	XPGranted     bool
	UpdatedAt     time.Time
}

package achievement

import "github.com/and161185/fitkeeper/internal/model"

// Definitions is the static seed set. Immutable after process start;
// not user-owned and not written to the entity store.
var Definitions = []model.AchievementDefinition{
	{
		ID:          "first_workout",
		Title:       "First Steps",
		Description: "Complete your first workout",
		Metric:      model.MetricWorkoutCount,
		Threshold:   1,
		XPReward:    50,
	},
	{
		ID:          "ten_workouts",
		Title:       "Regular",
		Description: "Complete 10 workouts",
		Metric:      model.MetricWorkoutCount,
		Threshold:   10,
		XPReward:    100,
	},
	{
		ID:          "fifty_workouts",
		Title:       "Dedicated",
		Description: "Complete 50 workouts",
		Metric:      model.MetricWorkoutCount,
		Threshold:   50,
		XPReward:    300,
	},
	{
		ID:          "hundred_workouts",
		Title:       "Centurion",
		Description: "Complete 100 workouts",
		Metric:      model.MetricWorkoutCount,
		Threshold:   100,
		XPReward:    500,
	},
	{
		ID:          "streak_week",
		Title:       "Week Warrior",
		Description: "Work out 7 days in a row",
		Metric:      model.MetricStreakDays,
		Threshold:   7,
		XPReward:    150,
	},
	{
		ID:          "streak_month",
		Title:       "Unstoppable",
		Description: "Work out 30 days in a row",
		Metric:      model.MetricStreakDays,
		Threshold:   30,
		XPReward:    500,
	},
	{
		ID:          "marathon_session",
		Title:       "Marathon",
		Description: "Finish a workout longer than 90 minutes",
		Metric:      model.MetricDurationSeconds,
		Threshold:   90 * 60,
		XPReward:    100,
	},
	{
		ID:          "early_bird",
		Title:       "Early Bird",
		Description: "Start 10 workouts before 8:00",
		Metric:      model.MetricEarlyBirdCount,
		Threshold:   10,
		XPReward:    150,
	},
	{
		ID:          "night_owl",
		Title:       "Night Owl",
		Description: "Start 10 workouts after 21:00",
		Metric:      model.MetricNightOwlCount,
		Threshold:   10,
		XPReward:    150,
	},
	{
		ID:          "bench_100",
		Title:       "Big Bench",
		Description: "Bench press 100 kg",
		Metric:      model.MetricExerciseWeight,
		Threshold:   100,
		ExerciseID:  "bench_press",
		XPReward:    250,
	},
	{
		ID:          "squat_140",
		Title:       "Deep Power",
		Description: "Squat 140 kg",
		Metric:      model.MetricExerciseWeight,
		Threshold:   140,
		ExerciseID:  "squat",
		XPReward:    250,
	},
}

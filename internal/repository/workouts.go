package repository

import (
	"context"

	"github.com/and161185/fitkeeper/internal/model"
)

// WorkoutRepository provides access to completed (and in-progress) workouts.
type WorkoutRepository interface {
	// PutWorkout upserts a workout.
	PutWorkout(ctx context.Context, w *model.CompletedWorkout, dirty bool) error
	// GetWorkout loads a workout by id.
	GetWorkout(ctx context.Context, id string) (*model.CompletedWorkout, error)
	// GetInProgress returns the user's open workout, errs.ErrNotFound if none.
	GetInProgress(ctx context.Context, userID string) (*model.CompletedWorkout, error)
	// ListWorkouts returns the user's workouts, in-progress first, then
	// ended-at descending.
	ListWorkouts(ctx context.Context, userID string) ([]*model.CompletedWorkout, error)
	// DeleteWorkout tombstones a workout for remote deletion.
	DeleteWorkout(ctx context.Context, id string) error
	// ClearWorkoutCategory detaches all of the user's workouts from a category.
	ClearWorkoutCategory(ctx context.Context, userID, categoryID string) error
}

// TemplateRepository provides access to workout templates.
type TemplateRepository interface {
	PutTemplate(ctx context.Context, t *model.WorkoutTemplate, dirty bool) error
	GetTemplate(ctx context.Context, id string) (*model.WorkoutTemplate, error)
	ListTemplates(ctx context.Context, userID string) ([]*model.WorkoutTemplate, error)
	// DeleteTemplate tombstones a template. Workouts started from it keep
	// their template id.
	DeleteTemplate(ctx context.Context, id string) error
	// ClearTemplateCategory detaches all of the user's templates from a category.
	ClearTemplateCategory(ctx context.Context, userID, categoryID string) error
}

// CategoryRepository provides access to workout categories.
type CategoryRepository interface {
	PutCategory(ctx context.Context, c *model.WorkoutCategory, dirty bool) error
	GetCategory(ctx context.Context, id string) (*model.WorkoutCategory, error)
	ListCategories(ctx context.Context, userID string) ([]*model.WorkoutCategory, error)
	DeleteCategory(ctx context.Context, id string) error
}

// AchievementRepository provides access to achievement progress rows.
type AchievementRepository interface {
	PutProgress(ctx context.Context, p *model.AchievementProgress, dirty bool) error
	// GetProgress loads progress by (user, achievement definition) pair.
	GetProgress(ctx context.Context, userID, achievementID string) (*model.AchievementProgress, error)
	ListProgress(ctx context.Context, userID string) ([]*model.AchievementProgress, error)
}

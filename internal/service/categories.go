package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
	"github.com/and161185/fitkeeper/internal/repository"
)

// CategoryService manages workout categories.
type CategoryService interface {
	Add(ctx context.Context, userID, name, color string) (*model.WorkoutCategory, error)
	Update(ctx context.Context, categoryID, name, color string) (*model.WorkoutCategory, error)
	// Delete removes a category. Workouts and templates referencing it
	// are detached (become uncategorized), never deleted.
	Delete(ctx context.Context, userID, categoryID string) error
	List(ctx context.Context, userID string) ([]*model.WorkoutCategory, error)
}

type CategoryServiceImpl struct {
	categories repository.CategoryRepository
	workouts   repository.WorkoutRepository
	templates  repository.TemplateRepository
	sync       SyncControl
	log        *zap.Logger
}

// NewCategoryService constructs CategoryService with required dependencies.
func NewCategoryService(
	categories repository.CategoryRepository,
	workouts repository.WorkoutRepository,
	templates repository.TemplateRepository,
	sync SyncControl,
	log *zap.Logger,
) *CategoryServiceImpl {
	return &CategoryServiceImpl{
		categories: categories,
		workouts:   workouts,
		templates:  templates,
		sync:       sync,
		log:        log,
	}
}

// Add creates a category.
func (s *CategoryServiceImpl) Add(ctx context.Context, userID, name, color string) (*model.WorkoutCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty category name: %w", errs.ErrInvalidRecord)
	}
	c := &model.WorkoutCategory{
		ID:     newID(),
		UserID: userID,
		Name:   name,
		Color:  color,
	}
	if err := s.categories.PutCategory(ctx, c, true); err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return c, nil
}

// Update edits a category's name and color.
func (s *CategoryServiceImpl) Update(ctx context.Context, categoryID, name, color string) (*model.WorkoutCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty category name: %w", errs.ErrInvalidRecord)
	}
	c, err := s.categories.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	c.Name = name
	c.Color = color
	if err := s.categories.PutCategory(ctx, c, true); err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return c, nil
}

// Delete removes a category after detaching every referrer, so no
// record ever points at a missing category.
func (s *CategoryServiceImpl) Delete(ctx context.Context, userID, categoryID string) error {
	if _, err := s.categories.GetCategory(ctx, categoryID); err != nil {
		return err
	}
	if err := s.workouts.ClearWorkoutCategory(ctx, userID, categoryID); err != nil {
		return err
	}
	if err := s.templates.ClearTemplateCategory(ctx, userID, categoryID); err != nil {
		return err
	}
	if err := s.categories.DeleteCategory(ctx, categoryID); err != nil {
		return err
	}
	s.log.Info("category deleted", zap.String("user", userID), zap.String("category", categoryID))
	s.sync.RequestSync()
	return nil
}

// List returns the user's categories.
func (s *CategoryServiceImpl) List(ctx context.Context, userID string) ([]*model.WorkoutCategory, error) {
	return s.categories.ListCategories(ctx, userID)
}

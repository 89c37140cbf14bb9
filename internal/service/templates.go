package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
	"github.com/and161185/fitkeeper/internal/repository"
)

// TemplateService manages reusable workout blueprints.
type TemplateService interface {
	Add(ctx context.Context, userID, name, categoryID string, exercises []model.TemplateExercise) (*model.WorkoutTemplate, error)
	Update(ctx context.Context, templateID, name, categoryID string, exercises []model.TemplateExercise) (*model.WorkoutTemplate, error)
	// Delete removes a template. Workouts started from it keep their
	// template id.
	Delete(ctx context.Context, templateID string) error
	Get(ctx context.Context, templateID string) (*model.WorkoutTemplate, error)
	List(ctx context.Context, userID string) ([]*model.WorkoutTemplate, error)
}

type TemplateServiceImpl struct {
	templates repository.TemplateRepository
	sync      SyncControl
}

// NewTemplateService constructs TemplateService with required dependencies.
func NewTemplateService(templates repository.TemplateRepository, sync SyncControl) *TemplateServiceImpl {
	return &TemplateServiceImpl{templates: templates, sync: sync}
}

// Add creates a template.
func (s *TemplateServiceImpl) Add(ctx context.Context, userID, name, categoryID string, exercises []model.TemplateExercise) (*model.WorkoutTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty template name: %w", errs.ErrInvalidRecord)
	}
	t := &model.WorkoutTemplate{
		ID:         newID(),
		UserID:     userID,
		Name:       name,
		CategoryID: categoryID,
		Exercises:  exercises,
	}
	if err := s.templates.PutTemplate(ctx, t, true); err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return t, nil
}

// Update replaces a template's name, category and exercise list.
func (s *TemplateServiceImpl) Update(ctx context.Context, templateID, name, categoryID string, exercises []model.TemplateExercise) (*model.WorkoutTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty template name: %w", errs.ErrInvalidRecord)
	}
	t, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	t.Name = name
	t.CategoryID = categoryID
	t.Exercises = exercises
	if err := s.templates.PutTemplate(ctx, t, true); err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return t, nil
}

// Delete removes a template.
func (s *TemplateServiceImpl) Delete(ctx context.Context, templateID string) error {
	if err := s.templates.DeleteTemplate(ctx, templateID); err != nil {
		return err
	}
	s.sync.RequestSync()
	return nil
}

// Get loads one template.
func (s *TemplateServiceImpl) Get(ctx context.Context, templateID string) (*model.WorkoutTemplate, error) {
	return s.templates.GetTemplate(ctx, templateID)
}

// List returns the user's templates.
func (s *TemplateServiceImpl) List(ctx context.Context, userID string) ([]*model.WorkoutTemplate, error) {
	return s.templates.ListTemplates(ctx, userID)
}

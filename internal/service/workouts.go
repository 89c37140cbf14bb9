package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/fitkeeper/internal/achievement"
	"github.com/and161185/fitkeeper/internal/clock"
	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
	"github.com/and161185/fitkeeper/internal/progression"
	"github.com/and161185/fitkeeper/internal/repository"
)

// DefaultCompletionXP is awarded for every finished workout, before any
// achievement rewards.
const DefaultCompletionXP = 25

// FinishResult is what a finalized workout produced.
type FinishResult struct {
	Workout   *model.CompletedWorkout
	Stats     *model.Stats
	XPAwarded int64
	LeveledUp bool
	Unlocked  []model.AchievementDefinition
}

// WorkoutService drives the workout session lifecycle and the derived
// progression state.
type WorkoutService interface {
	// Start opens a new session. Fails with errs.ErrWorkoutInProgress if
	// the user already has an open one.
	Start(ctx context.Context, userID, name, templateID, categoryID string) (*model.CompletedWorkout, error)
	// StartFromTemplate opens a session pre-filled with the template's exercises.
	StartFromTemplate(ctx context.Context, userID string, t *model.WorkoutTemplate) (*model.CompletedWorkout, error)
	// Current returns the open session, errs.ErrNoWorkoutInProgress if none.
	Current(ctx context.Context, userID string) (*model.CompletedWorkout, error)
	// AddExercise appends an exercise to the open session.
	AddExercise(ctx context.Context, userID, exerciseID, category string) (*model.CompletedWorkout, error)
	// AddSet appends a set to the named exercise of the open session,
	// adding the exercise first if it is not there yet.
	AddSet(ctx context.Context, userID, exerciseID, category string, set model.Set) (*model.CompletedWorkout, error)
	// Finish finalizes the open session: stamps end time and duration,
	// folds the workout into stats, evaluates achievements and awards XP.
	Finish(ctx context.Context, userID string) (*FinishResult, error)
	// Cancel discards the open session without touching stats.
	Cancel(ctx context.Context, userID string) error
	// Rename changes a finished workout's name.
	Rename(ctx context.Context, workoutID, name string) (*model.CompletedWorkout, error)
	// EditExercises replaces a finished workout's exercise list. Stats
	// already derived from the original run are not recomputed.
	EditExercises(ctx context.Context, workoutID string, exercises []model.CompletedExercise) (*model.CompletedWorkout, error)
	// Delete removes a workout from history.
	Delete(ctx context.Context, workoutID string) error
	// List returns the user's workouts, open session first.
	List(ctx context.Context, userID string) ([]*model.CompletedWorkout, error)
	// Progress returns the user's achievement progress rows.
	Progress(ctx context.Context, userID string) ([]*model.AchievementProgress, error)
	// AddXP grants XP outside the workout flow (bonuses, migrations).
	AddXP(ctx context.Context, userID string, amount int64) (*model.Stats, error)
}

type WorkoutServiceImpl struct {
	workouts     repository.WorkoutRepository
	stats        repository.StatsRepository
	progress     repository.AchievementRepository
	sync         SyncControl
	clock        clock.Clock
	log          *zap.Logger
	locks        *ownerLocks
	defs         []model.AchievementDefinition
	completionXP int64
}

// NewWorkoutService constructs WorkoutService with required dependencies.
func NewWorkoutService(
	workouts repository.WorkoutRepository,
	stats repository.StatsRepository,
	progress repository.AchievementRepository,
	sync SyncControl,
	clk clock.Clock,
	log *zap.Logger,
	completionXP int64,
) *WorkoutServiceImpl {
	if completionXP <= 0 {
		completionXP = DefaultCompletionXP
	}
	return &WorkoutServiceImpl{
		workouts:     workouts,
		stats:        stats,
		progress:     progress,
		sync:         sync,
		clock:        clk,
		log:          log,
		locks:        newOwnerLocks(),
		defs:         achievement.Definitions,
		completionXP: completionXP,
	}
}

// Start opens a new session.
func (s *WorkoutServiceImpl) Start(ctx context.Context, userID, name, templateID, categoryID string) (*model.CompletedWorkout, error) {
	return s.start(ctx, userID, name, templateID, categoryID, nil)
}

// StartFromTemplate opens a session pre-filled with the template's exercises.
func (s *WorkoutServiceImpl) StartFromTemplate(ctx context.Context, userID string, t *model.WorkoutTemplate) (*model.CompletedWorkout, error) {
	exercises := make([]model.CompletedExercise, 0, len(t.Exercises))
	for _, te := range t.Exercises {
		exercises = append(exercises, model.CompletedExercise{
			ExerciseID: te.ExerciseID,
			Category:   te.Category,
		})
	}
	return s.start(ctx, userID, t.Name, t.ID, t.CategoryID, exercises)
}

// start persists the new session in a single write under the owner
// lock, so no other operation can observe a half-built workout.
func (s *WorkoutServiceImpl) start(ctx context.Context, userID, name, templateID, categoryID string, exercises []model.CompletedExercise) (*model.CompletedWorkout, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	if _, err := s.workouts.GetInProgress(ctx, userID); err == nil {
		return nil, fmt.Errorf("user %s: %w", userID, errs.ErrWorkoutInProgress)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	w := &model.CompletedWorkout{
		ID:         newID(),
		UserID:     userID,
		Name:       name,
		TemplateID: templateID,
		CategoryID: categoryID,
		StartedAt:  s.clock.Now(),
		Exercises:  exercises,
	}
	if err := s.workouts.PutWorkout(ctx, w, true); err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return w, nil
}

// Current returns the open session.
func (s *WorkoutServiceImpl) Current(ctx context.Context, userID string) (*model.CompletedWorkout, error) {
	w, err := s.workouts.GetInProgress(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, errs.ErrNoWorkoutInProgress)
	}
	return w, err
}

// AddExercise appends an exercise to the open session.
func (s *WorkoutServiceImpl) AddExercise(ctx context.Context, userID, exerciseID, category string) (*model.CompletedWorkout, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	w, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, ex := range w.Exercises {
		if ex.ExerciseID == exerciseID {
			return w, nil
		}
	}
	w.Exercises = append(w.Exercises, model.CompletedExercise{
		ExerciseID: exerciseID,
		Category:   category,
	})
	if err := s.workouts.PutWorkout(ctx, w, true); err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return w, nil
}

// AddSet appends a set to the named exercise of the open session.
func (s *WorkoutServiceImpl) AddSet(ctx context.Context, userID, exerciseID, category string, set model.Set) (*model.CompletedWorkout, error) {
	if set.Type == "" {
		set.Type = model.SetNormal
	}
	if set.Weight < 0 || set.Reps < 0 {
		return nil, fmt.Errorf("negative weight or reps: %w", errs.ErrInvalidRecord)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	w, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, ex := range w.Exercises {
		if ex.ExerciseID == exerciseID {
			idx = i
			break
		}
	}
	if idx < 0 {
		w.Exercises = append(w.Exercises, model.CompletedExercise{
			ExerciseID: exerciseID,
			Category:   category,
		})
		idx = len(w.Exercises) - 1
	}
	w.Exercises[idx].Sets = append(w.Exercises[idx].Sets, set)
	if err := s.workouts.PutWorkout(ctx, w, true); err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return w, nil
}

// Finish finalizes the open session. The whole read-modify-write chain
// runs under the owner lock so overlapping finishes cannot interleave
// on the same stats record.
func (s *WorkoutServiceImpl) Finish(ctx context.Context, userID string) (*FinishResult, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	w, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	endedAt := now
	w.EndedAt = &endedAt
	w.DurationSec = int64(endedAt.Sub(w.StartedAt).Seconds())
	if w.DurationSec < 0 {
		w.DurationSec = 0
	}
	if err := s.workouts.PutWorkout(ctx, w, true); err != nil {
		return nil, err
	}

	prior, err := s.stats.GetStatsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	next, err := progression.Apply(prior, w)
	if err != nil {
		return nil, err
	}

	res := &FinishResult{Workout: w}
	award := s.completionXP

	current, err := s.currentProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	meta := achievement.WorkoutMeta{
		StartHour:   w.StartedAt.UTC().Hour(),
		DurationSec: w.DurationSec,
	}
	updates := achievement.Evaluate(s.defs, current, next, meta, now)
	seen := make(map[string]bool, len(updates))
	for i := range updates {
		up := &updates[i]
		seen[up.Def.ID] = true
		if up.Progress.ID == "" {
			up.Progress.ID = newID()
		}
		// At-most-once reward: pay only when the completed row has not
		// been paid yet, regardless of how completion was noticed.
		if up.Progress.Completed && !up.Progress.XPGranted {
			award += up.Def.XPReward
			up.Progress.XPGranted = true
		}
		if up.NewlyCompleted {
			res.Unlocked = append(res.Unlocked, up.Def)
		}
		if err := s.progress.PutProgress(ctx, &up.Progress, true); err != nil {
			return nil, err
		}
	}

	// Back-payment sweep: a crash between the progress write and the
	// stats write can leave a completed row unpaid, and the evaluator
	// skips rows whose metric did not move.
	for _, def := range s.defs {
		if seen[def.ID] {
			continue
		}
		prev, ok := current[def.ID]
		if !ok || !prev.Completed || prev.XPGranted {
			continue
		}
		award += def.XPReward
		prev.XPGranted = true
		prev.UpdatedAt = now
		if err := s.progress.PutProgress(ctx, &prev, true); err != nil {
			return nil, err
		}
	}

	priorLevel := next.Level
	next.XP += award
	next.Level = progression.LevelFromXP(next.XP)
	if err := s.stats.PutStats(ctx, next, true); err != nil {
		return nil, err
	}

	res.Stats = next
	res.XPAwarded = award
	res.LeveledUp = next.Level > priorLevel
	s.log.Info("workout finished",
		zap.String("user", userID),
		zap.String("workout", w.ID),
		zap.Int64("duration_sec", w.DurationSec),
		zap.Int64("xp_awarded", award),
		zap.Int("level", next.Level),
		zap.Int("unlocked", len(res.Unlocked)))
	s.sync.RequestSync()
	return res, nil
}

func (s *WorkoutServiceImpl) currentProgress(ctx context.Context, userID string) (map[string]model.AchievementProgress, error) {
	rows, err := s.progress.ListProgress(ctx, userID)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	out := make(map[string]model.AchievementProgress, len(rows))
	for _, r := range rows {
		out[r.AchievementID] = *r
	}
	return out, nil
}

// Cancel discards the open session.
func (s *WorkoutServiceImpl) Cancel(ctx context.Context, userID string) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	w, err := s.Current(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.workouts.DeleteWorkout(ctx, w.ID); err != nil {
		return err
	}
	s.sync.RequestSync()
	return nil
}

// Rename changes a finished workout's name.
func (s *WorkoutServiceImpl) Rename(ctx context.Context, workoutID, name string) (*model.CompletedWorkout, error) {
	w, err := s.workouts.GetWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	w.Name = name
	if err := s.workouts.PutWorkout(ctx, w, true); err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return w, nil
}

// EditExercises replaces a finished workout's exercise list. Historical
// edits do not reopen the session and never touch derived stats.
func (s *WorkoutServiceImpl) EditExercises(ctx context.Context, workoutID string, exercises []model.CompletedExercise) (*model.CompletedWorkout, error) {
	w, err := s.workouts.GetWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if w.InProgress() {
		return nil, fmt.Errorf("workout %s still in progress: %w", workoutID, errs.ErrWorkoutInProgress)
	}
	w.Exercises = exercises
	if err := s.workouts.PutWorkout(ctx, w, true); err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return w, nil
}

// Delete removes a workout from history.
func (s *WorkoutServiceImpl) Delete(ctx context.Context, workoutID string) error {
	if err := s.workouts.DeleteWorkout(ctx, workoutID); err != nil {
		return err
	}
	s.sync.RequestSync()
	return nil
}

// List returns the user's workouts, open session first.
func (s *WorkoutServiceImpl) List(ctx context.Context, userID string) ([]*model.CompletedWorkout, error) {
	return s.workouts.ListWorkouts(ctx, userID)
}

// Progress returns the user's achievement progress rows.
func (s *WorkoutServiceImpl) Progress(ctx context.Context, userID string) ([]*model.AchievementProgress, error) {
	return s.progress.ListProgress(ctx, userID)
}

// AddXP grants XP outside the workout flow.
func (s *WorkoutServiceImpl) AddXP(ctx context.Context, userID string, amount int64) (*model.Stats, error) {
	if amount < 0 {
		return nil, fmt.Errorf("negative xp amount: %w", errs.ErrInvalidRecord)
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	st, err := s.stats.GetStatsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	st.XP += amount
	st.Level = progression.LevelFromXP(st.XP)
	if err := s.stats.PutStats(ctx, st, true); err != nil {
		return nil, err
	}
	s.sync.RequestSync()
	return st, nil
}

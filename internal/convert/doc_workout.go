package convert

import (
	"fmt"

	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
)

func setDoc(s model.Set) Document {
	return Document{
		"type":   string(s.Type),
		"weight": s.Weight,
		"reps":   int64(s.Reps),
	}
}

func setFromDoc(d Document) (model.Set, error) {
	var s model.Set
	t, err := getStr(d, "type")
	if err != nil {
		return s, err
	}
	switch model.SetType(t) {
	case model.SetNormal, model.SetWarmup, model.SetDropset, model.SetFailure:
		s.Type = model.SetType(t)
	default:
		return s, fmt.Errorf("field \"type\": unknown set type %q: %w", t, errs.ErrInvalidRecord)
	}
	if s.Weight, err = getFloat(d, "weight"); err != nil {
		return s, err
	}
	reps, err := getInt(d, "reps")
	if err != nil {
		return s, err
	}
	s.Reps = int(reps)
	return s, nil
}

func setsDoc(sets []model.Set) []any {
	out := make([]any, 0, len(sets))
	for _, s := range sets {
		out = append(out, map[string]any(setDoc(s)))
	}
	return out
}

func setsFromList(l []any) ([]model.Set, error) {
	out := make([]model.Set, 0, len(l))
	for i, v := range l {
		d, err := subDoc(v)
		if err != nil {
			return nil, fmt.Errorf("set[%d]: %w", i, err)
		}
		s, err := setFromDoc(d)
		if err != nil {
			return nil, fmt.Errorf("set[%d]: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// WorkoutDoc encodes a CompletedWorkout. A nil EndedAt is encoded as an
// absent field so an in-progress workout round-trips as in-progress.
func WorkoutDoc(w *model.CompletedWorkout) Document {
	exercises := make([]any, 0, len(w.Exercises))
	for _, ex := range w.Exercises {
		exercises = append(exercises, map[string]any{
			"exercise_id": ex.ExerciseID,
			"category":    ex.Category,
			"sets":        setsDoc(ex.Sets),
		})
	}
	d := Document{
		"id":           w.ID,
		"user_id":      w.UserID,
		"name":         w.Name,
		"template_id":  w.TemplateID,
		"category_id":  w.CategoryID,
		"started_at":   w.StartedAt,
		"duration_sec": w.DurationSec,
		"exercises":    exercises,
	}
	if w.EndedAt != nil {
		d["ended_at"] = *w.EndedAt
	}
	return d
}

// WorkoutFromDoc decodes a CompletedWorkout.
func WorkoutFromDoc(d Document) (*model.CompletedWorkout, error) {
	var (
		w   model.CompletedWorkout
		err error
	)
	if w.ID, err = getStr(d, "id"); err != nil {
		return nil, err
	}
	if w.UserID, err = getStr(d, "user_id"); err != nil {
		return nil, err
	}
	if w.Name, err = getStr(d, "name"); err != nil {
		return nil, err
	}
	if w.TemplateID, err = optStr(d, "template_id"); err != nil {
		return nil, err
	}
	if w.CategoryID, err = optStr(d, "category_id"); err != nil {
		return nil, err
	}
	if w.StartedAt, err = getTime(d, "started_at"); err != nil {
		return nil, err
	}
	if w.EndedAt, err = optTime(d, "ended_at"); err != nil {
		return nil, err
	}
	if w.DurationSec, err = getInt(d, "duration_sec"); err != nil {
		return nil, err
	}
	list, err := getList(d, "exercises")
	if err != nil {
		return nil, err
	}
	w.Exercises = make([]model.CompletedExercise, 0, len(list))
	for i, v := range list {
		ed, err := subDoc(v)
		if err != nil {
			return nil, fmt.Errorf("exercise[%d]: %w", i, err)
		}
		var ex model.CompletedExercise
		if ex.ExerciseID, err = getStr(ed, "exercise_id"); err != nil {
			return nil, fmt.Errorf("exercise[%d]: %w", i, err)
		}
		if ex.Category, err = optStr(ed, "category"); err != nil {
			return nil, fmt.Errorf("exercise[%d]: %w", i, err)
		}
		sl, err := getList(ed, "sets")
		if err != nil {
			return nil, fmt.Errorf("exercise[%d]: %w", i, err)
		}
		if ex.Sets, err = setsFromList(sl); err != nil {
			return nil, fmt.Errorf("exercise[%d]: %w", i, err)
		}
		w.Exercises = append(w.Exercises, ex)
	}
	return &w, nil
}

// TemplateDoc encodes a WorkoutTemplate.
func TemplateDoc(t *model.WorkoutTemplate) Document {
	exercises := make([]any, 0, len(t.Exercises))
	for _, ex := range t.Exercises {
		exercises = append(exercises, map[string]any{
			"exercise_id": ex.ExerciseID,
			"category":    ex.Category,
			"sets":        setsDoc(ex.Sets),
		})
	}
	return Document{
		"id":          t.ID,
		"user_id":     t.UserID,
		"name":        t.Name,
		"category_id": t.CategoryID,
		"exercises":   exercises,
	}
}

// TemplateFromDoc decodes a WorkoutTemplate.
func TemplateFromDoc(d Document) (*model.WorkoutTemplate, error) {
	var (
		t   model.WorkoutTemplate
		err error
	)
	if t.ID, err = getStr(d, "id"); err != nil {
		return nil, err
	}
	if t.UserID, err = getStr(d, "user_id"); err != nil {
		return nil, err
	}
	if t.Name, err = getStr(d, "name"); err != nil {
		return nil, err
	}
	if t.CategoryID, err = optStr(d, "category_id"); err != nil {
		return nil, err
	}
	list, err := getList(d, "exercises")
	if err != nil {
		return nil, err
	}
	t.Exercises = make([]model.TemplateExercise, 0, len(list))
	for i, v := range list {
		ed, err := subDoc(v)
		if err != nil {
			return nil, fmt.Errorf("exercise[%d]: %w", i, err)
		}
		var ex model.TemplateExercise
		if ex.ExerciseID, err = getStr(ed, "exercise_id"); err != nil {
			return nil, fmt.Errorf("exercise[%d]: %w", i, err)
		}
		if ex.Category, err = optStr(ed, "category"); err != nil {
			return nil, fmt.Errorf("exercise[%d]: %w", i, err)
		}
		sl, err := getList(ed, "sets")
		if err != nil {
			return nil, fmt.Errorf("exercise[%d]: %w", i, err)
		}
		if ex.Sets, err = setsFromList(sl); err != nil {
			return nil, fmt.Errorf("exercise[%d]: %w", i, err)
		}
		t.Exercises = append(t.Exercises, ex)
	}
	return &t, nil
}

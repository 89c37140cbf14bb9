package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/fitkeeper/internal/clock"
	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
	"github.com/and161185/fitkeeper/internal/repository"
)

// ---- fakes ----

type fakeWorkouts struct {
	byID map[string]*model.CompletedWorkout

	putErr error
	puts   int
	dirty  map[string]bool
}

var _ repository.WorkoutRepository = (*fakeWorkouts)(nil)

func newFakeWorkouts() *fakeWorkouts {
	return &fakeWorkouts{byID: map[string]*model.CompletedWorkout{}, dirty: map[string]bool{}}
}

func (f *fakeWorkouts) PutWorkout(_ context.Context, w *model.CompletedWorkout, dirty bool) error {
	if f.putErr != nil {
		return f.putErr
	}
	cpy := *w
	f.byID[w.ID] = &cpy
	f.puts++
	f.dirty[w.ID] = dirty
	return nil
}

func (f *fakeWorkouts) GetWorkout(_ context.Context, id string) (*model.CompletedWorkout, error) {
	w, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *w
	return &c, nil
}

func (f *fakeWorkouts) GetInProgress(_ context.Context, userID string) (*model.CompletedWorkout, error) {
	for _, w := range f.byID {
		if w.UserID == userID && w.EndedAt == nil {
			c := *w
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeWorkouts) ListWorkouts(_ context.Context, userID string) ([]*model.CompletedWorkout, error) {
	var out []*model.CompletedWorkout
	for _, w := range f.byID {
		if w.UserID == userID {
			c := *w
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeWorkouts) DeleteWorkout(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeWorkouts) ClearWorkoutCategory(_ context.Context, userID, categoryID string) error {
	for _, w := range f.byID {
		if w.UserID == userID && w.CategoryID == categoryID {
			w.CategoryID = ""
		}
	}
	return nil
}

type fakeStats struct {
	byUser map[string]*model.Stats
	puts   int
	dirty  bool
}

var _ repository.StatsRepository = (*fakeStats)(nil)

func newFakeStats(st *model.Stats) *fakeStats {
	return &fakeStats{byUser: map[string]*model.Stats{st.UserID: st}}
}

func (f *fakeStats) PutStats(_ context.Context, s *model.Stats, dirty bool) error {
	f.byUser[s.UserID] = s.Clone()
	f.puts++
	f.dirty = dirty
	return nil
}

func (f *fakeStats) GetStats(_ context.Context, id string) (*model.Stats, error) {
	for _, s := range f.byUser {
		if s.ID == id {
			return s.Clone(), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeStats) GetStatsByUser(_ context.Context, userID string) (*model.Stats, error) {
	s, ok := f.byUser[userID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return s.Clone(), nil
}

type fakeProgress struct {
	rows map[string]*model.AchievementProgress // by achievement id (single user)
}

var _ repository.AchievementRepository = (*fakeProgress)(nil)

func newFakeProgress() *fakeProgress {
	return &fakeProgress{rows: map[string]*model.AchievementProgress{}}
}

func (f *fakeProgress) PutProgress(_ context.Context, p *model.AchievementProgress, _ bool) error {
	c := *p
	f.rows[p.AchievementID] = &c
	return nil
}

func (f *fakeProgress) GetProgress(_ context.Context, _, achievementID string) (*model.AchievementProgress, error) {
	p, ok := f.rows[achievementID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeProgress) ListProgress(_ context.Context, _ string) ([]*model.AchievementProgress, error) {
	var out []*model.AchievementProgress
	for _, p := range f.rows {
		c := *p
		out = append(out, &c)
	}
	return out, nil
}

type fakeSync struct {
	requests  int
	fullSyncs int
	clears    int
	fullErr   error

	onFullSync func(ctx context.Context) error // simulates the pull phase
}

var _ SyncControl = (*fakeSync)(nil)

func (f *fakeSync) RequestSync() { f.requests++ }
func (f *fakeSync) ForceFullSync(ctx context.Context, _ string) error {
	f.fullSyncs++
	if f.fullErr != nil {
		return f.fullErr
	}
	if f.onFullSync != nil {
		return f.onFullSync(ctx)
	}
	return nil
}
func (f *fakeSync) ClearAllData(context.Context) error {
	f.clears++
	return nil
}

// ---- helpers ----

func baseStats() *model.Stats {
	return &model.Stats{
		ID:        "st1",
		UserID:    "u1",
		Level:     1,
		Exercises: map[string]model.ExerciseStat{},
		Types:     map[string]model.TypeStat{},
	}
}

func newTestWorkoutService(wr *fakeWorkouts, sr *fakeStats, pr *fakeProgress, sc *fakeSync, clk clock.Clock) *WorkoutServiceImpl {
	return NewWorkoutService(wr, sr, pr, sc, clk, zap.NewNop(), DefaultCompletionXP)
}

// ---- tests ----

func TestStart_SecondOpenWorkoutRejected(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)}
	svc := newTestWorkoutService(newFakeWorkouts(), newFakeStats(baseStats()), newFakeProgress(), &fakeSync{}, clk)

	if _, err := svc.Start(ctx, "u1", "Push Day", "", ""); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := svc.Start(ctx, "u1", "Leg Day", "", ""); !errors.Is(err, errs.ErrWorkoutInProgress) {
		t.Fatalf("want ErrWorkoutInProgress, got %v", err)
	}
}

func TestStartFromTemplate_SingleWriteWithExercises(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)}
	wr := newFakeWorkouts()
	svc := newTestWorkoutService(wr, newFakeStats(baseStats()), newFakeProgress(), &fakeSync{}, clk)

	tpl := &model.WorkoutTemplate{
		ID: "t1", UserID: "u1", Name: "Push Day", CategoryID: "c1",
		Exercises: []model.TemplateExercise{
			{ExerciseID: "bench_press", Category: "chest"},
			{ExerciseID: "overhead_press", Category: "shoulders"},
		},
	}
	w, err := svc.StartFromTemplate(ctx, "u1", tpl)
	if err != nil {
		t.Fatalf("start from template: %v", err)
	}

	if len(w.Exercises) != 2 || w.Exercises[0].ExerciseID != "bench_press" {
		t.Fatalf("exercises = %+v, want the template prefill", w.Exercises)
	}
	if w.TemplateID != "t1" || w.CategoryID != "c1" {
		t.Fatalf("workout = %+v, want template linkage", w)
	}
	// The session lands fully built; there is no second write a
	// concurrent AddSet could race against.
	if wr.puts != 1 {
		t.Fatalf("workout puts = %d, want 1", wr.puts)
	}
	stored, err := svc.Current(ctx, "u1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if len(stored.Exercises) != 2 {
		t.Fatalf("stored exercises = %+v, want the prefill persisted", stored.Exercises)
	}
}

func TestFinish_NoOpenWorkout(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)}
	svc := newTestWorkoutService(newFakeWorkouts(), newFakeStats(baseStats()), newFakeProgress(), &fakeSync{}, clk)

	if _, err := svc.Finish(ctx, "u1"); !errors.Is(err, errs.ErrNoWorkoutInProgress) {
		t.Fatalf("want ErrNoWorkoutInProgress, got %v", err)
	}
}

func TestFinish_FullFlow(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)}
	wr := newFakeWorkouts()
	sr := newFakeStats(baseStats())
	pr := newFakeProgress()
	sc := &fakeSync{}
	svc := newTestWorkoutService(wr, sr, pr, sc, clk)

	if _, err := svc.Start(ctx, "u1", "Morning", "", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.AddSet(ctx, "u1", "bench_press", "chest", model.Set{Weight: 80, Reps: 5}); err != nil {
		t.Fatalf("add set: %v", err)
	}

	clk.Advance(45 * time.Minute)
	res, err := svc.Finish(ctx, "u1")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	if res.Workout.EndedAt == nil {
		t.Fatal("EndedAt not stamped")
	}
	if res.Workout.DurationSec != 45*60 {
		t.Fatalf("DurationSec = %d, want %d", res.Workout.DurationSec, 45*60)
	}
	if res.Stats.TotalWorkouts != 1 {
		t.Fatalf("TotalWorkouts = %d, want 1", res.Stats.TotalWorkouts)
	}

	// completion XP + first_workout (50) + one early-bird tick (no reward yet)
	wantXP := int64(DefaultCompletionXP) + 50
	if res.XPAwarded != wantXP {
		t.Fatalf("XPAwarded = %d, want %d", res.XPAwarded, wantXP)
	}
	if len(res.Unlocked) != 1 || res.Unlocked[0].ID != "first_workout" {
		t.Fatalf("Unlocked = %+v, want first_workout", res.Unlocked)
	}

	fw := pr.rows["first_workout"]
	if fw == nil || !fw.Completed || !fw.XPGranted {
		t.Fatalf("first_workout row: %+v", fw)
	}
	eb := pr.rows["early_bird"]
	if eb == nil || eb.Current != 1 || eb.Completed {
		t.Fatalf("early_bird row: %+v", eb)
	}

	if !sr.dirty {
		t.Fatal("stats must be written dirty")
	}
	if sc.requests == 0 {
		t.Fatal("finish must request a sync")
	}
	// Finish persists stats exactly once.
	if sr.puts != 1 {
		t.Fatalf("stats puts = %d, want 1", sr.puts)
	}
}

func TestFinish_AchievementXPIdempotent(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	wr := newFakeWorkouts()
	sr := newFakeStats(baseStats())
	pr := newFakeProgress()
	svc := newTestWorkoutService(wr, sr, pr, &fakeSync{}, clk)

	// Simulate a replayed completion: the row is already completed and
	// paid, e.g. restored from the mirror after reinstall.
	done := clk.Now().Add(-time.Hour)
	_ = pr.PutProgress(ctx, &model.AchievementProgress{
		ID: "p1", UserID: "u1", AchievementID: "first_workout",
		Current: 1, Completed: true, CompletedAt: &done, XPGranted: true,
		UpdatedAt: done,
	}, true)

	if _, err := svc.Start(ctx, "u1", "W", "", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(10 * time.Minute)
	res, err := svc.Finish(ctx, "u1")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	// Only the flat completion XP; the achievement reward is not re-paid.
	if res.XPAwarded != DefaultCompletionXP {
		t.Fatalf("XPAwarded = %d, want %d", res.XPAwarded, DefaultCompletionXP)
	}
	if len(res.Unlocked) != 0 {
		t.Fatalf("Unlocked = %+v, want none", res.Unlocked)
	}
}

func TestFinish_CompletedUnpaidRowGetsPaidOnce(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	pr := newFakeProgress()
	svc := newTestWorkoutService(newFakeWorkouts(), newFakeStats(baseStats()), pr, &fakeSync{}, clk)

	// Crash between PutProgress and the stats write left a completed row
	// with XPGranted still false. Re-evaluation must pay exactly once.
	done := clk.Now().Add(-time.Hour)
	_ = pr.PutProgress(ctx, &model.AchievementProgress{
		ID: "p1", UserID: "u1", AchievementID: "first_workout",
		Current: 1, Completed: true, CompletedAt: &done, XPGranted: false,
		UpdatedAt: done,
	}, true)

	if _, err := svc.Start(ctx, "u1", "W", "", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(10 * time.Minute)
	res, err := svc.Finish(ctx, "u1")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	if res.XPAwarded != DefaultCompletionXP+50 {
		t.Fatalf("XPAwarded = %d, want %d", res.XPAwarded, DefaultCompletionXP+50)
	}
	if !pr.rows["first_workout"].XPGranted {
		t.Fatal("XPGranted must be set after payment")
	}
	// Not a new unlock, just a back-payment.
	if len(res.Unlocked) != 0 {
		t.Fatalf("Unlocked = %+v, want none", res.Unlocked)
	}
}

func TestFinish_LevelUp(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := baseStats()
	st.XP = 90 // 10 short of level 2
	svc := newTestWorkoutService(newFakeWorkouts(), newFakeStats(st), newFakeProgress(), &fakeSync{}, clk)

	if _, err := svc.Start(ctx, "u1", "W", "", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(10 * time.Minute)
	res, err := svc.Finish(ctx, "u1")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !res.LeveledUp || res.Stats.Level != 2 {
		t.Fatalf("leveledUp=%v level=%d, want true/2", res.LeveledUp, res.Stats.Level)
	}
}

func TestCancel_DiscardsWithoutStats(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	wr := newFakeWorkouts()
	sr := newFakeStats(baseStats())
	svc := newTestWorkoutService(wr, sr, newFakeProgress(), &fakeSync{}, clk)

	if _, err := svc.Start(ctx, "u1", "W", "", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Cancel(ctx, "u1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Current(ctx, "u1"); !errors.Is(err, errs.ErrNoWorkoutInProgress) {
		t.Fatalf("want no workout after cancel, got %v", err)
	}
	if sr.puts != 0 {
		t.Fatalf("cancel must not touch stats, puts = %d", sr.puts)
	}
}

func TestEditExercises_RejectsOpenWorkout(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestWorkoutService(newFakeWorkouts(), newFakeStats(baseStats()), newFakeProgress(), &fakeSync{}, clk)

	w, err := svc.Start(ctx, "u1", "W", "", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.EditExercises(ctx, w.ID, nil); !errors.Is(err, errs.ErrWorkoutInProgress) {
		t.Fatalf("want ErrWorkoutInProgress, got %v", err)
	}
}

func TestEditExercises_DoesNotRecomputeStats(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	sr := newFakeStats(baseStats())
	svc := newTestWorkoutService(newFakeWorkouts(), sr, newFakeProgress(), &fakeSync{}, clk)

	if _, err := svc.Start(ctx, "u1", "W", "", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(10 * time.Minute)
	res, err := svc.Finish(ctx, "u1")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	putsAfterFinish := sr.puts

	if _, err := svc.EditExercises(ctx, res.Workout.ID, []model.CompletedExercise{
		{ExerciseID: "squat", Sets: []model.Set{{Weight: 200, Reps: 10}}},
	}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if sr.puts != putsAfterFinish {
		t.Fatal("historical edit must not rewrite stats")
	}
}

func TestAddSet_Validation(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestWorkoutService(newFakeWorkouts(), newFakeStats(baseStats()), newFakeProgress(), &fakeSync{}, clk)

	if _, err := svc.Start(ctx, "u1", "W", "", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.AddSet(ctx, "u1", "bench_press", "chest", model.Set{Weight: -1, Reps: 5}); !errors.Is(err, errs.ErrInvalidRecord) {
		t.Fatalf("negative weight: want ErrInvalidRecord, got %v", err)
	}
}

func TestAddXP_Monotonic(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestWorkoutService(newFakeWorkouts(), newFakeStats(baseStats()), newFakeProgress(), &fakeSync{}, clk)

	st, err := svc.AddXP(ctx, "u1", 150)
	if err != nil {
		t.Fatalf("add xp: %v", err)
	}
	if st.XP != 150 || st.Level != 2 {
		t.Fatalf("xp=%d level=%d, want 150/2", st.XP, st.Level)
	}
	if _, err := svc.AddXP(ctx, "u1", -10); !errors.Is(err, errs.ErrInvalidRecord) {
		t.Fatalf("negative amount: want ErrInvalidRecord, got %v", err)
	}
}

func TestFinish_ConcurrentSameUserSerialized(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	wr := newFakeWorkouts()
	sr := newFakeStats(baseStats())
	svc := newTestWorkoutService(wr, sr, newFakeProgress(), &fakeSync{}, clk)

	// Two goroutines race to start; exactly one open workout may exist.
	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(n int) {
			_, err := svc.Start(ctx, "u1", fmt.Sprintf("W%d", n), "", "")
			errCh <- err
		}(i)
	}
	var failures int
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			if !errors.Is(err, errs.ErrWorkoutInProgress) {
				t.Fatalf("unexpected error: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("want exactly one rejected start, got %d", failures)
	}
}

package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/fitkeeper/internal/clock"
	"github.com/and161185/fitkeeper/internal/convert"
	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/mirror"
	"github.com/and161185/fitkeeper/internal/model"
	"github.com/and161185/fitkeeper/internal/repository"
)

// ---- fakes ----

type fakeUsers struct {
	users    map[string]*model.User
	auths    map[string]*model.Auth
	profiles map[string]*model.Profile

	authDirty bool
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:    map[string]*model.User{},
		auths:    map[string]*model.Auth{},
		profiles: map[string]*model.Profile{},
	}
}

func (f *fakeUsers) CreateUser(_ context.Context, u *model.User, _ bool) error {
	if _, ok := f.users[u.ID]; ok {
		return errs.ErrConflict
	}
	c := *u
	f.users[u.ID] = &c
	return nil
}

func (f *fakeUsers) GetUser(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetAnyUserID(_ context.Context) (string, error) {
	for id := range f.users {
		return id, nil
	}
	return "", errs.ErrNotFound
}

func (f *fakeUsers) PutAuth(_ context.Context, a *model.Auth, dirty bool) error {
	c := *a
	f.auths[a.ID] = &c
	f.authDirty = dirty
	return nil
}

func (f *fakeUsers) GetAuth(_ context.Context, id string) (*model.Auth, error) {
	a, ok := f.auths[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (f *fakeUsers) PutProfile(_ context.Context, p *model.Profile, _ bool) error {
	c := *p
	f.profiles[p.ID] = &c
	return nil
}

func (f *fakeUsers) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}

type fakeCategories struct {
	byID map[string]*model.WorkoutCategory
}

var _ repository.CategoryRepository = (*fakeCategories)(nil)

func newFakeCategories() *fakeCategories {
	return &fakeCategories{byID: map[string]*model.WorkoutCategory{}}
}

func (f *fakeCategories) PutCategory(_ context.Context, c *model.WorkoutCategory, _ bool) error {
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeCategories) GetCategory(_ context.Context, id string) (*model.WorkoutCategory, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCategories) ListCategories(_ context.Context, userID string) ([]*model.WorkoutCategory, error) {
	var out []*model.WorkoutCategory
	for _, c := range f.byID {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeCategories) DeleteCategory(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// fakeMirror serves scripted documents; the zero value is an empty remote.
type fakeMirror struct {
	docs    map[model.Kind]map[string]convert.Document
	byOwner map[model.Kind][]convert.Document
}

var _ mirror.Mirror = (*fakeMirror)(nil)

func (m fakeMirror) Fetch(_ context.Context, kind model.Kind, key string) (convert.Document, error) {
	if doc, ok := m.docs[kind][key]; ok {
		return doc, nil
	}
	return nil, errs.ErrNotFound
}
func (fakeMirror) Push(context.Context, model.Kind, string, convert.Document) error { return nil }
func (fakeMirror) Delete(context.Context, model.Kind, string) error                 { return nil }
func (m fakeMirror) FetchAllByOwner(_ context.Context, kind model.Kind, _ string) ([]convert.Document, error) {
	return m.byOwner[kind], nil
}

// fakeSyncStore routes hydrated documents into the entity fakes.
type fakeSyncStore struct {
	users *fakeUsers
	stats *fakeStats
}

var _ repository.SyncRepository = (*fakeSyncStore)(nil)

func (fakeSyncStore) ListDirty(context.Context, model.Kind) ([]repository.DirtyRecord, error) {
	return nil, nil
}
func (fakeSyncStore) ClearDirty(context.Context, model.Kind, string, int64) error { return nil }
func (f fakeSyncStore) UpsertFromDoc(ctx context.Context, kind model.Kind, doc convert.Document, dirty bool) error {
	if dirty {
		panic("hydration must upsert clean")
	}
	entity, err := convert.Decode(kind, doc)
	if err != nil {
		return err
	}
	switch v := entity.(type) {
	case *model.User:
		if f.users != nil {
			if err := f.users.CreateUser(ctx, v, false); err != nil && !errors.Is(err, errs.ErrConflict) {
				return err
			}
		}
	case *model.Auth:
		if f.users != nil {
			return f.users.PutAuth(ctx, v, false)
		}
	case *model.Profile:
		if f.users != nil {
			return f.users.PutProfile(ctx, v, false)
		}
	case *model.Stats:
		if f.stats != nil {
			return f.stats.PutStats(ctx, v, false)
		}
	}
	return nil
}
func (fakeSyncStore) CountDirty(context.Context) (int64, error) { return 0, nil }
func (fakeSyncStore) ClearAll(context.Context) error            { return nil }

// ---- helpers ----

// makeToken builds an unsigned JWS-shaped token; the service reads
// claims without verifying the signature.
func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	enc := func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return base64.RawURLEncoding.EncodeToString(b)
	}
	header := enc(map[string]any{"alg": "none", "typ": "JWT"})
	return header + "." + enc(claims) + "."
}

func newTestUserService(fu *fakeUsers, fs *fakeStats, fc *fakeCategories, sc *fakeSync, clk clock.Clock) *UserServiceImpl {
	hyd := NewHydrator(fakeMirror{}, fakeSyncStore{})
	return NewUserService(fu, fs, fc, hyd, sc, clk, zap.NewNop())
}

func encodeDoc(t *testing.T, kind model.Kind, entity any) convert.Document {
	t.Helper()
	doc, err := convert.Encode(kind, entity)
	if err != nil {
		t.Fatalf("encode %s: %v", kind, err)
	}
	return doc
}

// remoteAggregate scripts a mirror that already holds the aggregate,
// as it would after the app is reinstalled on a fresh device.
func remoteAggregate(t *testing.T, userID string) fakeMirror {
	t.Helper()
	created := time.Date(2025, time.November, 5, 8, 0, 0, 0, time.UTC)
	user := &model.User{
		ID: userID, AuthID: "a-1", ProfileID: "pr-1", StatsID: "st-1", CreatedAt: created,
	}
	auth := &model.Auth{
		ID: "a-1", UserID: userID, Email: "a@b.c",
		Provider: model.ProviderEmail, CreatedAt: created, LastLoginAt: created,
	}
	profile := &model.Profile{ID: "pr-1", UserID: userID, DisplayName: "Kim"}
	stats := &model.Stats{
		ID: "st-1", UserID: userID, XP: 300, Level: 3,
		Exercises: map[string]model.ExerciseStat{},
		Types:     map[string]model.TypeStat{},
	}
	return fakeMirror{
		docs: map[model.Kind]map[string]convert.Document{
			model.KindUser:    {userID: encodeDoc(t, model.KindUser, user)},
			model.KindAuth:    {"a-1": encodeDoc(t, model.KindAuth, auth)},
			model.KindProfile: {"pr-1": encodeDoc(t, model.KindProfile, profile)},
		},
		byOwner: map[model.Kind][]convert.Document{
			model.KindStats: {encodeDoc(t, model.KindStats, stats)},
		},
	}
}

// ---- tests ----

func TestSignIn_CreatesAggregate(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	fu := newFakeUsers()
	fs := &fakeStats{byUser: map[string]*model.Stats{}}
	fc := newFakeCategories()
	sc := &fakeSync{}
	svc := newTestUserService(fu, fs, fc, sc, clk)

	token := makeToken(t, map[string]any{
		"sub":   "google-123",
		"email": "kim@example.com",
		"name":  "Kim",
	})
	agg, err := svc.SignIn(ctx, token, model.ProviderGoogle)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	if agg.User.ID != "google-123" {
		t.Fatalf("user id = %q", agg.User.ID)
	}
	if agg.Auth.Email != "kim@example.com" || agg.Auth.Provider != model.ProviderGoogle {
		t.Fatalf("auth: %+v", agg.Auth)
	}
	if agg.Profile.DisplayName != "Kim" {
		t.Fatalf("profile: %+v", agg.Profile)
	}
	if agg.Stats.Level != 1 || agg.Stats.XP != 0 {
		t.Fatalf("stats: %+v", agg.Stats)
	}

	cats, _ := fc.ListCategories(ctx, "google-123")
	if len(cats) != len(defaultCategories) {
		t.Fatalf("default categories = %d, want %d", len(cats), len(defaultCategories))
	}
	if sc.fullSyncs != 1 {
		t.Fatalf("full syncs = %d, want 1", sc.fullSyncs)
	}
	if sc.clears != 0 {
		t.Fatalf("clears = %d, want 0 on first sign-in", sc.clears)
	}
	if !fu.authDirty {
		t.Fatal("last-login bump must be written dirty")
	}
}

func TestSignIn_SameUserKeepsCache(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	fu := newFakeUsers()
	fs := &fakeStats{byUser: map[string]*model.Stats{}}
	sc := &fakeSync{}
	svc := newTestUserService(fu, fs, newFakeCategories(), sc, clk)

	token := makeToken(t, map[string]any{"sub": "u-1", "email": "a@b.c"})
	if _, err := svc.SignIn(ctx, token, model.ProviderEmail); err != nil {
		t.Fatalf("first sign in: %v", err)
	}
	if _, err := svc.SignIn(ctx, token, model.ProviderEmail); err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	if sc.clears != 0 {
		t.Fatalf("clears = %d, want 0 for the same user", sc.clears)
	}
}

func TestSignIn_DifferentUserWipesCache(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	fu := newFakeUsers()
	fs := &fakeStats{byUser: map[string]*model.Stats{}}
	sc := &fakeSync{}
	svc := newTestUserService(fu, fs, newFakeCategories(), sc, clk)

	first := makeToken(t, map[string]any{"sub": "u-1", "email": "a@b.c"})
	if _, err := svc.SignIn(ctx, first, model.ProviderEmail); err != nil {
		t.Fatalf("first sign in: %v", err)
	}

	second := makeToken(t, map[string]any{"sub": "u-2", "email": "x@y.z"})
	if _, err := svc.SignIn(ctx, second, model.ProviderEmail); err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	if sc.clears != 1 {
		t.Fatalf("clears = %d, want 1 on account switch", sc.clears)
	}
}

func TestSignIn_TransientFullSyncDegradesToLocal(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	fu := newFakeUsers()
	fs := &fakeStats{byUser: map[string]*model.Stats{}}
	sc := &fakeSync{fullErr: errs.ErrTransient}
	svc := newTestUserService(fu, fs, newFakeCategories(), sc, clk)

	token := makeToken(t, map[string]any{"sub": "u-1", "email": "a@b.c"})
	if _, err := svc.SignIn(ctx, token, model.ProviderEmail); err != nil {
		t.Fatalf("sign in should tolerate transient sync failure: %v", err)
	}
}

func TestSignIn_BadToken(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := newTestUserService(newFakeUsers(), &fakeStats{byUser: map[string]*model.Stats{}}, newFakeCategories(), &fakeSync{}, clk)

	if _, err := svc.SignIn(ctx, "not-a-jwt", model.ProviderEmail); err == nil {
		t.Fatal("want error for malformed token")
	}
	// Subject is mandatory.
	noSub := makeToken(t, map[string]any{"email": "a@b.c"})
	if _, err := svc.SignIn(ctx, noSub, model.ProviderEmail); err == nil {
		t.Fatal("want error for token without subject")
	}
}

func TestSignIn_ExistingCategoriesNotReseeded(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	fu := newFakeUsers()
	fs := &fakeStats{byUser: map[string]*model.Stats{}}
	fc := newFakeCategories()
	svc := newTestUserService(fu, fs, fc, &fakeSync{}, clk)

	token := makeToken(t, map[string]any{"sub": "u-1", "email": "a@b.c"})
	if _, err := svc.SignIn(ctx, token, model.ProviderEmail); err != nil {
		t.Fatalf("first sign in: %v", err)
	}
	if _, err := svc.SignIn(ctx, token, model.ProviderEmail); err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	cats, _ := fc.ListCategories(ctx, "u-1")
	if len(cats) != len(defaultCategories) {
		t.Fatalf("categories = %d, want %d (no reseed)", len(cats), len(defaultCategories))
	}
}

func TestSignIn_ReinstallDoesNotReseedDefaults(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	fu := newFakeUsers()
	fs := &fakeStats{byUser: map[string]*model.Stats{}}
	fc := newFakeCategories()

	// The snapshot pull hydrates the user's own categories clean.
	sc := &fakeSync{onFullSync: func(ctx context.Context) error {
		_ = fc.PutCategory(ctx, &model.WorkoutCategory{ID: "c1", UserID: "u-1", Name: "Push"}, false)
		_ = fc.PutCategory(ctx, &model.WorkoutCategory{ID: "c2", UserID: "u-1", Name: "Pull"}, false)
		return nil
	}}
	hyd := NewHydrator(remoteAggregate(t, "u-1"), fakeSyncStore{users: fu, stats: fs})
	svc := NewUserService(fu, fs, fc, hyd, sc, clk, zap.NewNop())

	token := makeToken(t, map[string]any{"sub": "u-1", "email": "a@b.c"})
	agg, err := svc.SignIn(ctx, token, model.ProviderEmail)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if agg.Stats.XP != 300 || agg.Stats.Level != 3 {
		t.Fatalf("stats = %+v, want the hydrated aggregate, not a fresh one", agg.Stats)
	}

	cats, _ := fc.ListCategories(ctx, "u-1")
	if len(cats) != 2 {
		t.Fatalf("categories = %d, want the user's own 2 (no default seeding)", len(cats))
	}
}

func TestSignIn_ReinstallOfflineSkipsSeeding(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	fu := newFakeUsers()
	fs := &fakeStats{byUser: map[string]*model.Stats{}}
	fc := newFakeCategories()

	// The aggregate hydrates, then the snapshot pull drops out. The
	// empty category cache must wait for sync instead of minting
	// defaults that would duplicate the user's remote ones.
	sc := &fakeSync{fullErr: errs.ErrTransient}
	hyd := NewHydrator(remoteAggregate(t, "u-1"), fakeSyncStore{users: fu, stats: fs})
	svc := NewUserService(fu, fs, fc, hyd, sc, clk, zap.NewNop())

	token := makeToken(t, map[string]any{"sub": "u-1", "email": "a@b.c"})
	if _, err := svc.SignIn(ctx, token, model.ProviderEmail); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	cats, _ := fc.ListCategories(ctx, "u-1")
	if len(cats) != 0 {
		t.Fatalf("categories = %d, want none until the pull lands", len(cats))
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	fu := newFakeUsers()
	fs := &fakeStats{byUser: map[string]*model.Stats{}}
	sc := &fakeSync{}
	svc := newTestUserService(fu, fs, newFakeCategories(), sc, clk)

	token := makeToken(t, map[string]any{"sub": "u-1", "email": "a@b.c", "name": "Old"})
	if _, err := svc.SignIn(ctx, token, model.ProviderEmail); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	requestsBefore := sc.requests

	p, err := svc.UpdateProfile(ctx, "u-1", "New Name", "https://p/x.png", "back")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if p.DisplayName != "New Name" || p.FavoriteBodyPart != "back" {
		t.Fatalf("profile: %+v", p)
	}
	if sc.requests <= requestsBefore {
		t.Fatal("profile update must request a sync")
	}
}

func TestAggregate_MissingUser(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := newTestUserService(newFakeUsers(), &fakeStats{byUser: map[string]*model.Stats{}}, newFakeCategories(), &fakeSync{}, clk)

	if _, err := svc.Aggregate(ctx, "ghost"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

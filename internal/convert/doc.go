// Package convert maps domain entities to and from mirror documents.
//
// Decoding is strict: a missing or mistyped required field fails with a
// typed error instead of silently defaulting.
package convert

import (
	"fmt"
	"time"

	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
)

// Document is the wire shape of one mirrored entity.
type Document map[string]any

// Encode converts an entity of the given kind into a document.
// v must be the pointer type matching the kind.
func Encode(kind model.Kind, v any) (Document, error) {
	switch kind {
	case model.KindUser:
		u, ok := v.(*model.User)
		if !ok {
			return nil, typeMismatch(kind, v)
		}
		return UserDoc(u), nil
	case model.KindAuth:
		a, ok := v.(*model.Auth)
		if !ok {
			return nil, typeMismatch(kind, v)
		}
		return AuthDoc(a), nil
	case model.KindProfile:
		p, ok := v.(*model.Profile)
		if !ok {
			return nil, typeMismatch(kind, v)
		}
		return ProfileDoc(p), nil
	case model.KindStats:
		s, ok := v.(*model.Stats)
		if !ok {
			return nil, typeMismatch(kind, v)
		}
		return StatsDoc(s), nil
	case model.KindCategory:
		c, ok := v.(*model.WorkoutCategory)
		if !ok {
			return nil, typeMismatch(kind, v)
		}
		return CategoryDoc(c), nil
	case model.KindTemplate:
		t, ok := v.(*model.WorkoutTemplate)
		if !ok {
			return nil, typeMismatch(kind, v)
		}
		return TemplateDoc(t), nil
	case model.KindWorkout:
		w, ok := v.(*model.CompletedWorkout)
		if !ok {
			return nil, typeMismatch(kind, v)
		}
		return WorkoutDoc(w), nil
	case model.KindAchievementProgress:
		p, ok := v.(*model.AchievementProgress)
		if !ok {
			return nil, typeMismatch(kind, v)
		}
		return ProgressDoc(p), nil
	}
	return nil, fmt.Errorf("encode: unknown kind %q: %w", kind, errs.ErrInvalidRecord)
}

// Decode converts a document of the given kind back into its entity.
// The result is the pointer type matching the kind.
func Decode(kind model.Kind, d Document) (any, error) {
	switch kind {
	case model.KindUser:
		return UserFromDoc(d)
	case model.KindAuth:
		return AuthFromDoc(d)
	case model.KindProfile:
		return ProfileFromDoc(d)
	case model.KindStats:
		return StatsFromDoc(d)
	case model.KindCategory:
		return CategoryFromDoc(d)
	case model.KindTemplate:
		return TemplateFromDoc(d)
	case model.KindWorkout:
		return WorkoutFromDoc(d)
	case model.KindAchievementProgress:
		return ProgressFromDoc(d)
	}
	return nil, fmt.Errorf("decode: unknown kind %q: %w", kind, errs.ErrInvalidRecord)
}

func typeMismatch(kind model.Kind, v any) error {
	return fmt.Errorf("encode %s: unexpected type %T: %w", kind, v, errs.ErrInvalidRecord)
}

// ---- field accessors (strict) ----

func badField(key, want string, got any) error {
	return fmt.Errorf("field %q: want %s, got %T: %w", key, want, got, errs.ErrInvalidRecord)
}

func getStr(d Document, key string) (string, error) {
	v, ok := d[key]
	if !ok {
		return "", fmt.Errorf("field %q: missing: %w", key, errs.ErrInvalidRecord)
	}
	s, ok := v.(string)
	if !ok {
		return "", badField(key, "string", v)
	}
	return s, nil
}

// optStr tolerates an absent key but not a mistyped one.
func optStr(d Document, key string) (string, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", badField(key, "string", v)
	}
	return s, nil
}

// getInt accepts int64 or float64: document stores round-trip numbers
// through either depending on the transport.
func getInt(d Document, key string) (int64, error) {
	v, ok := d[key]
	if !ok {
		return 0, fmt.Errorf("field %q: missing: %w", key, errs.ErrInvalidRecord)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	}
	return 0, badField(key, "integer", v)
}

func getFloat(d Document, key string) (float64, error) {
	v, ok := d[key]
	if !ok {
		return 0, fmt.Errorf("field %q: missing: %w", key, errs.ErrInvalidRecord)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, badField(key, "number", v)
}

func getBool(d Document, key string) (bool, error) {
	v, ok := d[key]
	if !ok {
		return false, fmt.Errorf("field %q: missing: %w", key, errs.ErrInvalidRecord)
	}
	b, ok := v.(bool)
	if !ok {
		return false, badField(key, "bool", v)
	}
	return b, nil
}

func getTime(d Document, key string) (time.Time, error) {
	v, ok := d[key]
	if !ok {
		return time.Time{}, fmt.Errorf("field %q: missing: %w", key, errs.ErrInvalidRecord)
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, badField(key, "timestamp", v)
	}
	return t, nil
}

// optTime returns nil for an absent or explicitly-null key.
func optTime(d Document, key string) (*time.Time, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return nil, nil
	}
	t, ok := v.(time.Time)
	if !ok {
		return nil, badField(key, "timestamp", v)
	}
	return &t, nil
}

func getList(d Document, key string) ([]any, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return nil, nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil, badField(key, "list", v)
	}
	return l, nil
}

func getMap(d Document, key string) (map[string]any, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case Document:
		return m, nil
	}
	return nil, badField(key, "map", v)
}

func subDoc(v any) (Document, error) {
	switch m := v.(type) {
	case map[string]any:
		return Document(m), nil
	case Document:
		return m, nil
	}
	return nil, fmt.Errorf("nested value: want map, got %T: %w", v, errs.ErrInvalidRecord)
}

// ---- simple kinds ----

// UserDoc encodes a User.
func UserDoc(u *model.User) Document {
	return Document{
		"id":         u.ID,
		"auth_id":    u.AuthID,
		"profile_id": u.ProfileID,
		"stats_id":   u.StatsID,
		"created_at": u.CreatedAt,
	}
}

// UserFromDoc decodes a User, failing on missing required fields.
func UserFromDoc(d Document) (*model.User, error) {
	var (
		u   model.User
		err error
	)
	if u.ID, err = getStr(d, "id"); err != nil {
		return nil, err
	}
	if u.AuthID, err = getStr(d, "auth_id"); err != nil {
		return nil, err
	}
	if u.ProfileID, err = getStr(d, "profile_id"); err != nil {
		return nil, err
	}
	if u.StatsID, err = getStr(d, "stats_id"); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = getTime(d, "created_at"); err != nil {
		return nil, err
	}
	return &u, nil
}

// AuthDoc encodes an Auth.
func AuthDoc(a *model.Auth) Document {
	return Document{
		"id":            a.ID,
		"user_id":       a.UserID,
		"email":         a.Email,
		"provider":      string(a.Provider),
		"created_at":    a.CreatedAt,
		"last_login_at": a.LastLoginAt,
		"language":      a.Language,
	}
}

// AuthFromDoc decodes an Auth.
func AuthFromDoc(d Document) (*model.Auth, error) {
	var (
		a   model.Auth
		err error
	)
	if a.ID, err = getStr(d, "id"); err != nil {
		return nil, err
	}
	if a.UserID, err = getStr(d, "user_id"); err != nil {
		return nil, err
	}
	if a.Email, err = getStr(d, "email"); err != nil {
		return nil, err
	}
	p, err := getStr(d, "provider")
	if err != nil {
		return nil, err
	}
	switch model.Provider(p) {
	case model.ProviderEmail, model.ProviderGoogle, model.ProviderFacebook:
		a.Provider = model.Provider(p)
	default:
		return nil, fmt.Errorf("field \"provider\": unknown value %q: %w", p, errs.ErrInvalidRecord)
	}
	if a.CreatedAt, err = getTime(d, "created_at"); err != nil {
		return nil, err
	}
	if a.LastLoginAt, err = getTime(d, "last_login_at"); err != nil {
		return nil, err
	}
	if a.Language, err = optStr(d, "language"); err != nil {
		return nil, err
	}
	return &a, nil
}

// ProfileDoc encodes a Profile.
func ProfileDoc(p *model.Profile) Document {
	return Document{
		"id":                 p.ID,
		"user_id":            p.UserID,
		"display_name":       p.DisplayName,
		"photo_url":          p.PhotoURL,
		"favorite_body_part": p.FavoriteBodyPart,
	}
}

// ProfileFromDoc decodes a Profile.
func ProfileFromDoc(d Document) (*model.Profile, error) {
	var (
		p   model.Profile
		err error
	)
	if p.ID, err = getStr(d, "id"); err != nil {
		return nil, err
	}
	if p.UserID, err = getStr(d, "user_id"); err != nil {
		return nil, err
	}
	if p.DisplayName, err = getStr(d, "display_name"); err != nil {
		return nil, err
	}
	if p.PhotoURL, err = optStr(d, "photo_url"); err != nil {
		return nil, err
	}
	if p.FavoriteBodyPart, err = optStr(d, "favorite_body_part"); err != nil {
		return nil, err
	}
	return &p, nil
}

// CategoryDoc encodes a WorkoutCategory.
func CategoryDoc(c *model.WorkoutCategory) Document {
	return Document{
		"id":      c.ID,
		"user_id": c.UserID,
		"name":    c.Name,
		"color":   c.Color,
	}
}

// CategoryFromDoc decodes a WorkoutCategory.
func CategoryFromDoc(d Document) (*model.WorkoutCategory, error) {
	var (
		c   model.WorkoutCategory
		err error
	)
	if c.ID, err = getStr(d, "id"); err != nil {
		return nil, err
	}
	if c.UserID, err = getStr(d, "user_id"); err != nil {
		return nil, err
	}
	if c.Name, err = getStr(d, "name"); err != nil {
		return nil, err
	}
	if c.Color, err = optStr(d, "color"); err != nil {
		return nil, err
	}
	return &c, nil
}

// ProgressDoc encodes an AchievementProgress.
func ProgressDoc(p *model.AchievementProgress) Document {
	d := Document{
		"id":             p.ID,
		"user_id":        p.UserID,
		"achievement_id": p.AchievementID,
		"current":        p.Current,
		"completed":      p.Completed,
		"xp_granted":     p.XPGranted,
		"updated_at":     p.UpdatedAt,
	}
	if p.CompletedAt != nil {
		d["completed_at"] = *p.CompletedAt
	}
	return d
}

// ProgressFromDoc decodes an AchievementProgress.
func ProgressFromDoc(d Document) (*model.AchievementProgress, error) {
	var (
		p   model.AchievementProgress
		err error
	)
	if p.ID, err = getStr(d, "id"); err != nil {
		return nil, err
	}
	if p.UserID, err = getStr(d, "user_id"); err != nil {
		return nil, err
	}
	if p.AchievementID, err = getStr(d, "achievement_id"); err != nil {
		return nil, err
	}
	if p.Current, err = getInt(d, "current"); err != nil {
		return nil, err
	}
	if p.Completed, err = getBool(d, "completed"); err != nil {
		return nil, err
	}
	if p.XPGranted, err = getBool(d, "xp_granted"); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = getTime(d, "updated_at"); err != nil {
		return nil, err
	}
	if p.CompletedAt, err = optTime(d, "completed_at"); err != nil {
		return nil, err
	}
	if p.Completed != (p.CompletedAt != nil) {
		return nil, fmt.Errorf("completed flag and completed_at disagree: %w", errs.ErrInvalidRecord)
	}
	return &p, nil
}

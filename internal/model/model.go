// Package model defines domain entities used by services and repositories.
package model

import "time"

// Kind identifies an entity kind for generic store/mirror access.
type Kind string

// Entity kinds held in the local store and mirrored remotely.
const (
	KindUser                Kind = "user"
	KindAuth                Kind = "auth"
	KindProfile             Kind = "profile"
	KindStats               Kind = "stats"
	KindAchievementProgress Kind = "achievement_progress"
	KindCategory            Kind = "category"
	KindTemplate            Kind = "template"
	KindWorkout             Kind = "workout"
)

// SyncKinds lists every mirrored kind in push order: identity first,
// then the records that reference it.
var SyncKinds = []Kind{
	KindUser, KindAuth, KindProfile, KindStats,
	KindCategory, KindTemplate, KindWorkout, KindAchievementProgress,
}

// Provider enumerates supported identity providers.
type Provider string

const (
	ProviderEmail    Provider = "email"
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// User ties an identity to its auth, profile and stats records.
// The reference set is immutable after creation.
type User struct {
	ID        string
	AuthID    string
	ProfileID string
	StatsID   string
	CreatedAt time.Time
}

// Auth holds sign-in metadata. Mutated only to bump LastLoginAt.
type Auth struct {
	ID          string
	UserID      string
	Email       string
	Provider    Provider
	CreatedAt   time.Time
	LastLoginAt time.Time
	Language    string
}

// Profile holds user-editable presentation data.
type Profile struct {
	ID               string
	UserID           string
	DisplayName      string
	PhotoURL         string
	FavoriteBodyPart string
}

// WorkoutCategory is a user-owned label for workouts and templates.
type WorkoutCategory struct {
	ID     string
	UserID string
	Name   string
	Color  string
}

// TemplateExercise is one exercise slot in a template with seed sets.
type TemplateExercise struct {
	ExerciseID string
	Category   string
	Sets       []Set
}

// WorkoutTemplate is a reusable workout blueprint. Deleting a template
// does not cascade to workouts started from it.
type WorkoutTemplate struct {
	ID         string
	UserID     string
	Name       string
	CategoryID string // empty = uncategorized
	Exercises  []TemplateExercise
}

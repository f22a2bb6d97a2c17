package domain

import (
	"context"
	"time"
)

// ─── Store Interfaces ───────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the application layer depends on them.

// ProgressStore persists the single AccountProgress record.
type ProgressStore interface {
	GetProgress(ctx context.Context) (AccountProgress, error)

	// ApplyAward spends claim and writes the update computed from the
	// current record in one transaction, returning the record as stored.
	// A spent claim fails with ErrSessionFinalized or ErrBookAlreadyCompleted
	// and nothing is written.
	ApplyAward(ctx context.Context, claim AwardClaim, compute func(AccountProgress) AwardUpdate) (AccountProgress, error)

	// RepairLevel overwrites a stale stored level.
	RepairLevel(ctx context.Context, level int) error
}

// GardenStore persists plants and reads the species catalog.
type GardenStore interface {
	ListSpecies(ctx context.Context) ([]PlantSpecies, error)
	GetSpecies(ctx context.Context, id string) (PlantSpecies, error)
	ListOwnedPlants(ctx context.Context) ([]OwnedPlant, error)
	GetOwnedPlant(ctx context.Context, id string) (OwnedPlant, error)

	// UpdatePlantGrowth writes reading-day growth: days, last reading day and level.
	UpdatePlantGrowth(ctx context.Context, p Plant) error

	// UpdatePlantStatus writes p.Status unless the plant was watered after p
	// was read.
	UpdatePlantStatus(ctx context.Context, p Plant) error

	// WaterPlant resets the watering clock and marks the plant healthy.
	WaterPlant(ctx context.Context, id string, at time.Time) error

	DeletePlant(ctx context.Context, id string) error
	SetActivePlant(ctx context.Context, id string) error

	// PurchasePlant deducts cost coins and inserts the plant atomically.
	PurchasePlant(ctx context.Context, p Plant, cost int64) (AccountProgress, error)
}

// LibraryStore persists books, genres and reading sessions.
type LibraryStore interface {
	InsertBook(ctx context.Context, b Book) error
	GetBook(ctx context.Context, id string) (Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	CompleteBook(ctx context.Context, id string, at time.Time) error

	InsertGenre(ctx context.Context, g Genre) error
	ListGenres(ctx context.Context) ([]Genre, error)
	ListBookGenres(ctx context.Context) ([]BookGenre, error)

	InsertSession(ctx context.Context, s ReadingSession) error
	GetSession(ctx context.Context, id string) (ReadingSession, error)
	ListSessions(ctx context.Context) ([]ReadingSession, error)
	FinalizeSession(ctx context.Context, s ReadingSession) error
}

// GoalStore persists reading goals and their exclusion/genre links.
type GoalStore interface {
	InsertGoal(ctx context.Context, g ReadingGoal) error
	GetGoal(ctx context.Context, id string) (ReadingGoal, error)
	ListGoals(ctx context.Context) ([]ReadingGoal, error)
	DeleteGoal(ctx context.Context, id string) error

	// MarkGoalsCompleted persists the completion latch for a batch of goals.
	MarkGoalsCompleted(ctx context.Context, goals []ReadingGoal) error

	ListGoalExclusions(ctx context.Context) ([]GoalExclusion, error)
	AddGoalExclusion(ctx context.Context, e GoalExclusion) error
	RemoveGoalExclusion(ctx context.Context, e GoalExclusion) error

	ListGoalGenreFilters(ctx context.Context) ([]GoalGenreFilter, error)
	AddGoalGenreFilter(ctx context.Context, f GoalGenreFilter) error
	RemoveGoalGenreFilter(ctx context.Context, f GoalGenreFilter) error
}

// Clock abstracts time to keep services deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

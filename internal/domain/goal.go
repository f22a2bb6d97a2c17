package domain

import (
	"fmt"
	"time"
)

// GoalType selects what a reading goal counts.
type GoalType string

const (
	GoalBooks   GoalType = "books"
	GoalPages   GoalType = "pages"
	GoalMinutes GoalType = "minutes"
)

// ParseGoalType validates a goal type string.
func ParseGoalType(s string) (GoalType, error) {
	switch gt := GoalType(s); gt {
	case GoalBooks, GoalPages, GoalMinutes:
		return gt, nil
	}
	return "", fmt.Errorf("%w: unknown goal type %q", ErrInvalidGoal, s)
}

// ReadingGoal is a target over an inclusive date window.
// Current is recomputed on every read; IsCompleted is a one-way latch.
type ReadingGoal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Type        GoalType   `json:"type"`
	Target      int        `json:"target"`
	Current     int        `json:"current"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Validate checks the goal's invariants before it is stored.
func (g ReadingGoal) Validate() error {
	if _, err := ParseGoalType(string(g.Type)); err != nil {
		return err
	}
	if g.Target <= 0 {
		return fmt.Errorf("%w: target must be positive, got %d", ErrInvalidGoal, g.Target)
	}
	if DateOf(g.EndDate).Before(DateOf(g.StartDate)) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidGoal)
	}
	return nil
}

// Window returns the half-open timestamp range covering the goal's dates:
// [StartDate.Date, EndDate.Date + 1 day).
func (g ReadingGoal) Window() (from, until time.Time) {
	return DateOf(g.StartDate), DateOf(g.EndDate).AddDate(0, 0, 1)
}

// ProgressPct returns completion percentage (0-100).
func (g ReadingGoal) ProgressPct() float64 {
	if g.Target <= 0 {
		return 100.0
	}
	pct := float64(g.Current) / float64(g.Target) * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return pct
}

// GoalExclusion marks a book (and its sessions) as not counted for a goal.
type GoalExclusion struct {
	GoalID string `json:"goal_id" db:"goal_id"`
	BookID string `json:"book_id" db:"book_id"`
}

// GoalGenreFilter restricts a goal to books carrying any linked genre.
type GoalGenreFilter struct {
	GoalID  string `json:"goal_id" db:"goal_id"`
	GenreID string `json:"genre_id" db:"genre_id"`
}

// DateOf truncates t to midnight of its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Package goals computes reading goal progress from the full reading history.
// Current is derived on every pass; only the completion latch is persisted.
package goals

import (
	"time"

	"github.com/readgarden/readgarden/internal/domain"
)

// Snapshot is everything one aggregation pass reads, loaded once.
type Snapshot struct {
	Books        []domain.Book
	Sessions     []domain.ReadingSession
	Exclusions   []domain.GoalExclusion
	GenreFilters []domain.GoalGenreFilter
	BookGenres   []domain.BookGenre
}

// Pass is the outcome of aggregating a set of goals.
type Pass struct {
	Goals          []domain.ReadingGoal
	NewlyCompleted []domain.ReadingGoal
}

// Changed reports whether the pass latched any goal to completed.
func (p Pass) Changed() bool { return len(p.NewlyCompleted) > 0 }

// counter computes Current for one goal type.
type counter func(g domain.ReadingGoal, f goalFilter, idx *index) int

var counters = map[domain.GoalType]counter{
	domain.GoalBooks:   countBooks,
	domain.GoalPages:   sumPages,
	domain.GoalMinutes: sumMinutes,
}

// Aggregate recomputes Current for every goal and latches IsCompleted for
// goals that reached their target. Goals already completed stay completed.
func Aggregate(goals []domain.ReadingGoal, snap Snapshot, now time.Time) Pass {
	idx := newIndex(snap)
	pass := Pass{Goals: make([]domain.ReadingGoal, 0, len(goals))}

	for _, g := range goals {
		count, ok := counters[g.Type]
		if ok {
			g.Current = count(g, idx.filterFor(g.ID), idx)
		} else {
			g.Current = 0
		}

		if g.Current >= g.Target && !g.IsCompleted {
			completedAt := now
			g.IsCompleted = true
			g.CompletedAt = &completedAt
			pass.NewlyCompleted = append(pass.NewlyCompleted, g)
		}
		pass.Goals = append(pass.Goals, g)
	}
	return pass
}

// ─── Variants ───────────────────────────────────────────────────────────────

func countBooks(g domain.ReadingGoal, f goalFilter, idx *index) int {
	from, until := g.Window()
	n := 0
	for _, b := range idx.books {
		if !b.CountsAsCompleted() || !f.counts(b.ID) {
			continue
		}
		if inWindow(*b.DateCompleted, from, until) {
			n++
		}
	}
	return n
}

func sumPages(g domain.ReadingGoal, f goalFilter, idx *index) int {
	return sumSessions(g, f, idx, func(s domain.ReadingSession) int { return s.Pages() })
}

func sumMinutes(g domain.ReadingGoal, f goalFilter, idx *index) int {
	return sumSessions(g, f, idx, func(s domain.ReadingSession) int { return s.Minutes })
}

func sumSessions(g domain.ReadingGoal, f goalFilter, idx *index, value func(domain.ReadingSession) int) int {
	from, until := g.Window()
	total := 0
	for _, s := range idx.sessions {
		if s.EndedAt == nil || !f.counts(s.BookID) {
			continue
		}
		if inWindow(*s.EndedAt, from, until) {
			total += value(s)
		}
	}
	return total
}

func inWindow(t, from, until time.Time) bool {
	return !t.Before(from) && t.Before(until)
}

// ─── Filters ────────────────────────────────────────────────────────────────

type set map[string]struct{}

func (s set) has(id string) bool {
	_, ok := s[id]
	return ok
}

// goalFilter applies a goal's book exclusions and optional genre filter.
// matching is nil when the goal has no genre filter.
type goalFilter struct {
	excluded set
	matching set
}

func (f goalFilter) counts(bookID string) bool {
	if f.excluded.has(bookID) {
		return false
	}
	if f.matching != nil && !f.matching.has(bookID) {
		return false
	}
	return true
}

// index holds the per-pass lookup tables.
type index struct {
	books    []domain.Book
	sessions []domain.ReadingSession

	excludedByGoal map[string]set
	matchingByGoal map[string]set
}

func newIndex(snap Snapshot) *index {
	idx := &index{
		books:          snap.Books,
		sessions:       snap.Sessions,
		excludedByGoal: make(map[string]set),
		matchingByGoal: make(map[string]set),
	}

	for _, e := range snap.Exclusions {
		if idx.excludedByGoal[e.GoalID] == nil {
			idx.excludedByGoal[e.GoalID] = make(set)
		}
		idx.excludedByGoal[e.GoalID][e.BookID] = struct{}{}
	}

	genresByGoal := make(map[string]set)
	for _, f := range snap.GenreFilters {
		if genresByGoal[f.GoalID] == nil {
			genresByGoal[f.GoalID] = make(set)
		}
		genresByGoal[f.GoalID][f.GenreID] = struct{}{}
	}
	if len(genresByGoal) == 0 {
		return idx
	}

	genresByBook := make(map[string]set)
	link := func(bookID, genreID string) {
		if genresByBook[bookID] == nil {
			genresByBook[bookID] = make(set)
		}
		genresByBook[bookID][genreID] = struct{}{}
	}
	for _, bg := range snap.BookGenres {
		link(bg.BookID, bg.GenreID)
	}
	for _, b := range snap.Books {
		for _, genreID := range b.GenreIDs {
			link(b.ID, genreID)
		}
	}

	for goalID, genres := range genresByGoal {
		matching := make(set)
		for bookID, bookGenres := range genresByBook {
			for genreID := range bookGenres {
				if genres.has(genreID) {
					matching[bookID] = struct{}{}
					break
				}
			}
		}
		idx.matchingByGoal[goalID] = matching
	}
	return idx
}

func (idx *index) filterFor(goalID string) goalFilter {
	return goalFilter{
		excluded: idx.excludedByGoal[goalID],
		matching: idx.matchingByGoal[goalID],
	}
}

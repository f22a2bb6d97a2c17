package goals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/readgarden/readgarden/internal/domain"
	"github.com/readgarden/readgarden/internal/infra/metrics"
)

// Service manages reading goals and runs aggregation passes over storage.
type Service struct {
	store   domain.GoalStore
	library domain.LibraryStore
	clock   domain.Clock
	log     *zap.Logger

	// OnCompleted, if set, receives the goals latched in a pass.
	OnCompleted func([]domain.ReadingGoal)
}

// NewService creates a goal service. clock and log may be nil.
func NewService(store domain.GoalStore, library domain.LibraryStore, clock domain.Clock, log *zap.Logger) *Service {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, library: library, clock: clock, log: log.Named("goals")}
}

// Refresh aggregates every goal against the full history and persists the
// goals that newly completed in one batched write.
func (s *Service) Refresh(ctx context.Context) (Pass, error) {
	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		return Pass{}, fmt.Errorf("list goals: %w", err)
	}
	return s.run(ctx, goals)
}

// Get returns one goal with freshly computed progress.
func (s *Service) Get(ctx context.Context, id string) (domain.ReadingGoal, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return g, err
	}
	pass, err := s.run(ctx, []domain.ReadingGoal{g})
	if err != nil {
		return g, err
	}
	return pass.Goals[0], nil
}

func (s *Service) run(ctx context.Context, goals []domain.ReadingGoal) (Pass, error) {
	start := time.Now()
	defer func() { metrics.GoalAggregationLatency.Observe(time.Since(start).Seconds()) }()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return Pass{}, err
	}

	pass := Aggregate(goals, snap, s.clock.Now())
	if !pass.Changed() {
		return pass, nil
	}

	if err := s.store.MarkGoalsCompleted(ctx, pass.NewlyCompleted); err != nil {
		return pass, fmt.Errorf("mark goals completed: %w", err)
	}
	for _, g := range pass.NewlyCompleted {
		metrics.GoalsCompleted.WithLabelValues(string(g.Type)).Inc()
		s.log.Info("goal completed",
			zap.String("goal_id", g.ID),
			zap.String("type", string(g.Type)),
			zap.Int("current", g.Current),
			zap.Int("target", g.Target))
	}
	if s.OnCompleted != nil {
		s.OnCompleted(pass.NewlyCompleted)
	}
	return pass, nil
}

func (s *Service) snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Books, err = s.library.ListBooks(ctx); err != nil {
		return snap, fmt.Errorf("list books: %w", err)
	}
	if snap.Sessions, err = s.library.ListSessions(ctx); err != nil {
		return snap, fmt.Errorf("list sessions: %w", err)
	}
	if snap.BookGenres, err = s.library.ListBookGenres(ctx); err != nil {
		return snap, fmt.Errorf("list book genres: %w", err)
	}
	if snap.Exclusions, err = s.store.ListGoalExclusions(ctx); err != nil {
		return snap, fmt.Errorf("list goal exclusions: %w", err)
	}
	if snap.GenreFilters, err = s.store.ListGoalGenreFilters(ctx); err != nil {
		return snap, fmt.Errorf("list goal genre filters: %w", err)
	}
	return snap, nil
}

// ─── Goal Management ────────────────────────────────────────────────────────

// NewGoal is the input for Create.
type NewGoal struct {
	Title     string
	Type      domain.GoalType
	Target    int
	StartDate time.Time
	EndDate   time.Time
}

// Create validates and stores a new goal.
func (s *Service) Create(ctx context.Context, in NewGoal) (domain.ReadingGoal, error) {
	g := domain.ReadingGoal{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		Type:      in.Type,
		Target:    in.Target,
		StartDate: domain.DateOf(in.StartDate),
		EndDate:   domain.DateOf(in.EndDate),
	}
	if err := g.Validate(); err != nil {
		return g, err
	}
	if g.Title == "" {
		g.Title = fmt.Sprintf("%d %s", g.Target, g.Type)
	}
	if err := s.store.InsertGoal(ctx, g); err != nil {
		return g, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

// Delete removes a goal with its exclusions and genre filters.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteGoal(ctx, id)
}

// ExcludeBook stops a book (and its sessions) counting toward a goal.
func (s *Service) ExcludeBook(ctx context.Context, goalID, bookID string) error {
	if err := s.checkGoalAndBook(ctx, goalID, bookID); err != nil {
		return err
	}
	return s.store.AddGoalExclusion(ctx, domain.GoalExclusion{GoalID: goalID, BookID: bookID})
}

// IncludeBook reverses ExcludeBook.
func (s *Service) IncludeBook(ctx context.Context, goalID, bookID string) error {
	if err := s.checkGoalAndBook(ctx, goalID, bookID); err != nil {
		return err
	}
	return s.store.RemoveGoalExclusion(ctx, domain.GoalExclusion{GoalID: goalID, BookID: bookID})
}

// AddGenreFilter restricts a goal to books carrying any of its genres.
func (s *Service) AddGenreFilter(ctx context.Context, goalID, genreID string) error {
	if err := s.checkGoalAndGenre(ctx, goalID, genreID); err != nil {
		return err
	}
	return s.store.AddGoalGenreFilter(ctx, domain.GoalGenreFilter{GoalID: goalID, GenreID: genreID})
}

// RemoveGenreFilter drops one genre from a goal's filter.
func (s *Service) RemoveGenreFilter(ctx context.Context, goalID, genreID string) error {
	if _, err := s.store.GetGoal(ctx, goalID); err != nil {
		return err
	}
	return s.store.RemoveGoalGenreFilter(ctx, domain.GoalGenreFilter{GoalID: goalID, GenreID: genreID})
}

func (s *Service) checkGoalAndBook(ctx context.Context, goalID, bookID string) error {
	if _, err := s.store.GetGoal(ctx, goalID); err != nil {
		return err
	}
	if _, err := s.library.GetBook(ctx, bookID); err != nil {
		return err
	}
	return nil
}

func (s *Service) checkGoalAndGenre(ctx context.Context, goalID, genreID string) error {
	if _, err := s.store.GetGoal(ctx, goalID); err != nil {
		return err
	}
	genres, err := s.library.ListGenres(ctx)
	if err != nil {
		return fmt.Errorf("list genres: %w", err)
	}
	for _, g := range genres {
		if g.ID == genreID {
			return nil
		}
	}
	return fmt.Errorf("genre %s: %w", genreID, domain.ErrGenreNotFound)
}

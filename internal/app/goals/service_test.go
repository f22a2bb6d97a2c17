package goals_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/readgarden/readgarden/internal/app/goals"
	"github.com/readgarden/readgarden/internal/domain"
	"github.com/readgarden/readgarden/internal/infra/sqlite"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedReading(t *testing.T, db *sqlite.DB, bookID string, ended time.Time, minutes int) {
	t.Helper()
	ctx := context.Background()
	if _, err := db.GetBook(ctx, bookID); errors.Is(err, domain.ErrBookNotFound) {
		if err := db.InsertBook(ctx, domain.Book{ID: bookID, Title: bookID, Status: domain.BookReading, CreatedAt: june1}); err != nil {
			t.Fatalf("insert book: %v", err)
		}
	}
	s := session(bookID, ended, minutes, 0)
	if err := db.InsertSession(ctx, s); err != nil {
		t.Fatalf("insert session: %v", err)
	}
}

func TestService_RefreshLatchesAndPersists(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := goals.NewService(db, db, &fixedClock{now: now}, nil)

	var notified []domain.ReadingGoal
	svc.OnCompleted = func(gs []domain.ReadingGoal) { notified = append(notified, gs...) }

	g, err := svc.Create(ctx, goals.NewGoal{Type: domain.GoalMinutes, Target: 60, StartDate: june1, EndDate: june30})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.Title != "60 minutes" {
		t.Errorf("expected default title, got %q", g.Title)
	}

	seedReading(t, db, "b1", june1.Add(10*time.Hour), 30)
	seedReading(t, db, "b1", june1.AddDate(0, 0, 1).Add(10*time.Hour), 45)

	pass, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pass.Goals[0].Current != 75 || !pass.Goals[0].IsCompleted {
		t.Errorf("expected completed goal at 75, got %+v", pass.Goals[0])
	}
	if len(notified) != 1 {
		t.Errorf("OnCompleted received %d goals, want 1", len(notified))
	}

	stored, err := db.GetGoal(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.IsCompleted || stored.CompletedAt == nil {
		t.Errorf("latch not persisted: %+v", stored)
	}

	// A second pass finds nothing new.
	pass, err = svc.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pass.Changed() || len(notified) != 1 {
		t.Errorf("second pass re-completed the goal")
	}
}

func TestService_ExcludeBook(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := goals.NewService(db, db, &fixedClock{now: now}, nil)

	g, err := svc.Create(ctx, goals.NewGoal{Title: "June", Type: domain.GoalMinutes, Target: 500, StartDate: june1, EndDate: june30})
	if err != nil {
		t.Fatal(err)
	}
	seedReading(t, db, "b1", june1.Add(time.Hour), 30)
	seedReading(t, db, "b2", june1.Add(2*time.Hour), 40)

	if err := svc.ExcludeBook(ctx, g.ID, "b2"); err != nil {
		t.Fatalf("exclude: %v", err)
	}
	got, err := svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Current != 30 {
		t.Errorf("expected 30 minutes with b2 excluded, got %d", got.Current)
	}

	if err := svc.IncludeBook(ctx, g.ID, "b2"); err != nil {
		t.Fatalf("include: %v", err)
	}
	got, _ = svc.Get(ctx, g.ID)
	if got.Current != 70 {
		t.Errorf("expected 70 minutes after including b2, got %d", got.Current)
	}

	if err := svc.ExcludeBook(ctx, g.ID, "missing"); !errors.Is(err, domain.ErrBookNotFound) {
		t.Errorf("expected ErrBookNotFound, got %v", err)
	}
}

func TestService_GenreFilter(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := goals.NewService(db, db, &fixedClock{now: now}, nil)

	g, err := svc.Create(ctx, goals.NewGoal{Type: domain.GoalBooks, Target: 5, StartDate: june1, EndDate: june30})
	if err != nil {
		t.Fatal(err)
	}
	for i, genre := range []string{"fantasy", "history"} {
		at := june1.AddDate(0, 0, i+1)
		b := completedBook(genre+"-book", at, genre)
		b.CreatedAt = june1
		if err := db.InsertBook(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.AddGenreFilter(ctx, g.ID, "fantasy"); err != nil {
		t.Fatalf("add filter: %v", err)
	}
	got, _ := svc.Get(ctx, g.ID)
	if got.Current != 1 {
		t.Errorf("expected 1 fantasy book, got %d", got.Current)
	}

	if err := svc.AddGenreFilter(ctx, g.ID, "cooking"); !errors.Is(err, domain.ErrGenreNotFound) {
		t.Errorf("expected ErrGenreNotFound, got %v", err)
	}

	if err := svc.RemoveGenreFilter(ctx, g.ID, "fantasy"); err != nil {
		t.Fatal(err)
	}
	got, _ = svc.Get(ctx, g.ID)
	if got.Current != 2 {
		t.Errorf("expected 2 books without a filter, got %d", got.Current)
	}
}

func TestService_CreateValidation(t *testing.T) {
	db := testDB(t)
	svc := goals.NewService(db, db, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   goals.NewGoal
	}{
		{"zero target", goals.NewGoal{Type: domain.GoalBooks, Target: 0, StartDate: june1, EndDate: june30}},
		{"unknown type", goals.NewGoal{Type: "chapters", Target: 3, StartDate: june1, EndDate: june30}},
		{"reversed window", goals.NewGoal{Type: domain.GoalPages, Target: 3, StartDate: june30, EndDate: june1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.in); !errors.Is(err, domain.ErrInvalidGoal) {
				t.Errorf("expected ErrInvalidGoal, got %v", err)
			}
		})
	}
}

func TestService_Delete(t *testing.T) {
	db := testDB(t)
	svc := goals.NewService(db, db, nil, nil)
	ctx := context.Background()

	g, err := svc.Create(ctx, goals.NewGoal{Type: domain.GoalPages, Target: 300, StartDate: june1, EndDate: june30})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, g.ID); !errors.Is(err, domain.ErrGoalNotFound) {
		t.Errorf("expected ErrGoalNotFound, got %v", err)
	}
}

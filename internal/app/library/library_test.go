package library_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/readgarden/readgarden/internal/app/library"
	"github.com/readgarden/readgarden/internal/domain"
	"github.com/readgarden/readgarden/internal/infra/sqlite"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var added = time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)

func TestAdd(t *testing.T) {
	db := testDB(t)
	svc := library.NewService(db, fixedClock{added})
	ctx := context.Background()

	b, err := svc.Add(ctx, library.NewBook{Title: "  Piranesi ", Author: "Susanna Clarke", GenreIDs: []string{"fantasy"}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if b.Title != "Piranesi" || b.Status != domain.BookReading {
		t.Errorf("unexpected book %+v", b)
	}

	got, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.GenreIDs) != 1 || got.GenreIDs[0] != "fantasy" {
		t.Errorf("genres = %v, want [fantasy]", got.GenreIDs)
	}
}

func TestAdd_CompletedGetsDate(t *testing.T) {
	db := testDB(t)
	svc := library.NewService(db, fixedClock{added})

	b, err := svc.Add(context.Background(), library.NewBook{Title: "Done", Status: "completed"})
	if err != nil {
		t.Fatal(err)
	}
	if !b.CountsAsCompleted() || !b.DateCompleted.Equal(added) {
		t.Errorf("completed book without date: %+v", b)
	}
}

func TestAdd_Validation(t *testing.T) {
	db := testDB(t)
	svc := library.NewService(db, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   library.NewBook
		want error
	}{
		{"empty title", library.NewBook{Title: "   "}, domain.ErrInvalidInput},
		{"bad status", library.NewBook{Title: "X", Status: "shelved"}, domain.ErrInvalidInput},
		{"unknown genre", library.NewBook{Title: "X", GenreIDs: []string{"cooking"}}, domain.ErrGenreNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Add(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSessions_NewestFirst(t *testing.T) {
	db := testDB(t)
	svc := library.NewService(db, fixedClock{added})
	ctx := context.Background()

	b, err := svc.Add(ctx, library.NewBook{Title: "Long Read"})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		s := domain.ReadingSession{ID: string(rune('a' + i)), BookID: b.ID, StartedAt: added.AddDate(0, 0, i)}
		if err := db.InsertSession(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	all, err := svc.Sessions(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "c" {
		t.Errorf("expected newest first, got %v", all)
	}

	recent, _ := svc.Sessions(ctx, added.AddDate(0, 0, 1))
	if len(recent) != 2 {
		t.Errorf("expected 2 sessions since day 1, got %d", len(recent))
	}
}

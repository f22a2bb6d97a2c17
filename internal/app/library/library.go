// Package library manages the tracked books and the genre catalog.
package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/readgarden/readgarden/internal/domain"
)

// Service adds and lists books.
type Service struct {
	store domain.LibraryStore
	clock domain.Clock
}

// NewService creates a library service. clock may be nil.
func NewService(store domain.LibraryStore, clock domain.Clock) *Service {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Service{store: store, clock: clock}
}

// NewBook is the input for Add.
type NewBook struct {
	Title    string
	Author   string
	Status   string // empty means reading
	GenreIDs []string
}

// Add validates and stores a book. Unknown genres are rejected.
func (s *Service) Add(ctx context.Context, in NewBook) (domain.Book, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Book{}, fmt.Errorf("%w: book title is required", domain.ErrInvalidInput)
	}

	status := domain.BookReading
	if in.Status != "" {
		st, err := domain.ParseBookStatus(in.Status)
		if err != nil {
			return domain.Book{}, err
		}
		status = st
	}

	if len(in.GenreIDs) > 0 {
		if err := s.checkGenres(ctx, in.GenreIDs); err != nil {
			return domain.Book{}, err
		}
	}

	now := s.clock.Now()
	b := domain.Book{
		ID:        uuid.NewString(),
		Title:     title,
		Author:    strings.TrimSpace(in.Author),
		Status:    status,
		GenreIDs:  in.GenreIDs,
		CreatedAt: now,
	}
	if status == domain.BookCompleted {
		b.DateCompleted = &now
	}

	if err := s.store.InsertBook(ctx, b); err != nil {
		return b, fmt.Errorf("add book: %w", err)
	}
	return b, nil
}

// Get returns one book.
func (s *Service) Get(ctx context.Context, id string) (domain.Book, error) {
	return s.store.GetBook(ctx, id)
}

// List returns every book.
func (s *Service) List(ctx context.Context) ([]domain.Book, error) {
	return s.store.ListBooks(ctx)
}

// Genres returns the genre catalog.
func (s *Service) Genres(ctx context.Context) ([]domain.Genre, error) {
	return s.store.ListGenres(ctx)
}

// Sessions returns reading sessions, newest first, optionally since a time.
func (s *Service) Sessions(ctx context.Context, since time.Time) ([]domain.ReadingSession, error) {
	all, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ReadingSession, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if !since.IsZero() && all[i].StartedAt.Before(since) {
			continue
		}
		out = append(out, all[i])
	}
	return out, nil
}

func (s *Service) checkGenres(ctx context.Context, ids []string) error {
	genres, err := s.store.ListGenres(ctx)
	if err != nil {
		return fmt.Errorf("list genres: %w", err)
	}
	known := make(map[string]bool, len(genres))
	for _, g := range genres {
		known[g.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return fmt.Errorf("genre %s: %w", id, domain.ErrGenreNotFound)
		}
	}
	return nil
}

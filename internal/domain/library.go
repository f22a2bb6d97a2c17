package domain

import (
	"fmt"
	"time"
)

// ─── Books ──────────────────────────────────────────────────────────────────

// BookStatus is the reading state of a book.
type BookStatus string

const (
	BookPlanned   BookStatus = "planned"
	BookReading   BookStatus = "reading"
	BookCompleted BookStatus = "completed"
	BookAbandoned BookStatus = "abandoned"
	BookWishlist  BookStatus = "wishlist"
)

// ParseBookStatus validates a status string.
func ParseBookStatus(s string) (BookStatus, error) {
	switch st := BookStatus(s); st {
	case BookPlanned, BookReading, BookCompleted, BookAbandoned, BookWishlist:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown book status %q", ErrInvalidInput, s)
}

// Book is a tracked title.
type Book struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Author        string     `json:"author"`
	Status        BookStatus `json:"status"`
	DateCompleted *time.Time `json:"date_completed,omitempty"`
	GenreIDs      []string   `json:"genre_ids,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CountsAsCompleted reports whether the book can count toward a Books goal.
// A Completed book without a completion date is inconsistent and never counts.
func (b Book) CountsAsCompleted() bool {
	return b.Status == BookCompleted && b.DateCompleted != nil
}

// Genre is a catalog genre.
type Genre struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// BookGenre links a book to a genre.
type BookGenre struct {
	BookID  string `json:"book_id" db:"book_id"`
	GenreID string `json:"genre_id" db:"genre_id"`
}

// ─── Reading Sessions ───────────────────────────────────────────────────────

// ReadingSession is one sitting with a book. It is created when reading
// starts and finalized when it ends; XPEarned is set once at finalization.
type ReadingSession struct {
	ID        string     `json:"id"`
	BookID    string     `json:"book_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Minutes   int        `json:"minutes"`
	PagesRead *int       `json:"pages_read,omitempty"`
	XPEarned  int64      `json:"xp_earned"`
}

// IsFinalized reports whether the session has ended.
func (s ReadingSession) IsFinalized() bool {
	return s.EndedAt != nil
}

// Pages returns PagesRead with nil treated as zero.
func (s ReadingSession) Pages() int {
	if s.PagesRead == nil {
		return 0
	}
	return *s.PagesRead
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/readgarden/readgarden/internal/domain"
)

// ─── Books ──────────────────────────────────────────────────────────────────

type bookRow struct {
	ID            string         `db:"id"`
	Title         string         `db:"title"`
	Author        string         `db:"author"`
	Status        string         `db:"status"`
	DateCompleted sql.NullString `db:"date_completed"`
	CreatedAt     string         `db:"created_at"`
}

func (r bookRow) toDomain() (domain.Book, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return domain.Book{}, err
	}
	completed, err := parseNullableTime(r.DateCompleted)
	if err != nil {
		return domain.Book{}, err
	}
	return domain.Book{
		ID:            r.ID,
		Title:         r.Title,
		Author:        r.Author,
		Status:        domain.BookStatus(r.Status),
		DateCompleted: completed,
		CreatedAt:     created,
	}, nil
}

// InsertBook stores a book and its genre links.
func (d *DB) InsertBook(ctx context.Context, b domain.Book) error {
	return d.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := execBuilt(ctx, tx, d.psql.Insert("books").SetMap(map[string]any{
			"id":             b.ID,
			"title":          b.Title,
			"author":         b.Author,
			"status":         string(b.Status),
			"date_completed": nullableTime(b.DateCompleted),
			"created_at":     formatTime(b.CreatedAt),
		}))
		if err != nil {
			return fmt.Errorf("insert book: %w", err)
		}

		for _, genreID := range b.GenreIDs {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO book_genres (book_id, genre_id) VALUES (?, ?)`, b.ID, genreID)
			if err != nil {
				return fmt.Errorf("link genre %s: %w", genreID, err)
			}
		}
		return nil
	})
}

// GetBook returns one book with its genre ids.
func (d *DB) GetBook(ctx context.Context, id string) (domain.Book, error) {
	var row bookRow
	err := d.db.GetContext(ctx, &row,
		`SELECT id, title, author, status, date_completed, created_at FROM books WHERE id = ?`, id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book %s: %w", id, notFound(err, domain.ErrBookNotFound))
	}
	b, err := row.toDomain()
	if err != nil {
		return b, err
	}

	if err := d.db.SelectContext(ctx, &b.GenreIDs,
		`SELECT genre_id FROM book_genres WHERE book_id = ? ORDER BY genre_id`, id); err != nil {
		return b, fmt.Errorf("list genres of book %s: %w", id, err)
	}
	return b, nil
}

// ListBooks returns every book with its genre ids.
func (d *DB) ListBooks(ctx context.Context) ([]domain.Book, error) {
	var rows []bookRow
	err := d.db.SelectContext(ctx, &rows,
		`SELECT id, title, author, status, date_completed, created_at FROM books ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	links, err := d.ListBookGenres(ctx)
	if err != nil {
		return nil, err
	}
	genresByBook := make(map[string][]string)
	for _, l := range links {
		genresByBook[l.BookID] = append(genresByBook[l.BookID], l.GenreID)
	}

	books := make([]domain.Book, 0, len(rows))
	for _, r := range rows {
		b, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		b.GenreIDs = genresByBook[b.ID]
		books = append(books, b)
	}
	return books, nil
}

// CompleteBook marks a book completed at the given time. A book is
// completed once; later calls fail with ErrBookAlreadyCompleted.
func (d *DB) CompleteBook(ctx context.Context, id string, at time.Time) error {
	return d.completeBook(ctx, d.db, id, at)
}

func (d *DB) completeBook(ctx context.Context, q sqlx.ExtContext, id string, at time.Time) error {
	res, err := execBuilt(ctx, q, d.psql.Update("books").
		Set("status", string(domain.BookCompleted)).
		Set("date_completed", formatTime(at)).
		Where(sq.Eq{"id": id}).
		Where(sq.Or{
			sq.NotEq{"status": string(domain.BookCompleted)},
			sq.Eq{"date_completed": nil},
		}))
	if err != nil {
		return fmt.Errorf("complete book %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	var exists int
	if err := sqlx.GetContext(ctx, q, &exists, `SELECT COUNT(*) FROM books WHERE id = ?`, id); err != nil {
		return fmt.Errorf("find book %s: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("complete book %s: %w", id, domain.ErrBookNotFound)
	}
	return fmt.Errorf("complete book %s: %w", id, domain.ErrBookAlreadyCompleted)
}

// ─── Genres ─────────────────────────────────────────────────────────────────

// InsertGenre stores a genre.
func (d *DB) InsertGenre(ctx context.Context, g domain.Genre) error {
	_, err := d.db.NamedExecContext(ctx, `INSERT INTO genres (id, name) VALUES (:id, :name)`, g)
	if err != nil {
		return fmt.Errorf("insert genre %s: %w", g.ID, err)
	}
	return nil
}

// ListGenres returns the genre catalog.
func (d *DB) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	var genres []domain.Genre
	if err := d.db.SelectContext(ctx, &genres, `SELECT id, name FROM genres ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return genres, nil
}

// ListBookGenres returns every book-genre link.
func (d *DB) ListBookGenres(ctx context.Context) ([]domain.BookGenre, error) {
	var links []domain.BookGenre
	err := d.db.SelectContext(ctx, &links,
		`SELECT book_id, genre_id FROM book_genres ORDER BY book_id, genre_id`)
	if err != nil {
		return nil, fmt.Errorf("list book genres: %w", err)
	}
	return links, nil
}

// ─── Reading Sessions ───────────────────────────────────────────────────────

type sessionRow struct {
	ID        string         `db:"id"`
	BookID    string         `db:"book_id"`
	StartedAt string         `db:"started_at"`
	EndedAt   sql.NullString `db:"ended_at"`
	Minutes   int            `db:"minutes"`
	PagesRead sql.NullInt64  `db:"pages_read"`
	XPEarned  int64          `db:"xp_earned"`
}

func (r sessionRow) toDomain() (domain.ReadingSession, error) {
	started, err := parseTime(r.StartedAt)
	if err != nil {
		return domain.ReadingSession{}, err
	}
	ended, err := parseNullableTime(r.EndedAt)
	if err != nil {
		return domain.ReadingSession{}, err
	}
	return domain.ReadingSession{
		ID:        r.ID,
		BookID:    r.BookID,
		StartedAt: started,
		EndedAt:   ended,
		Minutes:   r.Minutes,
		PagesRead: parseNullableInt(r.PagesRead),
		XPEarned:  r.XPEarned,
	}, nil
}

const sessionColumns = `id, book_id, started_at, ended_at, minutes, pages_read, xp_earned`

// InsertSession stores a new session.
func (d *DB) InsertSession(ctx context.Context, s domain.ReadingSession) error {
	_, err := execBuilt(ctx, d.db, d.psql.Insert("reading_sessions").SetMap(map[string]any{
		"id":         s.ID,
		"book_id":    s.BookID,
		"started_at": formatTime(s.StartedAt),
		"ended_at":   nullableTime(s.EndedAt),
		"minutes":    s.Minutes,
		"pages_read": nullableInt(s.PagesRead),
		"xp_earned":  s.XPEarned,
	}))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession returns one session.
func (d *DB) GetSession(ctx context.Context, id string) (domain.ReadingSession, error) {
	var row sessionRow
	err := d.db.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM reading_sessions WHERE id = ?`, id)
	if err != nil {
		return domain.ReadingSession{}, fmt.Errorf("get session %s: %w", id, notFound(err, domain.ErrSessionNotFound))
	}
	return row.toDomain()
}

// ListSessions returns every session ordered by start time.
func (d *DB) ListSessions(ctx context.Context) ([]domain.ReadingSession, error) {
	var rows []sessionRow
	err := d.db.SelectContext(ctx, &rows,
		`SELECT `+sessionColumns+` FROM reading_sessions ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]domain.ReadingSession, 0, len(rows))
	for _, r := range rows {
		s, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// FinalizeSession records the end of a session. A session is finalized
// once; later calls fail with ErrSessionFinalized.
func (d *DB) FinalizeSession(ctx context.Context, s domain.ReadingSession) error {
	return d.finalizeSession(ctx, d.db, s)
}

func (d *DB) finalizeSession(ctx context.Context, ex sqlx.ExecerContext, s domain.ReadingSession) error {
	res, err := execBuilt(ctx, ex, d.psql.Update("reading_sessions").
		SetMap(map[string]any{
			"ended_at":   nullableTime(s.EndedAt),
			"minutes":    s.Minutes,
			"pages_read": nullableInt(s.PagesRead),
			"xp_earned":  s.XPEarned,
		}).
		Where(sq.Eq{"id": s.ID}).
		Where("ended_at IS NULL"))
	if err != nil {
		return fmt.Errorf("finalize session %s: %w", s.ID, err)
	}
	if err := requireRow(res, domain.ErrSessionFinalized); err != nil {
		return fmt.Errorf("finalize session %s: %w", s.ID, err)
	}
	return nil
}

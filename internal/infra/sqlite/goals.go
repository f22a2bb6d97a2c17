package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/readgarden/readgarden/internal/domain"
)

// ─── Reading Goals ──────────────────────────────────────────────────────────

type goalRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Type        string         `db:"type"`
	Target      int            `db:"target"`
	Current     int            `db:"current"`
	StartDate   string         `db:"start_date"`
	EndDate     string         `db:"end_date"`
	IsCompleted bool           `db:"is_completed"`
	CompletedAt sql.NullString `db:"completed_at"`
}

func (r goalRow) toDomain() (domain.ReadingGoal, error) {
	start, err := parseTime(r.StartDate)
	if err != nil {
		return domain.ReadingGoal{}, err
	}
	end, err := parseTime(r.EndDate)
	if err != nil {
		return domain.ReadingGoal{}, err
	}
	completed, err := parseNullableTime(r.CompletedAt)
	if err != nil {
		return domain.ReadingGoal{}, err
	}
	return domain.ReadingGoal{
		ID:          r.ID,
		Title:       r.Title,
		Type:        domain.GoalType(r.Type),
		Target:      r.Target,
		Current:     r.Current,
		StartDate:   start,
		EndDate:     end,
		IsCompleted: r.IsCompleted,
		CompletedAt: completed,
	}, nil
}

const goalColumns = `id, title, type, target, current, start_date, end_date, is_completed, completed_at`

// InsertGoal stores a new goal.
func (d *DB) InsertGoal(ctx context.Context, g domain.ReadingGoal) error {
	_, err := execBuilt(ctx, d.db, d.psql.Insert("reading_goals").SetMap(map[string]any{
		"id":           g.ID,
		"title":        g.Title,
		"type":         string(g.Type),
		"target":       g.Target,
		"current":      g.Current,
		"start_date":   formatTime(g.StartDate),
		"end_date":     formatTime(g.EndDate),
		"is_completed": g.IsCompleted,
		"completed_at": nullableTime(g.CompletedAt),
	}))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

// GetGoal returns one goal.
func (d *DB) GetGoal(ctx context.Context, id string) (domain.ReadingGoal, error) {
	var row goalRow
	err := d.db.GetContext(ctx, &row, `SELECT `+goalColumns+` FROM reading_goals WHERE id = ?`, id)
	if err != nil {
		return domain.ReadingGoal{}, fmt.Errorf("get goal %s: %w", id, notFound(err, domain.ErrGoalNotFound))
	}
	return row.toDomain()
}

// ListGoals returns every goal ordered by start date.
func (d *DB) ListGoals(ctx context.Context) ([]domain.ReadingGoal, error) {
	var rows []goalRow
	err := d.db.SelectContext(ctx, &rows,
		`SELECT `+goalColumns+` FROM reading_goals ORDER BY start_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	goals := make([]domain.ReadingGoal, 0, len(rows))
	for _, r := range rows {
		g, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, nil
}

// DeleteGoal removes a goal. Exclusions and genre filters cascade.
func (d *DB) DeleteGoal(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM reading_goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	return requireRow(res, domain.ErrGoalNotFound)
}

// MarkGoalsCompleted latches a batch of goals in one transaction. Goals
// already completed are left untouched.
func (d *DB) MarkGoalsCompleted(ctx context.Context, goals []domain.ReadingGoal) error {
	if len(goals) == 0 {
		return nil
	}
	return d.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, g := range goals {
			_, err := execBuilt(ctx, tx, d.psql.Update("reading_goals").
				Set("is_completed", true).
				Set("completed_at", nullableTime(g.CompletedAt)).
				Set("current", g.Current).
				Where(sq.Eq{"id": g.ID, "is_completed": false}))
			if err != nil {
				return fmt.Errorf("mark goal %s completed: %w", g.ID, err)
			}
		}
		return nil
	})
}

// ─── Exclusions & Genre Filters ─────────────────────────────────────────────

// ListGoalExclusions returns every goal exclusion.
func (d *DB) ListGoalExclusions(ctx context.Context) ([]domain.GoalExclusion, error) {
	var out []domain.GoalExclusion
	err := d.db.SelectContext(ctx, &out, `SELECT goal_id, book_id FROM goal_exclusions ORDER BY goal_id, book_id`)
	if err != nil {
		return nil, fmt.Errorf("list goal exclusions: %w", err)
	}
	return out, nil
}

// AddGoalExclusion excludes a book from a goal. Adding twice is a no-op.
func (d *DB) AddGoalExclusion(ctx context.Context, e domain.GoalExclusion) error {
	_, err := d.db.NamedExecContext(ctx,
		`INSERT OR IGNORE INTO goal_exclusions (goal_id, book_id) VALUES (:goal_id, :book_id)`, e)
	if err != nil {
		return fmt.Errorf("add goal exclusion: %w", err)
	}
	return nil
}

// RemoveGoalExclusion removes an exclusion if present.
func (d *DB) RemoveGoalExclusion(ctx context.Context, e domain.GoalExclusion) error {
	_, err := d.db.NamedExecContext(ctx,
		`DELETE FROM goal_exclusions WHERE goal_id = :goal_id AND book_id = :book_id`, e)
	if err != nil {
		return fmt.Errorf("remove goal exclusion: %w", err)
	}
	return nil
}

// ListGoalGenreFilters returns every goal genre filter.
func (d *DB) ListGoalGenreFilters(ctx context.Context) ([]domain.GoalGenreFilter, error) {
	var out []domain.GoalGenreFilter
	err := d.db.SelectContext(ctx, &out,
		`SELECT goal_id, genre_id FROM goal_genre_filters ORDER BY goal_id, genre_id`)
	if err != nil {
		return nil, fmt.Errorf("list goal genre filters: %w", err)
	}
	return out, nil
}

// AddGoalGenreFilter adds a genre to a goal's filter. Adding twice is a no-op.
func (d *DB) AddGoalGenreFilter(ctx context.Context, f domain.GoalGenreFilter) error {
	_, err := d.db.NamedExecContext(ctx,
		`INSERT OR IGNORE INTO goal_genre_filters (goal_id, genre_id) VALUES (:goal_id, :genre_id)`, f)
	if err != nil {
		return fmt.Errorf("add goal genre filter: %w", err)
	}
	return nil
}

// RemoveGoalGenreFilter removes a genre from a goal's filter if present.
func (d *DB) RemoveGoalGenreFilter(ctx context.Context, f domain.GoalGenreFilter) error {
	_, err := d.db.NamedExecContext(ctx,
		`DELETE FROM goal_genre_filters WHERE goal_id = :goal_id AND genre_id = :genre_id`, f)
	if err != nil {
		return fmt.Errorf("remove goal genre filter: %w", err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ domain.ProgressStore = (*DB)(nil)
	_ domain.GardenStore   = (*DB)(nil)
	_ domain.LibraryStore  = (*DB)(nil)
	_ domain.GoalStore     = (*DB)(nil)
)

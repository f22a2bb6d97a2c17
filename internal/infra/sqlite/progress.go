package sqlite

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/readgarden/readgarden/internal/domain"
)

// ─── Account Progress ───────────────────────────────────────────────────────

type progressRow struct {
	TotalXP   int64  `db:"total_xp"`
	Level     int    `db:"level"`
	Coins     int64  `db:"coins"`
	UpdatedAt string `db:"updated_at"`
}

func (r progressRow) toDomain() (domain.AccountProgress, error) {
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return domain.AccountProgress{}, err
	}
	return domain.AccountProgress{
		TotalXP:   r.TotalXP,
		Level:     r.Level,
		Coins:     r.Coins,
		UpdatedAt: updated,
	}, nil
}

// GetProgress returns the account record.
func (d *DB) GetProgress(ctx context.Context) (domain.AccountProgress, error) {
	var row progressRow
	err := d.db.GetContext(ctx, &row,
		`SELECT total_xp, level, coins, updated_at FROM account_progress WHERE id = 1`)
	if err != nil {
		return domain.AccountProgress{}, fmt.Errorf("get account progress: %w", err)
	}
	return row.toDomain()
}

// ApplyAward spends the claim, then writes XP, level and a coin delta
// computed from the record read inside the same transaction. Coins are
// added, never overwritten, so a concurrent purchase cannot be lost.
func (d *DB) ApplyAward(ctx context.Context, claim domain.AwardClaim, compute func(domain.AccountProgress) domain.AwardUpdate) (domain.AccountProgress, error) {
	var stored domain.AccountProgress
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		// The claim write comes first so the transaction holds the write
		// lock before it reads the record.
		if claim.Session != nil {
			if err := d.finalizeSession(ctx, tx, *claim.Session); err != nil {
				return err
			}
		}
		if claim.BookID != "" {
			if err := d.completeBook(ctx, tx, claim.BookID, claim.CompletedAt); err != nil {
				return err
			}
		}

		var cur progressRow
		if err := tx.GetContext(ctx, &cur,
			`SELECT total_xp, level, coins, updated_at FROM account_progress WHERE id = 1`); err != nil {
			return fmt.Errorf("get account progress: %w", err)
		}
		current, err := cur.toDomain()
		if err != nil {
			return err
		}

		u := compute(current)
		var row progressRow
		err = tx.GetContext(ctx, &row,
			`UPDATE account_progress
			 SET total_xp = ?, level = ?, coins = coins + ?, updated_at = ?
			 WHERE id = 1
			 RETURNING total_xp, level, coins, updated_at`,
			u.TotalXP, u.Level, u.CoinsDelta, formatTime(time.Now()),
		)
		if err != nil {
			return fmt.Errorf("apply award (total_xp: %d, level: %d): %w", u.TotalXP, u.Level, err)
		}
		stored, err = row.toDomain()
		return err
	})
	if err != nil {
		return domain.AccountProgress{}, err
	}
	return stored, nil
}

// RepairLevel overwrites the stored level.
func (d *DB) RepairLevel(ctx context.Context, level int) error {
	_, err := execBuilt(ctx, d.db, d.psql.Update("account_progress").
		Set("level", level).
		Set("updated_at", formatTime(time.Now())).
		Where(sq.Eq{"id": 1}))
	if err != nil {
		return fmt.Errorf("repair level (level: %d): %w", level, err)
	}
	return nil
}

// SetProgress overwrites the whole record. Used by seeding and tests.
func (d *DB) SetProgress(ctx context.Context, p domain.AccountProgress) error {
	_, err := execBuilt(ctx, d.db, d.psql.Update("account_progress").
		SetMap(map[string]any{
			"total_xp":   p.TotalXP,
			"level":      p.Level,
			"coins":      p.Coins,
			"updated_at": formatTime(time.Now()),
		}).
		Where(sq.Eq{"id": 1}))
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

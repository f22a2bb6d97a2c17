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

// ─── Species Catalog ────────────────────────────────────────────────────────

const speciesColumns = `id, name, growth_rate, max_level, water_interval_days, xp_boost_percentage, cost`

// ListSpecies returns the plant catalog ordered by cost.
func (d *DB) ListSpecies(ctx context.Context) ([]domain.PlantSpecies, error) {
	var species []domain.PlantSpecies
	err := d.db.SelectContext(ctx, &species,
		`SELECT `+speciesColumns+` FROM plant_species ORDER BY cost, id`)
	if err != nil {
		return nil, fmt.Errorf("list species: %w", err)
	}
	return species, nil
}

// GetSpecies returns one species.
func (d *DB) GetSpecies(ctx context.Context, id string) (domain.PlantSpecies, error) {
	var s domain.PlantSpecies
	err := d.db.GetContext(ctx, &s,
		`SELECT `+speciesColumns+` FROM plant_species WHERE id = ?`, id)
	if err != nil {
		return s, fmt.Errorf("get species %s: %w", id, notFound(err, domain.ErrSpeciesNotFound))
	}
	return s, nil
}

// ─── Plants ─────────────────────────────────────────────────────────────────

type ownedPlantRow struct {
	ID               string         `db:"id"`
	SpeciesID        string         `db:"species_id"`
	Name             string         `db:"name"`
	CurrentLevel     int            `db:"current_level"`
	ReadingDaysCount int            `db:"reading_days_count"`
	LastReadingDay   sql.NullString `db:"last_reading_day"`
	LastWatered      string         `db:"last_watered"`
	PlantedAt        string         `db:"planted_at"`
	Status           string         `db:"status"`
	IsActive         bool           `db:"is_active"`

	SpeciesName       string  `db:"species_name"`
	GrowthRate        float64 `db:"growth_rate"`
	MaxLevel          int     `db:"max_level"`
	WaterIntervalDays int     `db:"water_interval_days"`
	XPBoostPercentage float64 `db:"xp_boost_percentage"`
	Cost              int64   `db:"cost"`
}

func (r ownedPlantRow) toDomain() (domain.OwnedPlant, error) {
	var op domain.OwnedPlant
	lastWatered, err := parseTime(r.LastWatered)
	if err != nil {
		return op, err
	}
	plantedAt, err := parseTime(r.PlantedAt)
	if err != nil {
		return op, err
	}
	lastDay, err := parseNullableTime(r.LastReadingDay)
	if err != nil {
		return op, err
	}

	op.Plant = domain.Plant{
		ID:                     r.ID,
		SpeciesID:              r.SpeciesID,
		Name:                   r.Name,
		CurrentLevel:           r.CurrentLevel,
		ReadingDaysCount:       r.ReadingDaysCount,
		LastReadingDayRecorded: lastDay,
		LastWatered:            lastWatered,
		PlantedAt:              plantedAt,
		Status:                 domain.PlantStatus(r.Status),
		IsActive:               r.IsActive,
	}
	op.Species = domain.PlantSpecies{
		ID:                r.SpeciesID,
		Name:              r.SpeciesName,
		GrowthRate:        r.GrowthRate,
		MaxLevel:          r.MaxLevel,
		WaterIntervalDays: r.WaterIntervalDays,
		XPBoostPercentage: r.XPBoostPercentage,
		Cost:              r.Cost,
	}
	return op, nil
}

func (d *DB) ownedPlantsQuery() sq.SelectBuilder {
	return d.psql.Select(
		"p.id", "p.species_id", "p.name", "p.current_level", "p.reading_days_count",
		"p.last_reading_day", "p.last_watered", "p.planted_at", "p.status", "p.is_active",
		"s.name AS species_name", "s.growth_rate", "s.max_level", "s.water_interval_days",
		"s.xp_boost_percentage", "s.cost",
	).From("plants p").Join("plant_species s ON s.id = p.species_id")
}

// ListOwnedPlants returns every plant joined with its species.
func (d *DB) ListOwnedPlants(ctx context.Context) ([]domain.OwnedPlant, error) {
	query, args, err := d.ownedPlantsQuery().OrderBy("p.planted_at", "p.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query: %w", err)
	}

	var rows []ownedPlantRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}

	plants := make([]domain.OwnedPlant, 0, len(rows))
	for _, r := range rows {
		op, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		plants = append(plants, op)
	}
	return plants, nil
}

// GetOwnedPlant returns one plant joined with its species.
func (d *DB) GetOwnedPlant(ctx context.Context, id string) (domain.OwnedPlant, error) {
	query, args, err := d.ownedPlantsQuery().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return domain.OwnedPlant{}, fmt.Errorf("build SQL query: %w", err)
	}

	var row ownedPlantRow
	if err := d.db.GetContext(ctx, &row, query, args...); err != nil {
		return domain.OwnedPlant{}, fmt.Errorf("get plant %s: %w", id, notFound(err, domain.ErrPlantNotFound))
	}
	return row.toDomain()
}

func plantValues(p domain.Plant) map[string]any {
	return map[string]any{
		"species_id":         p.SpeciesID,
		"name":               p.Name,
		"current_level":      p.CurrentLevel,
		"reading_days_count": p.ReadingDaysCount,
		"last_reading_day":   nullableTime(p.LastReadingDayRecorded),
		"last_watered":       formatTime(p.LastWatered),
		"planted_at":         formatTime(p.PlantedAt),
		"status":             string(p.Status),
		"is_active":          p.IsActive,
	}
}

// UpdatePlantGrowth writes the reading-day fields of a plant.
func (d *DB) UpdatePlantGrowth(ctx context.Context, p domain.Plant) error {
	res, err := execBuilt(ctx, d.db, d.psql.Update("plants").
		SetMap(map[string]any{
			"current_level":      p.CurrentLevel,
			"reading_days_count": p.ReadingDaysCount,
			"last_reading_day":   nullableTime(p.LastReadingDayRecorded),
		}).
		Where(sq.Eq{"id": p.ID}))
	if err != nil {
		return fmt.Errorf("update plant %s growth: %w", p.ID, err)
	}
	return requireRow(res, domain.ErrPlantNotFound)
}

// UpdatePlantStatus writes a freshly evaluated status. The write only lands
// while last_watered still matches the value the status was derived from.
func (d *DB) UpdatePlantStatus(ctx context.Context, p domain.Plant) error {
	_, err := execBuilt(ctx, d.db, d.psql.Update("plants").
		Set("status", string(p.Status)).
		Where(sq.Eq{"id": p.ID, "last_watered": formatTime(p.LastWatered)}))
	if err != nil {
		return fmt.Errorf("update plant %s status: %w", p.ID, err)
	}
	return nil
}

// WaterPlant resets the watering clock.
func (d *DB) WaterPlant(ctx context.Context, id string, at time.Time) error {
	res, err := execBuilt(ctx, d.db, d.psql.Update("plants").
		Set("last_watered", formatTime(at)).
		Set("status", string(domain.PlantHealthy)).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("water plant %s: %w", id, err)
	}
	return requireRow(res, domain.ErrPlantNotFound)
}

// DeletePlant removes a plant.
func (d *DB) DeletePlant(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM plants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plant %s: %w", id, err)
	}
	return requireRow(res, domain.ErrPlantNotFound)
}

// SetActivePlant makes id the only active plant.
func (d *DB) SetActivePlant(ctx context.Context, id string) error {
	return d.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM plants WHERE id = ?`, id); err != nil {
			return fmt.Errorf("find plant %s: %w", id, err)
		}
		if exists == 0 {
			return fmt.Errorf("activate plant %s: %w", id, domain.ErrPlantNotFound)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE plants SET is_active = (id = ?)`, id); err != nil {
			return fmt.Errorf("activate plant %s: %w", id, err)
		}
		return nil
	})
}

// PurchasePlant spends cost coins and inserts the plant in one transaction.
func (d *DB) PurchasePlant(ctx context.Context, p domain.Plant, cost int64) (domain.AccountProgress, error) {
	var progress domain.AccountProgress
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE account_progress SET coins = coins - ?, updated_at = ? WHERE id = 1 AND coins >= ?`,
			cost, formatTime(time.Now()), cost)
		if err != nil {
			return fmt.Errorf("spend coins: %w", err)
		}
		if err := requireRow(res, domain.ErrInsufficientCoins); err != nil {
			return err
		}

		values := plantValues(p)
		values["id"] = p.ID
		if _, err := execBuilt(ctx, tx, d.psql.Insert("plants").SetMap(values)); err != nil {
			return fmt.Errorf("insert plant: %w", err)
		}
		if p.IsActive {
			if _, err := tx.ExecContext(ctx, `UPDATE plants SET is_active = (id = ?)`, p.ID); err != nil {
				return fmt.Errorf("activate plant: %w", err)
			}
		}

		var row progressRow
		if err := tx.GetContext(ctx, &row,
			`SELECT total_xp, level, coins, updated_at FROM account_progress WHERE id = 1`); err != nil {
			return fmt.Errorf("read progress: %w", err)
		}
		progress, err = row.toDomain()
		return err
	})
	return progress, err
}

// requireRow turns a zero-row result into target.
func requireRow(res sql.Result, target error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return target
	}
	return nil
}

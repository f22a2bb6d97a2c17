package domain

import "time"

// PlantStatus is the watering health of a plant.
type PlantStatus string

const (
	PlantHealthy PlantStatus = "healthy"
	PlantThirsty PlantStatus = "thirsty"
	PlantWilting PlantStatus = "wilting"
	PlantDead    PlantStatus = "dead"
)

// PlantSpecies is immutable catalog data.
type PlantSpecies struct {
	ID                string  `json:"id" db:"id"`
	Name              string  `json:"name" db:"name"`
	GrowthRate        float64 `json:"growth_rate" db:"growth_rate"`
	MaxLevel          int     `json:"max_level" db:"max_level"`
	WaterIntervalDays int     `json:"water_interval_days" db:"water_interval_days"`
	XPBoostPercentage float64 `json:"xp_boost_percentage" db:"xp_boost_percentage"` // fraction: 0.05 = 5%
	Cost              int64   `json:"cost" db:"cost"`
}

// Plant is an owned plant. CurrentLevel never decreases.
type Plant struct {
	ID                     string      `json:"id"`
	SpeciesID              string      `json:"species_id"`
	Name                   string      `json:"name"`
	CurrentLevel           int         `json:"current_level"`
	ReadingDaysCount       int         `json:"reading_days_count"`
	LastReadingDayRecorded *time.Time  `json:"last_reading_day_recorded,omitempty"`
	LastWatered            time.Time   `json:"last_watered"`
	PlantedAt              time.Time   `json:"planted_at"`
	Status                 PlantStatus `json:"status"`
	IsActive               bool        `json:"is_active"`
}

// OwnedPlant pairs a plant with its species.
type OwnedPlant struct {
	Plant   Plant        `json:"plant"`
	Species PlantSpecies `json:"species"`
}

// PlantView is a plant with freshly evaluated health.
type PlantView struct {
	OwnedPlant
	NeedsWateringSoon    bool    `json:"needs_watering_soon"`
	DaysUntilWaterNeeded float64 `json:"days_until_water_needed"`
	BoostPercentage      float64 `json:"boost_percentage"`
}

package progression

import (
	"time"

	"github.com/readgarden/readgarden/internal/domain"
)

// wateringSoonWindow is how close to the Thirsty boundary a plant is
// reported as needing water soon.
const wateringSoonWindow = 6 * time.Hour

// PlantStatus maps time since last watering onto a health state.
//
//	Δ < I            Healthy
//	I ≤ Δ < 1.5·I    Thirsty
//	1.5·I ≤ Δ < 2·I  Wilting
//	Δ ≥ 2·I          Dead
func PlantStatus(lastWatered time.Time, intervalDays int, now time.Time) domain.PlantStatus {
	elapsed := now.Sub(lastWatered)
	interval := intervalDuration(intervalDays)

	switch {
	case elapsed < interval:
		return domain.PlantHealthy
	case elapsed < interval*3/2:
		return domain.PlantThirsty
	case elapsed < interval*2:
		return domain.PlantWilting
	default:
		return domain.PlantDead
	}
}

// NeedsWateringSoon reports whether the plant is within six hours of
// turning Thirsty.
func NeedsWateringSoon(lastWatered time.Time, intervalDays int, now time.Time) bool {
	elapsed := now.Sub(lastWatered)
	interval := intervalDuration(intervalDays)
	return elapsed >= interval-wateringSoonWindow && elapsed < interval
}

// DaysUntilWaterNeeded returns max(0, interval − Δ) in fractional days.
func DaysUntilWaterNeeded(lastWatered time.Time, intervalDays int, now time.Time) float64 {
	remaining := intervalDuration(intervalDays) - now.Sub(lastWatered)
	if remaining <= 0 {
		return 0
	}
	return remaining.Hours() / 24
}

// PlantBoost returns one plant's XP boost fraction:
// base + level·(base/maxLevel). Dead plants contribute nothing.
func PlantBoost(p domain.OwnedPlant, now time.Time) float64 {
	if PlantStatus(p.Plant.LastWatered, p.Species.WaterIntervalDays, now) == domain.PlantDead {
		return 0
	}
	base := p.Species.XPBoostPercentage
	if base <= 0 {
		return 0
	}
	maxLevel := p.Species.MaxLevel
	if maxLevel < 1 {
		maxLevel = 1
	}
	return base + float64(p.Plant.CurrentLevel)*(base/float64(maxLevel))
}

// TotalPlantBoost sums PlantBoost over every owned plant.
func TotalPlantBoost(plants []domain.OwnedPlant, now time.Time) float64 {
	var total float64
	for _, p := range plants {
		total += PlantBoost(p, now)
	}
	return total
}

// ViewPlant evaluates a plant's health at now.
func ViewPlant(p domain.OwnedPlant, now time.Time) domain.PlantView {
	interval := p.Species.WaterIntervalDays
	p.Plant.Status = PlantStatus(p.Plant.LastWatered, interval, now)
	return domain.PlantView{
		OwnedPlant:           p,
		NeedsWateringSoon:    NeedsWateringSoon(p.Plant.LastWatered, interval, now),
		DaysUntilWaterNeeded: DaysUntilWaterNeeded(p.Plant.LastWatered, interval, now),
		BoostPercentage:      PlantBoost(p, now),
	}
}

func intervalDuration(days int) time.Duration {
	if days < 1 {
		days = 1
	}
	return time.Duration(days) * 24 * time.Hour
}

package progression

import (
	"math"
	"time"

	"github.com/readgarden/readgarden/internal/domain"
)

// MinReadingDayMinutes is the shortest session that credits a reading day.
const MinReadingDayMinutes = 15

// readingDaysPerLevel scales growth: a plant gains a level every
// readingDaysPerLevel/growthRate reading days.
const readingDaysPerLevel = 3.0

// GrowthOutcome reports what RecordReadingDay did.
type GrowthOutcome struct {
	Credited  bool
	LeveledUp bool
	OldLevel  int
	NewLevel  int
}

// RecordReadingDay credits sessionDate to the plant as a reading day.
// At most one day is credited per calendar date; short sessions and dead
// plants earn nothing. The plant level never decreases.
func RecordReadingDay(p domain.OwnedPlant, sessionDate time.Time, minutes int, now time.Time) (domain.Plant, GrowthOutcome) {
	plant := p.Plant
	out := GrowthOutcome{OldLevel: plant.CurrentLevel, NewLevel: plant.CurrentLevel}

	if minutes < MinReadingDayMinutes {
		return plant, out
	}
	if PlantStatus(plant.LastWatered, p.Species.WaterIntervalDays, now) == domain.PlantDead {
		return plant, out
	}
	if plant.LastReadingDayRecorded != nil && domain.SameDate(*plant.LastReadingDayRecorded, sessionDate) {
		return plant, out
	}

	day := domain.DateOf(sessionDate)
	plant.ReadingDaysCount++
	plant.LastReadingDayRecorded = &day
	out.Credited = true

	candidate := GrowthLevel(plant.ReadingDaysCount, p.Species)
	if candidate > plant.CurrentLevel {
		plant.CurrentLevel = candidate
	}
	if plant.CurrentLevel < 1 {
		plant.CurrentLevel = 1
	}
	out.NewLevel = plant.CurrentLevel
	out.LeveledUp = out.NewLevel > out.OldLevel
	return plant, out
}

// GrowthLevel is min(maxLevel, floor(days·growthRate/3)+1).
func GrowthLevel(readingDays int, s domain.PlantSpecies) int {
	level := int(math.Floor(float64(readingDays)*s.GrowthRate/readingDaysPerLevel)) + 1
	if s.MaxLevel >= 1 && level > s.MaxLevel {
		level = s.MaxLevel
	}
	if level < 1 {
		level = 1
	}
	return level
}

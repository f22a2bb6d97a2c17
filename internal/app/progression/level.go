package progression

import (
	"math"

	"github.com/readgarden/readgarden/internal/domain"
)

// MaxAccountLevel bounds the account level search.
const MaxAccountLevel = 1000

// maxPlantLevelCost keeps float-to-int conversion of the exponential curve in range.
const maxPlantLevelCost = 1 << 50

// ─── Account Curve (quadratic) ──────────────────────────────────────────────
// Climbing into level n costs 100·(n-1)²: L2=100, L3=400, L4=900.
// Cumulative: L1=0, L2=100, L3=500, L4=1400.

// XPForLevel returns the XP needed to climb from level-1 into level.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	return 100 * n * n
}

// TotalXPForLevel returns the cumulative XP required to reach level.
func TotalXPForLevel(level int) int64 {
	if level > MaxAccountLevel {
		level = MaxAccountLevel
	}
	var total int64
	for n := 2; n <= level; n++ {
		total += XPForLevel(n)
	}
	return total
}

// LevelFromXP returns the account level for a cumulative XP amount.
// Accumulates level costs until the next one would exceed xp.
func LevelFromXP(xp int64) int {
	level := 1
	var spent int64
	for level < MaxAccountLevel {
		next := XPForLevel(level + 1)
		if spent+next > xp {
			return level
		}
		spent += next
		level++
	}
	return MaxAccountLevel
}

// DescribeLevel places xp on the account curve.
func DescribeLevel(xp int64) domain.LevelInfo {
	if xp < 0 {
		xp = 0
	}
	level := LevelFromXP(xp)
	into := xp - TotalXPForLevel(level)
	var next int64
	if level < MaxAccountLevel {
		next = XPForLevel(level + 1)
	}
	return levelInfo(level, into, next)
}

// XPToNextLevel returns XP remaining until the next account level.
func XPToNextLevel(xp int64) int64 {
	return DescribeLevel(xp).XPToNextLevel
}

// ProgressPct returns progress through the current account level (0–100).
func ProgressPct(xp int64) float64 {
	return DescribeLevel(xp).ProgressPct
}

// ─── Plant Curve (exponential) ──────────────────────────────────────────────

// PlantCurve is the per-species leveling curve:
// cost(L) = floor(100·1.5^(L-1) / growthRate), clamped to MaxLevel.
type PlantCurve struct {
	GrowthRate float64
	MaxLevel   int
}

// CurveFor returns the plant curve of a species.
func CurveFor(s domain.PlantSpecies) PlantCurve {
	return PlantCurve{GrowthRate: s.GrowthRate, MaxLevel: s.MaxLevel}
}

func (c PlantCurve) maxLevel() int {
	if c.MaxLevel < 1 {
		return 1
	}
	return c.MaxLevel
}

// XPForLevel returns the XP needed to climb into level.
func (c PlantCurve) XPForLevel(level int) int64 {
	if level <= 1 || c.GrowthRate <= 0 {
		return 0
	}
	cost := math.Floor(100 * math.Pow(1.5, float64(level-1)) / c.GrowthRate)
	if cost > maxPlantLevelCost {
		return maxPlantLevelCost
	}
	return int64(cost)
}

// TotalXPForLevel returns the cumulative XP required to reach level.
func (c PlantCurve) TotalXPForLevel(level int) int64 {
	if level > c.maxLevel() {
		level = c.maxLevel()
	}
	var total int64
	for n := 2; n <= level; n++ {
		total += c.XPForLevel(n)
	}
	return total
}

// LevelFromXP returns the plant level for a cumulative XP amount.
func (c PlantCurve) LevelFromXP(xp int64) int {
	level := 1
	var spent int64
	for level < c.maxLevel() {
		next := c.XPForLevel(level + 1)
		if spent+next > xp {
			return level
		}
		spent += next
		level++
	}
	return c.maxLevel()
}

// Describe places xp on the plant curve.
func (c PlantCurve) Describe(xp int64) domain.LevelInfo {
	if xp < 0 {
		xp = 0
	}
	level := c.LevelFromXP(xp)
	into := xp - c.TotalXPForLevel(level)
	var next int64
	if level < c.maxLevel() {
		next = c.XPForLevel(level + 1)
	}
	return levelInfo(level, into, next)
}

// XPToNextLevel returns XP remaining until the next plant level.
func (c PlantCurve) XPToNextLevel(xp int64) int64 {
	return c.Describe(xp).XPToNextLevel
}

// ProgressPct returns progress through the current plant level (0–100).
func (c PlantCurve) ProgressPct(xp int64) float64 {
	return c.Describe(xp).ProgressPct
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func levelInfo(level int, into, next int64) domain.LevelInfo {
	remaining := next - into
	if remaining < 0 || next == 0 {
		remaining = 0
	}
	return domain.LevelInfo{
		Level:          level,
		CurrentLevelXP: into,
		NextLevelXP:    next,
		XPToNextLevel:  remaining,
		ProgressPct:    progressPct(into, next),
	}
}

// progressPct is clamp(100·into/needed, 0, 100); 100 when needed is 0.
func progressPct(into, needed int64) float64 {
	if needed <= 0 {
		return 100.0
	}
	pct := float64(into) / float64(needed) * 100.0
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

package progression

import (
	"math"

	"github.com/readgarden/readgarden/internal/domain"
)

// coinsPerLevel is multiplied by each level gained to get the coin reward.
const coinsPerLevel = 50

// XPTable holds the tunable session XP rates. Loaded from the
// [progression] section of config.toml.
type XPTable struct {
	MinuteRate         int64 `toml:"minute_rate"`
	PageRate           int64 `toml:"page_rate"`
	LongSessionMinutes int   `toml:"long_session_minutes"`
	LongSessionBonus   int64 `toml:"long_session_bonus"`
	StreakBonus        int64 `toml:"streak_bonus"`
	BookCompletionXP   int64 `toml:"book_completion_xp"`
}

// DefaultXPTable returns the shipped XP rates.
func DefaultXPTable() XPTable {
	return XPTable{
		MinuteRate:         1,
		PageRate:           1,
		LongSessionMinutes: 60,
		LongSessionBonus:   25,
		StreakBonus:        10,
		BookCompletionXP:   100,
	}
}

// SessionBreakdown computes the four additive base XP components.
func (t XPTable) SessionBreakdown(minutes int, pagesRead *int, hasStreak bool) domain.XPBreakdown {
	var b domain.XPBreakdown
	if minutes > 0 {
		b.MinutesXP = int64(minutes) * t.MinuteRate
	}
	if pagesRead != nil && *pagesRead > 0 {
		b.PagesXP = int64(*pagesRead) * t.PageRate
	}
	if t.LongSessionMinutes > 0 && minutes >= t.LongSessionMinutes {
		b.LongSessionBonus = t.LongSessionBonus
	}
	if hasStreak {
		b.StreakBonus = t.StreakBonus
	}
	return b
}

// BoostXP applies a plant boost fraction: round(base·(1+boost)).
func BoostXP(base int64, boost float64) int64 {
	if boost <= 0 {
		return base
	}
	return int64(math.Round(float64(base) * (1 + boost)))
}

// LevelUpCoins sums level·50 for every level in (oldLevel, newLevel].
func LevelUpCoins(oldLevel, newLevel int) int64 {
	var coins int64
	for level := oldLevel + 1; level <= newLevel; level++ {
		coins += int64(level) * coinsPerLevel
	}
	return coins
}

// Package domain holds the pure types of the reading tracker.
// The progression engine turns reading activity into XP, levels, coins,
// plant growth and goal completion; the types here carry no infrastructure.
package domain

import "time"

// ─── Account Progress ───────────────────────────────────────────────────────

// AccountProgress is the single per-user progression record.
// Level is derived from TotalXP and is never authoritative on its own.
type AccountProgress struct {
	TotalXP   int64     `json:"total_xp"`
	Level     int       `json:"level"`
	Coins     int64     `json:"coins"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LevelInfo describes where a cumulative XP total sits on a level curve.
type LevelInfo struct {
	Level          int     `json:"level"`
	CurrentLevelXP int64   `json:"current_level_xp"` // XP earned into the current level
	NextLevelXP    int64   `json:"next_level_xp"`    // cost of the next level, 0 at the cap
	XPToNextLevel  int64   `json:"xp_to_next_level"`
	ProgressPct    float64 `json:"progress_pct"`
}

// ─── Award Results ──────────────────────────────────────────────────────────

// XPSource categorizes how XP was earned.
type XPSource string

const (
	XPReadingSession XPSource = "reading_session"
	XPBookCompleted  XPSource = "book_completed"
)

// XPBreakdown lists the additive components of a session's base XP.
type XPBreakdown struct {
	MinutesXP        int64 `json:"minutes_xp"`
	PagesXP          int64 `json:"pages_xp"`
	LongSessionBonus int64 `json:"long_session_bonus"`
	StreakBonus      int64 `json:"streak_bonus"`
}

// Total returns the sum of all components.
func (b XPBreakdown) Total() int64 {
	return b.MinutesXP + b.PagesXP + b.LongSessionBonus + b.StreakBonus
}

// LevelUp is reported when an award crosses one or more level boundaries.
type LevelUp struct {
	OldLevel      int   `json:"old_level"`
	NewLevel      int   `json:"new_level"`
	CoinsAwarded  int64 `json:"coins_awarded"`
	NewTotalCoins int64 `json:"new_total_coins"`
}

// ProgressionResult is returned by every XP award.
type ProgressionResult struct {
	Source               XPSource     `json:"source"`
	XPEarned             int64        `json:"xp_earned"`
	BaseXP               int64        `json:"base_xp"`
	Breakdown            *XPBreakdown `json:"breakdown,omitempty"` // nil for book completion
	PlantBoostPercentage float64      `json:"plant_boost_percentage"`
	BonusXP              int64        `json:"bonus_xp"`
	NewTotalXP           int64        `json:"new_total_xp"`
	LevelUp              *LevelUp     `json:"level_up,omitempty"`
}

// LeveledUp reports whether the award crossed a level boundary.
func (r ProgressionResult) LeveledUp() bool { return r.LevelUp != nil }

// AwardClaim names what an award pays for. A claim is spent by the same
// write that pays the award, so each session or book is paid at most once.
// The zero claim pays unconditionally.
type AwardClaim struct {
	Session     *ReadingSession // finalized with its XPEarned
	BookID      string          // marked completed at CompletedAt
	CompletedAt time.Time
}

// AwardUpdate is the change an award makes to the account record.
type AwardUpdate struct {
	TotalXP    int64
	Level      int
	CoinsDelta int64
}

// Streak is the current run of consecutive reading days.
type Streak struct {
	CurrentDays int       `json:"current_days"`
	LongestDays int       `json:"longest_days"`
	LastDate    time.Time `json:"last_date"`
}

// Active reports whether the streak qualifies for the streak bonus.
func (s Streak) Active() bool {
	return s.CurrentDays >= 2
}

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/readgarden/readgarden/internal/daemon"
	"github.com/readgarden/readgarden/internal/domain"
)

func init() {
	rootCmd.AddCommand(progressCmd)
}

var progressCmd = &cobra.Command{
	Use:     "progress",
	Aliases: []string{"status"},
	Short:   "Show level, XP, coins and reading streak",
	RunE:    runProgress,
}

func runProgress(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := contextOf(cmd)
	p, info, err := d.Engine.Progress(ctx)
	if err != nil {
		return err
	}
	streak, err := d.Engine.Streak(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Level %d  %s\n", info.Level, levelBar(info))
	fmt.Printf("  XP:     %d total\n", p.TotalXP)
	fmt.Printf("  Coins:  %d\n", p.Coins)
	fmt.Printf("  Streak: %s\n", streakLine(streak))
	return nil
}

// ─── Level Bar ──────────────────────────────────────────────────────────────
// Shows: [=================>............]  58% | 290 / 500 XP

const barWidth = 30 // Characters for the progress bar

// levelBar renders progress through the current level.
func levelBar(info domain.LevelInfo) string {
	if info.NextLevelXP == 0 {
		return "[" + strings.Repeat("=", barWidth) + "] max level"
	}
	return fmt.Sprintf("%s %3.0f%% | %d / %d XP",
		renderBar(info.ProgressPct), info.ProgressPct, info.CurrentLevelXP, info.NextLevelXP)
}

// renderBar builds [=======>............] for a 0-100 percentage.
func renderBar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	var bar string
	if filled == barWidth {
		bar = strings.Repeat("=", filled)
	} else if filled > 0 {
		bar = strings.Repeat("=", filled-1) + ">" + strings.Repeat(".", empty)
	} else {
		bar = strings.Repeat(".", barWidth)
	}
	return "[" + bar + "]"
}

func streakLine(s domain.Streak) string {
	if s.CurrentDays == 0 {
		return fmt.Sprintf("none (longest %d days)", s.LongestDays)
	}
	line := fmt.Sprintf("%d days (longest %d)", s.CurrentDays, s.LongestDays)
	if s.Active() {
		line += ", bonus active"
	}
	return line
}

// printResult reports an XP award.
func printResult(w io.Writer, r domain.ProgressionResult) {
	fmt.Fprintf(w, "+%d XP", r.XPEarned)
	if r.BonusXP > 0 {
		fmt.Fprintf(w, " (incl. +%d plant boost)", r.BonusXP)
	}
	fmt.Fprintf(w, ", %d total\n", r.NewTotalXP)
	if r.LeveledUp() {
		fmt.Fprintf(w, "Level up! %d -> %d, +%d coins (%d total)\n",
			r.LevelUp.OldLevel, r.LevelUp.NewLevel, r.LevelUp.CoinsAwarded, r.LevelUp.NewTotalCoins)
	}
}

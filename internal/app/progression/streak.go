package progression

import (
	"sort"
	"time"

	"github.com/readgarden/readgarden/internal/domain"
)

// ReadingStreak derives the reading streak as of asOf from session history.
// A day counts if any finalized session with positive minutes started on it.
// The current streak is the run of consecutive days ending on asOf, or on
// the day before when nothing was read yet on asOf. Gaps reset it silently.
func ReadingStreak(sessions []domain.ReadingSession, asOf time.Time) domain.Streak {
	days := make(map[string]time.Time)
	for _, s := range sessions {
		if !s.IsFinalized() || s.Minutes <= 0 {
			continue
		}
		d := domain.DateOf(s.StartedAt.In(asOf.Location()))
		if d.After(asOf) {
			continue
		}
		days[dayKey(d)] = d
	}

	var streak domain.Streak
	if len(days) == 0 {
		return streak
	}

	sorted := make([]time.Time, 0, len(days))
	for _, d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	// Longest run over the whole history.
	run := 0
	var prev time.Time
	for i, d := range sorted {
		if i > 0 && domain.SameDate(prev.AddDate(0, 0, 1), d) {
			run++
		} else {
			run = 1
		}
		if run > streak.LongestDays {
			streak.LongestDays = run
		}
		prev = d
	}
	streak.LastDate = sorted[len(sorted)-1]

	cursor := domain.DateOf(asOf)
	if _, ok := days[dayKey(cursor)]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
	}
	for {
		if _, ok := days[dayKey(cursor)]; !ok {
			break
		}
		streak.CurrentDays++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

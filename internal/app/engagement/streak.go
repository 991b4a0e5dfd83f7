package engagement

import (
	"time"

	"github.com/quill-writing/quill/internal/domain"
)

// Streak bonus: 20 XP base plus 5 XP per streak day, capped at the 7-day value.
const (
	StreakBonusBase    = 20
	StreakBonusPerDay  = 5
	StreakBonusCapDays = 7
)

// StreakBonus returns the daily XP bonus for a streak of the given length.
func StreakBonus(currentStreak int) int64 {
	days := currentStreak
	if days > StreakBonusCapDays {
		days = StreakBonusCapDays
	}
	return int64(StreakBonusBase + days*StreakBonusPerDay)
}

// DaysBetween returns the number of calendar-day boundaries between from and
// to in loc. Wall-clock hours are ignored: 23:59 to 00:01 is one day.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	fy, fm, fd := from.In(loc).Date()
	ty, tm, td := to.In(loc).Date()
	// Compare as UTC midnights so DST transitions never produce 23h or 25h days.
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// AdvanceStreak credits a day of activity at now.
// Same calendar day: unchanged, credited=false. Next day: +1. Gap: reset to 1.
// A fresh record's lastActivityDate is its creation time, so the first credit
// lands on the day after it was created. Freezes are carried on the record
// but not consumed here.
func AdvanceStreak(s domain.Streak, now time.Time, loc *time.Location) (domain.Streak, bool) {
	diff := DaysBetween(s.LastActivityDate, now, loc)

	switch {
	case diff <= 0:
		// Same day, or a clock that went backwards.
		return s, false
	case diff == 1:
		s.CurrentStreak++
	default:
		s.CurrentStreak = 1
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastActivityDate = now
	s.IsAtRisk = false
	return s, true
}

// AtRisk reports whether a running streak has no activity yet today.
func AtRisk(s domain.Streak, now time.Time, loc *time.Location) bool {
	return s.CurrentStreak > 0 && DaysBetween(s.LastActivityDate, now, loc) >= 1
}

package cli

import (
	"fmt"
	"strings"

	"github.com/quill-writing/quill/internal/domain"
)

// ─── Level Bar ──────────────────────────────────────────────────────────────
// Renders progress toward the next level:
//   Level 3 [========>.....................]  32% | 164 / 519 XP

const barWidth = 30 // Characters for the progress bar

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

	switch {
	case filled == barWidth:
		return "[" + strings.Repeat("=", filled) + "]"
	case filled > 0:
		return "[" + strings.Repeat("=", filled-1) + ">" + strings.Repeat(".", empty) + "]"
	default:
		return "[" + strings.Repeat(".", barWidth) + "]"
	}
}

func renderLevel(l domain.UserLevel) string {
	pct := l.ProgressPct()
	return fmt.Sprintf("Level %d %s %3.0f%% | %d / %d XP",
		l.Level, renderBar(pct), pct, l.CurrentXP, l.XPForNextLevel)
}

func renderStreak(s domain.Streak) string {
	line := fmt.Sprintf("%d day streak (longest %d, %d freezes)",
		s.CurrentStreak, s.LongestStreak, s.StreakFreezeAvailable)
	if s.IsAtRisk {
		line += " - write today to keep it"
	}
	return line
}

package engagement

import (
	"math"

	"github.com/quill-writing/quill/internal/domain"
)

// XPForLevel returns the XP it costs to climb from level-1 to level:
// floor(100 * level^1.5). Level 1 is the starting level and costs nothing.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(math.Floor(100 * math.Pow(float64(level), 1.5)))
}

// CumulativeXPForLevel returns the total XP at which level is first reached.
func CumulativeXPForLevel(level int) int64 {
	var total int64
	for l := 2; l <= level; l++ {
		total += XPForLevel(l)
	}
	return total
}

// LevelFromTotalXP walks levels upward while the next level is fully paid
// for. There is no level cap; the cost grows superlinearly so the walk stays short.
func LevelFromTotalXP(totalXP int64) domain.UserLevel {
	if totalXP < 0 {
		totalXP = 0
	}

	level := 1
	var spent int64
	for {
		need := XPForLevel(level + 1)
		if need > totalXP-spent {
			break
		}
		spent += need
		level++
	}

	return domain.UserLevel{
		Level:          level,
		CurrentXP:      totalXP - spent,
		XPForNextLevel: XPForLevel(level + 1),
		TotalXP:        totalXP,
	}
}

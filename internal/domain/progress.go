// Package domain holds the progress record and the rules-free types the
// gamification engine works on: levels, XP log, badges, streak and writing stats.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ─── Level / XP Types ───────────────────────────────────────────────────────

// UserLevel is derived from TotalXP by the leveling formula. Never set it by hand.
type UserLevel struct {
	Level          int   `json:"level"`
	CurrentXP      int64 `json:"currentXP"`
	XPForNextLevel int64 `json:"xpForNextLevel"`
	TotalXP        int64 `json:"totalXP"`
}

// ProgressPct returns progress toward the next level (0.0–100.0).
func (l UserLevel) ProgressPct() float64 {
	if l.XPForNextLevel <= 0 {
		return 100.0
	}
	pct := float64(l.CurrentXP) / float64(l.XPForNextLevel) * 100.0
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

// XPSource categorizes how XP was earned.
type XPSource string

const (
	XPWordsWritten      XPSource = "words_written"
	XPPromptCompleted   XPSource = "prompt_completed"
	XPDailyStreak       XPSource = "daily_streak"
	XPMilestone         XPSource = "milestone"
	XPCommunityFeedback XPSource = "community_feedback"
	XPTextPublished     XPSource = "text_published"
)

// Valid reports whether s is one of the known sources.
func (s XPSource) Valid() bool {
	switch s {
	case XPWordsWritten, XPPromptCompleted, XPDailyStreak,
		XPMilestone, XPCommunityFeedback, XPTextPublished:
		return true
	}
	return false
}

// XPGain is one append-only entry of the XP log.
type XPGain struct {
	Amount    int64     `json:"amount"`
	Source    XPSource  `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Difficulty of a writing prompt.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty accepts the lowercase difficulty names.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
}

// ─── Badge Types ────────────────────────────────────────────────────────────

// BadgeCategory groups badges by theme.
type BadgeCategory string

const (
	CatMilestone   BadgeCategory = "milestone"
	CatStreak      BadgeCategory = "streak"
	CatExploration BadgeCategory = "exploration"
	CatDedication  BadgeCategory = "dedication"
	CatCommunity   BadgeCategory = "community"
	CatSpecial     BadgeCategory = "special"
)

// BadgeRarity is cosmetic; it never affects unlock logic.
type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "common"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// RequirementKind tags the BadgeRequirement variant.
type RequirementKind string

const (
	ReqWordsWritten       RequirementKind = "words_written"
	ReqTextsWritten       RequirementKind = "texts_written"
	ReqStreakDays         RequirementKind = "streak_days"
	ReqCategoriesExplored RequirementKind = "categories_explored"
	ReqPromptsCompleted   RequirementKind = "prompts_completed"
	ReqFeedbackGiven      RequirementKind = "feedback_given"
	ReqSpecial            RequirementKind = "special"
)

// BadgeRequirement is a tagged variant. Count is used by every kind except
// ReqSpecial, which uses SpecialID.
type BadgeRequirement struct {
	Kind      RequirementKind `json:"type"`
	Count     int64           `json:"count,omitempty"`
	SpecialID string          `json:"id,omitempty"`
}

// Badge is an immutable catalog entry.
type Badge struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    BadgeCategory    `json:"category"`
	Rarity      BadgeRarity      `json:"rarity"`
	Icon        string           `json:"icon"`
	Requirement BadgeRequirement `json:"requirement"`
	XPReward    int64            `json:"xpReward"`
}

// UserBadge records when a badge was earned and whether the UI has shown it.
type UserBadge struct {
	BadgeID    string    `json:"badgeId"`
	UnlockedAt time.Time `json:"unlockedAt"`
	Seen       bool      `json:"seen"`
}

// ─── Streak Types ───────────────────────────────────────────────────────────

// Streak tracks consecutive calendar days with writing activity.
// LongestStreak >= CurrentStreak at all times.
type Streak struct {
	CurrentStreak         int       `json:"currentStreak"`
	LongestStreak         int       `json:"longestStreak"`
	LastActivityDate      time.Time `json:"lastActivityDate"`
	StreakFreezeAvailable int       `json:"streakFreezeAvailable"`
	StreakFreezeUsed      int       `json:"streakFreezeUsed"`
	IsAtRisk              bool      `json:"isAtRisk"`
}

// ─── Writing Stats ──────────────────────────────────────────────────────────

// WordActivity is one timestamped word contribution, kept for windowed counters.
type WordActivity struct {
	At       time.Time `json:"at"`
	Words    int64     `json:"words"`
	Category string    `json:"category,omitempty"`
}

// WritingStats holds running totals. The Total* fields and the per-category
// maps never decrease; the windowed fields are recomputed from Activity.
type WritingStats struct {
	TotalWords       int64 `json:"totalWords"`
	TotalTexts       int64 `json:"totalTexts"`
	TotalPrompts     int64 `json:"totalPrompts"`
	TotalTimeWriting int64 `json:"totalTimeWriting"` // minutes
	TotalFeedback    int64 `json:"totalFeedback"`

	WordsByCategory map[string]int64 `json:"wordsByCategory"`
	TextsByCategory map[string]int64 `json:"textsByCategory"`

	WordsThisWeek  int64 `json:"wordsThisWeek"`
	WordsThisMonth int64 `json:"wordsThisMonth"`
	WordsToday     int64 `json:"wordsToday"`

	AverageWordsPerSession float64 `json:"averageWordsPerSession"`
	AverageWordsPerDay     float64 `json:"averageWordsPerDay"`

	ActiveDays         int       `json:"activeDays"`
	Sessions           int64     `json:"sessions"`
	MostProductiveHour int       `json:"mostProductiveHour"`
	WordsByHour        [24]int64 `json:"wordsByHour"`

	Activity []WordActivity `json:"activity"`
}

// ─── Aggregate Root ─────────────────────────────────────────────────────────

// UserProgress is the single persisted record per user.
type UserProgress struct {
	UserID    string       `json:"userId"`
	Level     UserLevel    `json:"level"`
	XPHistory []XPGain     `json:"xpHistory"`
	Badges    []UserBadge  `json:"badges"`
	Streak    Streak       `json:"streak"`
	Stats     WritingStats `json:"stats"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// HasBadge reports whether id is in the unlocked set.
func (p *UserProgress) HasBadge(id string) bool {
	return p.UserBadge(id) != nil
}

// UserBadge returns the unlocked badge entry for id, or nil.
func (p *UserProgress) UserBadge(id string) *UserBadge {
	for i := range p.Badges {
		if p.Badges[i].BadgeID == id {
			return &p.Badges[i]
		}
	}
	return nil
}

// Validate checks the fields a stored record must carry. Nil maps are
// repaired in place since an empty object and a missing one mean the same.
func (p *UserProgress) Validate() error {
	switch {
	case p.UserID == "":
		return fmt.Errorf("%w: missing userId", ErrMalformedRecord)
	case p.CreatedAt.IsZero():
		return fmt.Errorf("%w: missing createdAt", ErrMalformedRecord)
	case p.Level.TotalXP < 0:
		return fmt.Errorf("%w: negative totalXP", ErrMalformedRecord)
	case p.Streak.CurrentStreak < 0 || p.Streak.LongestStreak < 0:
		return fmt.Errorf("%w: negative streak", ErrMalformedRecord)
	case p.Stats.TotalWords < 0 || p.Stats.TotalTexts < 0 || p.Stats.TotalPrompts < 0:
		return fmt.Errorf("%w: negative counters", ErrMalformedRecord)
	}

	seen := make(map[string]bool, len(p.Badges))
	for _, b := range p.Badges {
		if b.BadgeID == "" {
			return fmt.Errorf("%w: badge without id", ErrMalformedRecord)
		}
		if seen[b.BadgeID] {
			return fmt.Errorf("%w: duplicate badge %q", ErrMalformedRecord, b.BadgeID)
		}
		seen[b.BadgeID] = true
	}

	if p.Stats.WordsByCategory == nil {
		p.Stats.WordsByCategory = map[string]int64{}
	}
	if p.Stats.TextsByCategory == nil {
		p.Stats.TextsByCategory = map[string]int64{}
	}
	return nil
}

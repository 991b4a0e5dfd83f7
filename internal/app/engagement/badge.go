package engagement

import (
	"fmt"

	"github.com/quill-writing/quill/internal/domain"
)

// EarlyAdopterBadge is granted when a record is created.
const EarlyAdopterBadge = "early_adopter"

// Catalog is the immutable, ordered badge registry. Catalog order is the
// order in which a batch of unlocks is reported.
type Catalog struct {
	badges []domain.Badge
	byID   map[string]int
}

// NewCatalog builds a catalog, rejecting empty or duplicate ids.
func NewCatalog(badges []domain.Badge) (*Catalog, error) {
	c := &Catalog{
		badges: make([]domain.Badge, len(badges)),
		byID:   make(map[string]int, len(badges)),
	}
	copy(c.badges, badges)
	for i, b := range c.badges {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: badge %d has no id", domain.ErrInvalidInput, i)
		}
		if _, dup := c.byID[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate badge id %q", domain.ErrInvalidInput, b.ID)
		}
		if b.XPReward < 0 {
			return nil, fmt.Errorf("%w: badge %q has negative reward", domain.ErrInvalidInput, b.ID)
		}
		c.byID[b.ID] = i
	}
	return c, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(AllBadges())
	if err != nil {
		panic(err) // built-in data; covered by tests
	}
	return c
}

// All returns the badges in catalog order.
func (c *Catalog) All() []domain.Badge {
	out := make([]domain.Badge, len(c.badges))
	copy(out, c.badges)
	return out
}

// Len returns the number of badges in the catalog.
func (c *Catalog) Len() int { return len(c.badges) }

// ByID looks up a badge.
func (c *Catalog) ByID(id string) (domain.Badge, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Badge{}, false
	}
	return c.badges[i], true
}

// ByCategory returns the badges of one category in catalog order.
func (c *Catalog) ByCategory(cat domain.BadgeCategory) []domain.Badge {
	var out []domain.Badge
	for _, b := range c.badges {
		if b.Category == cat {
			out = append(out, b)
		}
	}
	return out
}

// ByRarity returns the badges of one rarity in catalog order.
func (c *Catalog) ByRarity(r domain.BadgeRarity) []domain.Badge {
	var out []domain.Badge
	for _, b := range c.badges {
		if b.Rarity == r {
			out = append(out, b)
		}
	}
	return out
}

// Satisfied evaluates a requirement against the current stats and streak.
// Special requirements are never satisfied here; they are granted explicitly.
func Satisfied(req domain.BadgeRequirement, stats domain.WritingStats, streak domain.Streak) bool {
	switch req.Kind {
	case domain.ReqWordsWritten:
		return stats.TotalWords >= req.Count
	case domain.ReqTextsWritten:
		return stats.TotalTexts >= req.Count
	case domain.ReqStreakDays:
		return int64(streak.CurrentStreak) >= req.Count
	case domain.ReqCategoriesExplored:
		return int64(exploredCategories(stats)) >= req.Count
	case domain.ReqPromptsCompleted:
		return stats.TotalPrompts >= req.Count
	case domain.ReqFeedbackGiven:
		return stats.TotalFeedback >= req.Count
	default:
		return false
	}
}

func exploredCategories(stats domain.WritingStats) int {
	n := 0
	for _, count := range stats.TextsByCategory {
		if count > 0 {
			n++
		}
	}
	return n
}

// ─── Badge Definitions ──────────────────────────────────────────────────────
// 21 badges across 6 categories. Icons are presentation keys only.

// AllBadges returns the full badge catalog in display order.
func AllBadges() []domain.Badge {
	return []domain.Badge{
		// ── Milestones (9) ─────────────────────────────────────────────
		{
			ID: "first_words", Name: "First Words", Description: "Complete your first text",
			Category: domain.CatMilestone, Rarity: domain.RarityCommon, Icon: "Sparkles",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqTextsWritten, Count: 1}, XPReward: 100,
		},
		{
			ID: "wordsmith_1k", Name: "Budding Writer", Description: "Write 1,000 words",
			Category: domain.CatMilestone, Rarity: domain.RarityCommon, Icon: "FileText",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqWordsWritten, Count: 1000}, XPReward: 200,
		},
		{
			ID: "wordsmith_5k", Name: "Dedicated Writer", Description: "Write 5,000 words",
			Category: domain.CatMilestone, Rarity: domain.RarityCommon, Icon: "BookOpen",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqWordsWritten, Count: 5000}, XPReward: 300,
		},
		{
			ID: "wordsmith_10k", Name: "Talented Writer", Description: "Write 10,000 words",
			Category: domain.CatMilestone, Rarity: domain.RarityRare, Icon: "Book",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqWordsWritten, Count: 10000}, XPReward: 500,
		},
		{
			ID: "wordsmith_50k", Name: "Prolific Writer", Description: "Write 50,000 words",
			Category: domain.CatMilestone, Rarity: domain.RarityEpic, Icon: "Library",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqWordsWritten, Count: 50000}, XPReward: 1000,
		},
		{
			ID: "wordsmith_100k", Name: "Master of Words", Description: "Write 100,000 words",
			Category: domain.CatMilestone, Rarity: domain.RarityLegendary, Icon: "Crown",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqWordsWritten, Count: 100000}, XPReward: 2000,
		},
		{
			ID: "ten_texts", Name: "Story Collector", Description: "Complete 10 texts",
			Category: domain.CatMilestone, Rarity: domain.RarityCommon, Icon: "FolderOpen",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqTextsWritten, Count: 10}, XPReward: 250,
		},
		{
			ID: "fifty_texts", Name: "Personal Library", Description: "Complete 50 texts",
			Category: domain.CatMilestone, Rarity: domain.RarityRare, Icon: "Archive",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqTextsWritten, Count: 50}, XPReward: 750,
		},
		{
			ID: "hundred_texts", Name: "Archivist", Description: "Complete 100 texts",
			Category: domain.CatMilestone, Rarity: domain.RarityEpic, Icon: "Database",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqTextsWritten, Count: 100}, XPReward: 1500,
		},

		// ── Streaks (4) ────────────────────────────────────────────────
		{
			ID: "streak_3", Name: "Habit Forming", Description: "Keep a 3-day writing streak",
			Category: domain.CatStreak, Rarity: domain.RarityCommon, Icon: "Flame",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqStreakDays, Count: 3}, XPReward: 150,
		},
		{
			ID: "streak_7", Name: "Strong Week", Description: "Keep a 7-day writing streak",
			Category: domain.CatStreak, Rarity: domain.RarityRare, Icon: "Zap",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqStreakDays, Count: 7}, XPReward: 300,
		},
		{
			ID: "streak_30", Name: "Consistency Master", Description: "Keep a 30-day writing streak",
			Category: domain.CatStreak, Rarity: domain.RarityEpic, Icon: "TrendingUp",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqStreakDays, Count: 30}, XPReward: 1000,
		},
		{
			ID: "streak_100", Name: "Unshakeable", Description: "Keep a 100-day writing streak",
			Category: domain.CatStreak, Rarity: domain.RarityLegendary, Icon: "Trophy",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqStreakDays, Count: 100}, XPReward: 3000,
		},

		// ── Exploration (1) ────────────────────────────────────────────
		{
			ID: "explorer", Name: "Literary Explorer", Description: "Complete texts in all 4 categories",
			Category: domain.CatExploration, Rarity: domain.RarityRare, Icon: "Compass",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqCategoriesExplored, Count: 4}, XPReward: 400,
		},

		// ── Dedication (4) ─────────────────────────────────────────────
		{
			ID: "prompt_beginner", Name: "Dedicated Apprentice", Description: "Complete 10 prompts",
			Category: domain.CatDedication, Rarity: domain.RarityCommon, Icon: "Target",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqPromptsCompleted, Count: 10}, XPReward: 200,
		},
		{
			ID: "prompt_intermediate", Name: "Regular Practitioner", Description: "Complete 25 prompts",
			Category: domain.CatDedication, Rarity: domain.RarityRare, Icon: "Award",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqPromptsCompleted, Count: 25}, XPReward: 500,
		},
		{
			ID: "prompt_advanced", Name: "Challenge Master", Description: "Complete 50 prompts",
			Category: domain.CatDedication, Rarity: domain.RarityEpic, Icon: "Medal",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqPromptsCompleted, Count: 50}, XPReward: 1000,
		},
		{
			ID: "prompt_master", Name: "Prompt Legend", Description: "Complete 100 prompts",
			Category: domain.CatDedication, Rarity: domain.RarityLegendary, Icon: "Star",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqPromptsCompleted, Count: 100}, XPReward: 2500,
		},

		// ── Community (3) ──────────────────────────────────────────────
		{
			ID: "helpful_reader", Name: "Helpful Reader", Description: "Give feedback on 10 texts by other writers",
			Category: domain.CatCommunity, Rarity: domain.RarityCommon, Icon: "MessageCircle",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqFeedbackGiven, Count: 10}, XPReward: 300,
		},
		{
			ID: "community_pillar", Name: "Community Pillar", Description: "Give feedback on 50 texts by other writers",
			Category: domain.CatCommunity, Rarity: domain.RarityRare, Icon: "Users",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqFeedbackGiven, Count: 50}, XPReward: 800,
		},
		{
			ID: "mentor", Name: "Mentor", Description: "Give feedback on 100 texts by other writers",
			Category: domain.CatCommunity, Rarity: domain.RarityEpic, Icon: "Heart",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqFeedbackGiven, Count: 100}, XPReward: 1500,
		},

		// ── Special (1) ────────────────────────────────────────────────
		{
			ID: EarlyAdopterBadge, Name: "Pioneer", Description: "One of the first writers on the platform",
			Category: domain.CatSpecial, Rarity: domain.RarityLegendary, Icon: "Rocket",
			Requirement: domain.BadgeRequirement{Kind: domain.ReqSpecial, SpecialID: EarlyAdopterBadge}, XPReward: 500,
		},
	}
}

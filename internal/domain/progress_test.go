package domain

import (
	"errors"
	"testing"
	"time"
)

func TestUserLevel_ProgressPct(t *testing.T) {
	tests := []struct {
		name  string
		level UserLevel
		want  float64
	}{
		{"empty", UserLevel{Level: 1, CurrentXP: 0, XPForNextLevel: 282}, 0},
		{"half", UserLevel{Level: 2, CurrentXP: 100, XPForNextLevel: 200}, 50},
		{"no next level", UserLevel{Level: 1}, 100},
		{"clamped", UserLevel{Level: 1, CurrentXP: 500, XPForNextLevel: 282}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.ProgressPct(); got != tt.want {
				t.Errorf("ProgressPct() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestXPSource_Valid(t *testing.T) {
	for _, s := range []XPSource{
		XPWordsWritten, XPPromptCompleted, XPDailyStreak,
		XPMilestone, XPCommunityFeedback, XPTextPublished,
	} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if XPSource("bribe").Valid() {
		t.Error("unknown source should be invalid")
	}
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty(" Advanced ")
	if err != nil || d != DifficultyAdvanced {
		t.Errorf("ParseDifficulty(Advanced) = %q, %v", d, err)
	}

	_, err = ParseDifficulty("expert")
	if !errors.Is(err, ErrUnknownDifficulty) {
		t.Errorf("ParseDifficulty(expert) error = %v, want ErrUnknownDifficulty", err)
	}
}

func TestUserProgress_BadgeLookup(t *testing.T) {
	p := &UserProgress{Badges: []UserBadge{{BadgeID: "first_words"}}}

	if !p.HasBadge("first_words") {
		t.Error("HasBadge(first_words) should be true")
	}
	if p.HasBadge("mentor") {
		t.Error("HasBadge(mentor) should be false")
	}

	p.UserBadge("first_words").Seen = true
	if !p.Badges[0].Seen {
		t.Error("UserBadge should return a pointer into the record")
	}
	if p.UserBadge("mentor") != nil {
		t.Error("UserBadge(mentor) should be nil")
	}
}

func validProgress() *UserProgress {
	return &UserProgress{
		UserID:    "u1",
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestUserProgress_Validate(t *testing.T) {
	p := validProgress()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if p.Stats.WordsByCategory == nil || p.Stats.TextsByCategory == nil {
		t.Error("Validate should repair nil maps")
	}
}

func TestUserProgress_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *UserProgress)
	}{
		{"missing user", func(p *UserProgress) { p.UserID = "" }},
		{"missing createdAt", func(p *UserProgress) { p.CreatedAt = time.Time{} }},
		{"negative xp", func(p *UserProgress) { p.Level.TotalXP = -1 }},
		{"negative streak", func(p *UserProgress) { p.Streak.CurrentStreak = -2 }},
		{"negative words", func(p *UserProgress) { p.Stats.TotalWords = -5 }},
		{"badge without id", func(p *UserProgress) { p.Badges = []UserBadge{{}} }},
		{"duplicate badge", func(p *UserProgress) {
			p.Badges = []UserBadge{{BadgeID: "streak_3"}, {BadgeID: "streak_3"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProgress()
			tt.mutate(p)
			if err := p.Validate(); !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("Validate() error = %v, want ErrMalformedRecord", err)
			}
		})
	}
}

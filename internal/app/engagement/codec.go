package engagement

import (
	"encoding/json"
	"fmt"

	"github.com/quill-writing/quill/internal/domain"
)

// EncodeProgress serializes the full record. Instants are written as RFC 3339.
func EncodeProgress(p *domain.UserProgress) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode progress: %w", err)
	}
	return data, nil
}

// DecodeProgress parses a stored record. Every instant field comes back as a
// time.Time, so date arithmetic works on the result directly. The level is
// recomputed from totalXP since it is derived data.
func DecodeProgress(data []byte) (*domain.UserProgress, error) {
	var p domain.UserProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Level = LevelFromTotalXP(p.Level.TotalXP)
	if p.Streak.LongestStreak < p.Streak.CurrentStreak {
		p.Streak.LongestStreak = p.Streak.CurrentStreak
	}
	return &p, nil
}

package engagement

import (
	"context"
	"sync"

	"github.com/quill-writing/quill/internal/domain"
)

// DefaultActivityThreshold is how many characters a document must reach
// before the session counts as "user became active today".
const DefaultActivityThreshold = 50

// Session is the application shell around one user's record: it owns the
// record, the pending badge notifications, the editor word-count baseline and
// the once-per-document streak flag. All calls are serialized, so concurrent
// HTTP handlers still see one mutator applying events in arrival order.
type Session struct {
	mu        sync.Mutex
	engine    *Engine
	progress  *domain.UserProgress
	threshold int

	pending []string

	// Per-document state.
	baseline       int64
	lastWords      int64
	streakCredited bool
}

// NewSession wraps an already loaded record.
func NewSession(engine *Engine, progress *domain.UserProgress, threshold int) *Session {
	if threshold <= 0 {
		threshold = DefaultActivityThreshold
	}
	s := &Session{engine: engine, progress: progress, threshold: threshold}
	// Badges unlocked but never acknowledged are still news to the UI.
	for _, b := range progress.Badges {
		if !b.Seen {
			s.pending = append(s.pending, b.BadgeID)
		}
	}
	return s
}

// OpenSession loads the record from the engine's store.
func OpenSession(ctx context.Context, engine *Engine, threshold int) (*Session, error) {
	p, err := engine.Load(ctx)
	if err != nil {
		return nil, err
	}
	return NewSession(engine, p, threshold), nil
}

// Engine returns the engine the session drives.
func (s *Session) Engine() *Engine { return s.engine }

// Snapshot returns a read-only copy of the record with read-time fields set.
func (s *Session) Snapshot() domain.UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot(s.progress)
}

// apply runs one engine operation under the lock and queues its unlocks.
func (s *Session) apply(op func(p *domain.UserProgress) (Outcome, error)) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := op(s.progress)
	s.pending = append(s.pending, out.Unlocked...)
	return out, err
}

// ─── Recording ──────────────────────────────────────────────────────────────

// RecordWords records a word delta.
func (s *Session) RecordWords(ctx context.Context, count int64, category string) (Outcome, error) {
	return s.apply(func(p *domain.UserProgress) (Outcome, error) {
		return s.engine.RecordWordsWritten(ctx, p, count, category)
	})
}

// RecordText records a completed text.
func (s *Session) RecordText(ctx context.Context, category string) (Outcome, error) {
	return s.apply(func(p *domain.UserProgress) (Outcome, error) {
		return s.engine.RecordTextCompleted(ctx, p, category)
	})
}

// RecordPrompt records a completed prompt.
func (s *Session) RecordPrompt(ctx context.Context, d domain.Difficulty) (Outcome, error) {
	return s.apply(func(p *domain.UserProgress) (Outcome, error) {
		return s.engine.RecordPromptCompleted(ctx, p, d)
	})
}

// RecordWritingTime records minutes spent writing.
func (s *Session) RecordWritingTime(ctx context.Context, minutes int64) (Outcome, error) {
	return s.apply(func(p *domain.UserProgress) (Outcome, error) {
		return s.engine.RecordWritingTime(ctx, p, minutes)
	})
}

// RecordFeedback records feedback given to another writer.
func (s *Session) RecordFeedback(ctx context.Context) (Outcome, error) {
	return s.apply(func(p *domain.UserProgress) (Outcome, error) {
		return s.engine.RecordFeedbackGiven(ctx, p)
	})
}

// GrantXP grants XP directly.
func (s *Session) GrantXP(ctx context.Context, amount int64, source domain.XPSource) (Outcome, error) {
	return s.apply(func(p *domain.UserProgress) (Outcome, error) {
		return s.engine.GrantXP(ctx, p, amount, source)
	})
}

// AdvanceStreak credits today's activity.
func (s *Session) AdvanceStreak(ctx context.Context) (Outcome, error) {
	return s.apply(func(p *domain.UserProgress) (Outcome, error) {
		return s.engine.AdvanceStreak(ctx, p, s.engine.Now())
	})
}

// EvaluateBadges runs a badge check.
func (s *Session) EvaluateBadges(ctx context.Context) (Outcome, error) {
	return s.apply(func(p *domain.UserProgress) (Outcome, error) {
		return s.engine.EvaluateBadges(ctx, p)
	})
}

// ─── Document Lifecycle ─────────────────────────────────────────────────────

// StartDocument opens a document whose editor already shows words words.
// Only words written after this point earn credit.
func (s *Session) StartDocument(words int64) error {
	if words < 0 {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = words
	s.lastWords = words
	s.streakCredited = false
	return nil
}

// Activity takes a cumulative editor count. The first time the document
// passes the character threshold, today's streak is credited.
func (s *Session) Activity(ctx context.Context, words, characters int64) (Outcome, error) {
	if words < 0 || characters < 0 {
		return Outcome{}, domain.ErrInvalidInput
	}
	return s.apply(func(p *domain.UserProgress) (Outcome, error) {
		s.lastWords = words
		out := Outcome{FromLevel: p.Level.Level, ToLevel: p.Level.Level}
		if s.streakCredited || characters <= int64(s.threshold) {
			return out, nil
		}
		s.streakCredited = true
		return s.engine.AdvanceStreak(ctx, p, s.engine.Now())
	})
}

// CompleteDocument finishes the open document: it records the words written
// since StartDocument, the completed text and, when difficulty is set, the prompt.
func (s *Session) CompleteDocument(ctx context.Context, category string, difficulty *domain.Difficulty) (Outcome, error) {
	if difficulty != nil {
		if _, err := PromptXP(*difficulty); err != nil {
			return Outcome{}, err
		}
	}
	return s.apply(func(p *domain.UserProgress) (Outcome, error) {
		out := Outcome{FromLevel: p.Level.Level, ToLevel: p.Level.Level}
		var saveErr error

		if delta := s.lastWords - s.baseline; delta > 0 {
			o, err := s.engine.RecordWordsWritten(ctx, p, delta, category)
			if err = keepGoing(err, &saveErr); err != nil {
				return out, err
			}
			out.merge(o)
		}

		o, err := s.engine.RecordTextCompleted(ctx, p, category)
		if err = keepGoing(err, &saveErr); err != nil {
			return out, err
		}
		out.merge(o)

		if difficulty != nil {
			o, err := s.engine.RecordPromptCompleted(ctx, p, *difficulty)
			if err = keepGoing(err, &saveErr); err != nil {
				return out, err
			}
			out.merge(o)
		}

		s.baseline = s.lastWords
		return out, saveErr
	})
}

// keepGoing separates persistence warnings, which must not stop the
// sequence, from real failures. It remembers the first warning in saveErr.
func keepGoing(err error, saveErr *error) error {
	if err == nil {
		return nil
	}
	if isPersistWarning(err) {
		if *saveErr == nil {
			*saveErr = err
		}
		return nil
	}
	return err
}

// ─── Notifications ──────────────────────────────────────────────────────────

// PendingBadges returns newly unlocked badge ids not yet acknowledged, in
// unlock order.
func (s *Session) PendingBadges() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.pending...)
}

// AcknowledgeBadges clears the notification queue and marks the badges seen.
func (s *Session) AcknowledgeBadges(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var saveErr error
	for _, id := range s.pending {
		if err := s.engine.MarkBadgeSeen(ctx, s.progress, id); err != nil && saveErr == nil {
			saveErr = err
		}
	}
	s.pending = nil
	return saveErr
}

// MarkBadgeSeen acknowledges a single badge.
func (s *Session) MarkBadgeSeen(ctx context.Context, badgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.pending[:0]
	for _, id := range s.pending {
		if id != badgeID {
			kept = append(kept, id)
		}
	}
	s.pending = kept
	return s.engine.MarkBadgeSeen(ctx, s.progress, badgeID)
}

// Reset replaces the record with a fresh one and clears session state.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.engine.ResetProgress(ctx, s.progress)
	s.pending = nil
	for _, b := range s.progress.Badges {
		if !b.Seen {
			s.pending = append(s.pending, b.BadgeID)
		}
	}
	s.baseline, s.lastWords, s.streakCredited = 0, 0, false
	return err
}

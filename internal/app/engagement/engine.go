package engagement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quill-writing/quill/internal/domain"
	"github.com/quill-writing/quill/internal/infra/metrics"
)

// XP rules.
const (
	XPPer100Words        = 10
	XPPromptBeginner     = 50
	XPPromptIntermediate = 100
	XPPromptAdvanced     = 200

	// DefaultSlot is the storage slot holding the record.
	DefaultSlot = "user_progress"

	initialStreakFreezes = 2
)

// Store is a single-slot durable key-value store. Get returns
// domain.ErrSlotEmpty when nothing has been saved yet.
type Store interface {
	Get(ctx context.Context, slot string) ([]byte, error)
	Put(ctx context.Context, slot string, data []byte) error
}

// Options configures an Engine. Zero values pick the defaults.
type Options struct {
	Slot     string
	UserID   string
	Location *time.Location
	Catalog  *Catalog
	Now      func() time.Time
	Logger   *logrus.Entry
}

// Outcome reports what a mutation did, for the UI to react to.
type Outcome struct {
	XPGained       int64    `json:"xpGained"`
	LeveledUp      bool     `json:"leveledUp"`
	FromLevel      int      `json:"fromLevel"`
	ToLevel        int      `json:"toLevel"`
	Unlocked       []string `json:"unlocked,omitempty"`
	StreakCredited bool     `json:"streakCredited,omitempty"`
}

func (o *Outcome) merge(other Outcome) {
	if o.FromLevel == 0 {
		o.FromLevel = other.FromLevel
	}
	if other.ToLevel != 0 {
		o.ToLevel = other.ToLevel
	}
	o.XPGained += other.XPGained
	o.LeveledUp = o.ToLevel > o.FromLevel
	o.Unlocked = append(o.Unlocked, other.Unlocked...)
	o.StreakCredited = o.StreakCredited || other.StreakCredited
}

// Engine applies progress rules to a record it is handed and persists the
// result. It holds no per-user state between calls; the caller owns the record.
type Engine struct {
	store   Store
	catalog *Catalog
	stats   *Aggregator
	slot    string
	userID  string
	loc     *time.Location
	now     func() time.Time
	log     *logrus.Entry
}

// NewEngine creates an engine persisting to store.
func NewEngine(store Store, opts Options) *Engine {
	if opts.Slot == "" {
		opts.Slot = DefaultSlot
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "engine")
	}
	return &Engine{
		store:   store,
		catalog: opts.Catalog,
		stats:   NewAggregator(opts.Location),
		slot:    opts.Slot,
		userID:  opts.UserID,
		loc:     opts.Location,
		now:     opts.Now,
		log:     opts.Logger,
	}
}

// Catalog returns the badge catalog the engine evaluates.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Location returns the time zone used for calendar days.
func (e *Engine) Location() *time.Location { return e.loc }

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.now() }

// NewProgress returns a fresh record: level 1, zero stats, the early adopter
// badge and two streak freezes.
func (e *Engine) NewProgress() *domain.UserProgress {
	now := e.now()
	userID := e.userID
	if userID == "" {
		userID = uuid.New().String()
	}
	return &domain.UserProgress{
		UserID:    userID,
		Level:     LevelFromTotalXP(0),
		XPHistory: []domain.XPGain{},
		Badges: []domain.UserBadge{
			{BadgeID: EarlyAdopterBadge, UnlockedAt: now, Seen: false},
		},
		Streak: domain.Streak{
			LastActivityDate:      now,
			StreakFreezeAvailable: initialStreakFreezes,
		},
		Stats:     NewStats(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Load reads the record from the store. An empty slot yields a fresh record;
// a malformed one is logged and replaced by a fresh record.
func (e *Engine) Load(ctx context.Context) (*domain.UserProgress, error) {
	start := time.Now()
	data, err := e.store.Get(ctx, e.slot)
	metrics.StoreLatency.WithLabelValues("get").Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, domain.ErrSlotEmpty):
		e.log.Debug("no stored progress, starting fresh")
		return e.NewProgress(), nil
	case err != nil:
		return nil, fmt.Errorf("%w: load %s: %v", domain.ErrStoreUnavailable, e.slot, err)
	}

	p, err := DecodeProgress(data)
	if err != nil {
		metrics.RecordRecoveries.Inc()
		e.log.WithError(err).Warn("stored progress is malformed, starting fresh")
		return e.NewProgress(), nil
	}
	if e.userID != "" && p.UserID != e.userID {
		e.log.WithFields(logrus.Fields{"stored": p.UserID, "configured": e.userID}).
			Warn("stored progress belongs to another user id, keeping stored id")
	}
	return p, nil
}

// Save writes the full record to the slot.
func (e *Engine) Save(ctx context.Context, p *domain.UserProgress) error {
	data, err := EncodeProgress(p)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceWrite, err)
	}
	start := time.Now()
	err = e.store.Put(ctx, e.slot, data)
	metrics.StoreLatency.WithLabelValues("put").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PersistFailures.Inc()
		e.log.WithError(err).Warn("saving progress failed, keeping in-memory state")
		return fmt.Errorf("%w: %v", domain.ErrPersistenceWrite, err)
	}
	metrics.StreakCurrent.Set(float64(p.Streak.CurrentStreak))
	return nil
}

// Snapshot returns a deep copy with the read-time fields filled in: the
// at-risk flag and the windowed word counters.
func (e *Engine) Snapshot(p *domain.UserProgress) domain.UserProgress {
	now := e.now()
	snap := *p
	snap.XPHistory = append([]domain.XPGain{}, p.XPHistory...)
	snap.Badges = append([]domain.UserBadge{}, p.Badges...)
	snap.Stats = e.stats.Refresh(cloneStats(p.Stats), now)
	snap.Streak.IsAtRisk = AtRisk(p.Streak, now, e.loc)
	return snap
}

// ─── Operations ─────────────────────────────────────────────────────────────

// GrantXP adds amount XP from source. Zero only stamps updatedAt.
func (e *Engine) GrantXP(ctx context.Context, p *domain.UserProgress, amount int64, source domain.XPSource) (Outcome, error) {
	if amount < 0 {
		return Outcome{}, fmt.Errorf("%w: xp amount %d", domain.ErrInvalidInput, amount)
	}
	if !source.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", domain.ErrUnknownSource, source)
	}
	if amount > math.MaxInt64-p.Level.TotalXP {
		return Outcome{}, fmt.Errorf("%w: xp amount %d overflows total %d", domain.ErrInvalidInput, amount, p.Level.TotalXP)
	}
	now := e.now()
	out := e.grant(p, amount, source, now)
	return out, e.commit(ctx, p, now)
}

// RecordWordsWritten adds count words and grants 10 XP per full 100 words
// in this call. Remainders are not carried to the next call.
func (e *Engine) RecordWordsWritten(ctx context.Context, p *domain.UserProgress, count int64, category string) (Outcome, error) {
	if count < 0 {
		return Outcome{}, fmt.Errorf("%w: word count %d", domain.ErrInvalidInput, count)
	}
	if count == 0 {
		return Outcome{FromLevel: p.Level.Level, ToLevel: p.Level.Level}, nil
	}
	now := e.now()
	stats, err := e.stats.RecordWords(p.Stats, count, category, now)
	if err != nil {
		return Outcome{}, err
	}
	p.Stats = stats

	out := e.grant(p, WordXP(count), domain.XPWordsWritten, now)
	out.merge(e.evaluate(p, now))
	return out, e.commit(ctx, p, now)
}

// RecordTextCompleted counts a finished text. The words were already paid for.
func (e *Engine) RecordTextCompleted(ctx context.Context, p *domain.UserProgress, category string) (Outcome, error) {
	now := e.now()
	p.Stats = e.stats.RecordTextCompleted(p.Stats, category)

	out := Outcome{FromLevel: p.Level.Level, ToLevel: p.Level.Level}
	out.merge(e.evaluate(p, now))
	return out, e.commit(ctx, p, now)
}

// RecordPromptCompleted counts a finished prompt and grants its XP.
func (e *Engine) RecordPromptCompleted(ctx context.Context, p *domain.UserProgress, difficulty domain.Difficulty) (Outcome, error) {
	reward, err := PromptXP(difficulty)
	if err != nil {
		return Outcome{}, err
	}
	now := e.now()
	p.Stats = e.stats.RecordPromptCompleted(p.Stats)

	out := e.grant(p, reward, domain.XPPromptCompleted, now)
	out.merge(e.evaluate(p, now))
	return out, e.commit(ctx, p, now)
}

// RecordWritingTime adds minutes of editor time. No XP.
func (e *Engine) RecordWritingTime(ctx context.Context, p *domain.UserProgress, minutes int64) (Outcome, error) {
	stats, err := e.stats.RecordWritingTime(p.Stats, minutes)
	if err != nil {
		return Outcome{}, err
	}
	now := e.now()
	p.Stats = stats
	return Outcome{FromLevel: p.Level.Level, ToLevel: p.Level.Level}, e.commit(ctx, p, now)
}

// RecordFeedbackGiven counts feedback given to another writer.
func (e *Engine) RecordFeedbackGiven(ctx context.Context, p *domain.UserProgress) (Outcome, error) {
	now := e.now()
	p.Stats = e.stats.RecordFeedbackGiven(p.Stats)

	out := Outcome{FromLevel: p.Level.Level, ToLevel: p.Level.Level}
	out.merge(e.evaluate(p, now))
	return out, e.commit(ctx, p, now)
}

// AdvanceStreak credits activity at now. Repeated calls on the same calendar
// day change nothing and save nothing.
func (e *Engine) AdvanceStreak(ctx context.Context, p *domain.UserProgress, now time.Time) (Outcome, error) {
	out := Outcome{FromLevel: p.Level.Level, ToLevel: p.Level.Level}

	streak, credited := AdvanceStreak(p.Streak, now, e.loc)
	if !credited {
		return out, nil
	}
	p.Streak = streak
	p.Stats = e.stats.RecordActiveDay(p.Stats)
	out.StreakCredited = true

	out.merge(e.grant(p, StreakBonus(streak.CurrentStreak), domain.XPDailyStreak, now))
	out.merge(e.evaluate(p, now))

	e.log.WithFields(logrus.Fields{
		"current": streak.CurrentStreak,
		"longest": streak.LongestStreak,
	}).Debug("streak advanced")
	return out, e.commit(ctx, p, now)
}

// EvaluateBadges unlocks every badge whose requirement now holds. Calling it
// again without a stat change unlocks nothing.
func (e *Engine) EvaluateBadges(ctx context.Context, p *domain.UserProgress) (Outcome, error) {
	now := e.now()
	out := e.evaluate(p, now)
	if len(out.Unlocked) == 0 {
		return out, nil
	}
	return out, e.commit(ctx, p, now)
}

// MarkBadgeSeen flags an unlocked badge as acknowledged. Unknown or locked
// ids are ignored.
func (e *Engine) MarkBadgeSeen(ctx context.Context, p *domain.UserProgress, badgeID string) error {
	ub := p.UserBadge(badgeID)
	if ub == nil || ub.Seen {
		return nil
	}
	ub.Seen = true
	return e.commit(ctx, p, e.now())
}

// ResetProgress replaces the record with a fresh one. Debug tooling only.
func (e *Engine) ResetProgress(ctx context.Context, p *domain.UserProgress) error {
	fresh := e.NewProgress()
	if e.userID == "" {
		fresh.UserID = p.UserID
	}
	*p = *fresh
	e.log.Info("progress reset")
	return e.commit(ctx, p, fresh.UpdatedAt)
}

// ─── Rules ──────────────────────────────────────────────────────────────────

// WordXP returns the XP for count words written in one call.
func WordXP(count int64) int64 {
	if count <= 0 {
		return 0
	}
	return count / 100 * XPPer100Words
}

// PromptXP returns the XP for completing a prompt of the given difficulty.
func PromptXP(d domain.Difficulty) (int64, error) {
	switch d {
	case domain.DifficultyBeginner:
		return XPPromptBeginner, nil
	case domain.DifficultyIntermediate:
		return XPPromptIntermediate, nil
	case domain.DifficultyAdvanced:
		return XPPromptAdvanced, nil
	}
	return 0, fmt.Errorf("%w: %q", domain.ErrUnknownDifficulty, d)
}

// ─── Internals ──────────────────────────────────────────────────────────────

// grant appends to the XP log and recomputes the level. No persistence.
// Totals saturate at math.MaxInt64.
func (e *Engine) grant(p *domain.UserProgress, amount int64, source domain.XPSource, at time.Time) Outcome {
	from := p.Level.Level
	out := Outcome{FromLevel: from, ToLevel: from}
	if headroom := math.MaxInt64 - p.Level.TotalXP; amount > headroom {
		amount = headroom
	}
	if amount == 0 {
		return out
	}

	p.XPHistory = append(p.XPHistory, domain.XPGain{Amount: amount, Source: source, Timestamp: at})
	p.Level = LevelFromTotalXP(p.Level.TotalXP + amount)
	metrics.XPGranted.WithLabelValues(string(source)).Add(float64(amount))

	out.XPGained = amount
	out.ToLevel = p.Level.Level
	out.LeveledUp = out.ToLevel > from
	if out.LeveledUp {
		metrics.LevelUps.Inc()
		e.log.WithFields(logrus.Fields{"from": from, "to": out.ToLevel, "total_xp": p.Level.TotalXP}).
			Info("level up")
	}
	return out
}

// evaluate unlocks newly satisfied badges in catalog order and folds their
// rewards into a single milestone grant.
func (e *Engine) evaluate(p *domain.UserProgress, at time.Time) Outcome {
	var unlocked []string
	var reward int64

	for _, b := range e.catalog.badges {
		if b.Requirement.Kind == domain.ReqSpecial || p.HasBadge(b.ID) {
			continue
		}
		if !Satisfied(b.Requirement, p.Stats, p.Streak) {
			continue
		}
		p.Badges = append(p.Badges, domain.UserBadge{BadgeID: b.ID, UnlockedAt: at})
		unlocked = append(unlocked, b.ID)
		reward += b.XPReward
		metrics.BadgesUnlocked.WithLabelValues(string(b.Category), string(b.Rarity)).Inc()
		e.log.WithFields(logrus.Fields{"badge": b.ID, "xp": b.XPReward}).Info("badge unlocked")
	}

	out := e.grant(p, reward, domain.XPMilestone, at)
	out.Unlocked = unlocked
	return out
}

// commit stamps updatedAt and persists. A failed write leaves p mutated.
func (e *Engine) commit(ctx context.Context, p *domain.UserProgress, at time.Time) error {
	p.UpdatedAt = at
	return e.Save(ctx, p)
}

func isPersistWarning(err error) bool {
	return errors.Is(err, domain.ErrPersistenceWrite)
}

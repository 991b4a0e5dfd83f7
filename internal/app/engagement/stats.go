package engagement

import (
	"fmt"
	"strings"
	"time"

	"github.com/quill-writing/quill/internal/domain"
)

// Trailing windows, in calendar days including today.
const (
	WeekWindowDays  = 7
	MonthWindowDays = 30

	defaultProductiveHour = 9
)

// Aggregator applies writing activity to WritingStats. Every method takes the
// stats by value and returns an updated copy; the input maps are never mutated.
type Aggregator struct {
	loc *time.Location
}

// NewAggregator creates an aggregator that buckets days and hours in loc.
func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{loc: loc}
}

// RecordWords adds count (> 0) words written at the given time.
func (a *Aggregator) RecordWords(s domain.WritingStats, count int64, category string, at time.Time) (domain.WritingStats, error) {
	if count <= 0 {
		return s, fmt.Errorf("%w: word count %d", domain.ErrInvalidInput, count)
	}
	s = cloneStats(s)
	category = normalizeCategory(category)

	s.TotalWords += count
	if category != "" {
		s.WordsByCategory[category] += count
	}
	s.Sessions++
	s.WordsByHour[at.In(a.loc).Hour()] += count
	s.Activity = append(s.Activity, domain.WordActivity{At: at, Words: count, Category: category})

	return a.Refresh(s, at), nil
}

// RecordTextCompleted counts one finished text.
func (a *Aggregator) RecordTextCompleted(s domain.WritingStats, category string) domain.WritingStats {
	s = cloneStats(s)
	s.TotalTexts++
	if category = normalizeCategory(category); category != "" {
		s.TextsByCategory[category]++
	}
	return s
}

// RecordPromptCompleted counts one finished prompt.
func (a *Aggregator) RecordPromptCompleted(s domain.WritingStats) domain.WritingStats {
	s = cloneStats(s)
	s.TotalPrompts++
	return s
}

// RecordWritingTime adds minutes spent in the editor.
func (a *Aggregator) RecordWritingTime(s domain.WritingStats, minutes int64) (domain.WritingStats, error) {
	if minutes < 0 {
		return s, fmt.Errorf("%w: writing time %d", domain.ErrInvalidInput, minutes)
	}
	s = cloneStats(s)
	s.TotalTimeWriting += minutes
	return s, nil
}

// RecordFeedbackGiven counts one piece of feedback on another writer's text.
func (a *Aggregator) RecordFeedbackGiven(s domain.WritingStats) domain.WritingStats {
	s = cloneStats(s)
	s.TotalFeedback++
	return s
}

// RecordActiveDay counts a new calendar day with activity.
func (a *Aggregator) RecordActiveDay(s domain.WritingStats) domain.WritingStats {
	s = cloneStats(s)
	s.ActiveDays++
	s.AverageWordsPerDay = average(s.TotalWords, int64(s.ActiveDays))
	return s
}

// Refresh recomputes the windowed counters and derived averages as of now
// and drops activity that has aged out of the longest window.
func (a *Aggregator) Refresh(s domain.WritingStats, now time.Time) domain.WritingStats {
	s.WordsToday, s.WordsThisWeek, s.WordsThisMonth = 0, 0, 0

	kept := make([]domain.WordActivity, 0, len(s.Activity))
	for _, act := range s.Activity {
		days := DaysBetween(act.At, now, a.loc)
		if days < 0 {
			days = 0
		}
		if days >= MonthWindowDays {
			continue
		}
		kept = append(kept, act)

		s.WordsThisMonth += act.Words
		if days < WeekWindowDays {
			s.WordsThisWeek += act.Words
		}
		if days == 0 {
			s.WordsToday += act.Words
		}
	}
	s.Activity = kept

	s.AverageWordsPerSession = average(s.TotalWords, s.Sessions)
	s.AverageWordsPerDay = average(s.TotalWords, int64(s.ActiveDays))
	s.MostProductiveHour = productiveHour(s.WordsByHour)
	return s
}

// NewStats returns zeroed stats with initialized maps.
func NewStats() domain.WritingStats {
	return domain.WritingStats{
		WordsByCategory:    map[string]int64{},
		TextsByCategory:    map[string]int64{},
		MostProductiveHour: defaultProductiveHour,
		Activity:           []domain.WordActivity{},
	}
}

func cloneStats(s domain.WritingStats) domain.WritingStats {
	words := make(map[string]int64, len(s.WordsByCategory)+1)
	for k, v := range s.WordsByCategory {
		words[k] = v
	}
	texts := make(map[string]int64, len(s.TextsByCategory)+1)
	for k, v := range s.TextsByCategory {
		texts[k] = v
	}
	s.WordsByCategory = words
	s.TextsByCategory = texts
	s.Activity = append([]domain.WordActivity{}, s.Activity...)
	return s
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

func average(total, n int64) float64 {
	if n <= 0 {
		return float64(total)
	}
	return float64(total) / float64(n)
}

func productiveHour(byHour [24]int64) int {
	best, bestWords := defaultProductiveHour, int64(0)
	for h, w := range byHour {
		if w > bestWords {
			best, bestWords = h, w
		}
	}
	return best
}

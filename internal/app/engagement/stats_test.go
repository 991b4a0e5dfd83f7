package engagement_test

import (
	"errors"
	"testing"
	"time"

	"github.com/quill-writing/quill/internal/app/engagement"
	"github.com/quill-writing/quill/internal/domain"
)

func TestNewStats(t *testing.T) {
	s := engagement.NewStats()
	if s.WordsByCategory == nil || s.TextsByCategory == nil {
		t.Error("NewStats should initialize maps")
	}
	if s.MostProductiveHour != 9 {
		t.Errorf("MostProductiveHour = %d, want 9", s.MostProductiveHour)
	}
}

func TestAggregator_RecordWords(t *testing.T) {
	a := engagement.NewAggregator(time.UTC)
	s, err := a.RecordWords(engagement.NewStats(), 250, " Poetry ", start)
	if err != nil {
		t.Fatalf("RecordWords: %v", err)
	}
	if s.TotalWords != 250 || s.WordsByCategory["poetry"] != 250 {
		t.Errorf("totals = %d, poetry = %d", s.TotalWords, s.WordsByCategory["poetry"])
	}
	if s.Sessions != 1 || s.AverageWordsPerSession != 250 {
		t.Errorf("sessions = %d avg = %v", s.Sessions, s.AverageWordsPerSession)
	}
	if s.WordsToday != 250 || s.WordsThisWeek != 250 || s.WordsThisMonth != 250 {
		t.Errorf("windows = %d/%d/%d", s.WordsToday, s.WordsThisWeek, s.WordsThisMonth)
	}
}

func TestAggregator_RecordWords_RejectsNonPositive(t *testing.T) {
	a := engagement.NewAggregator(time.UTC)
	for _, n := range []int64{0, -10} {
		if _, err := a.RecordWords(engagement.NewStats(), n, "", start); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("RecordWords(%d) error = %v, want ErrInvalidInput", n, err)
		}
	}
}

func TestAggregator_DoesNotMutateInput(t *testing.T) {
	a := engagement.NewAggregator(time.UTC)
	in := engagement.NewStats()
	a.RecordWords(in, 100, "fiction", start)
	a.RecordTextCompleted(in, "fiction")

	if len(in.WordsByCategory) != 0 || len(in.TextsByCategory) != 0 || in.TotalWords != 0 {
		t.Errorf("input stats were mutated: %+v", in)
	}
}

func TestAggregator_Windows(t *testing.T) {
	a := engagement.NewAggregator(time.UTC)
	s := engagement.NewStats()

	entries := []struct {
		at    time.Time
		words int64
	}{
		{start.AddDate(0, 0, -40), 100},
		{start.AddDate(0, 0, -10), 200},
		{start.AddDate(0, 0, -3), 300},
		{start.Add(5 * time.Hour), 700},
	}
	for _, e := range entries {
		var err error
		s, err = a.RecordWords(s, e.words, "", e.at)
		if err != nil {
			t.Fatalf("RecordWords: %v", err)
		}
	}

	s = a.Refresh(s, start.Add(6*time.Hour))
	if s.WordsToday != 700 {
		t.Errorf("WordsToday = %d, want 700", s.WordsToday)
	}
	if s.WordsThisWeek != 1000 {
		t.Errorf("WordsThisWeek = %d, want 1000", s.WordsThisWeek)
	}
	if s.WordsThisMonth != 1200 {
		t.Errorf("WordsThisMonth = %d, want 1200", s.WordsThisMonth)
	}
	if s.TotalWords != 1300 {
		t.Errorf("TotalWords = %d, want 1300", s.TotalWords)
	}
	if len(s.Activity) != 3 {
		t.Errorf("Activity = %d entries, want 3 (oldest pruned)", len(s.Activity))
	}
	if s.MostProductiveHour != 14 {
		t.Errorf("MostProductiveHour = %d, want 14", s.MostProductiveHour)
	}

	// A week later only the month window still holds today's words.
	later := a.Refresh(s, start.AddDate(0, 0, 8))
	if later.WordsToday != 0 || later.WordsThisWeek != 0 || later.WordsThisMonth != 1200 {
		t.Errorf("later windows = %d/%d/%d, want 0/0/1200",
			later.WordsToday, later.WordsThisWeek, later.WordsThisMonth)
	}
}

func TestAggregator_Counters(t *testing.T) {
	a := engagement.NewAggregator(time.UTC)
	s := engagement.NewStats()

	s = a.RecordTextCompleted(s, "Essay")
	s = a.RecordTextCompleted(s, "")
	s = a.RecordPromptCompleted(s)
	s = a.RecordFeedbackGiven(s)
	s, err := a.RecordWritingTime(s, 45)
	if err != nil {
		t.Fatalf("RecordWritingTime: %v", err)
	}

	if s.TotalTexts != 2 || s.TextsByCategory["essay"] != 1 || len(s.TextsByCategory) != 1 {
		t.Errorf("texts = %d, by category = %v", s.TotalTexts, s.TextsByCategory)
	}
	if s.TotalPrompts != 1 || s.TotalFeedback != 1 || s.TotalTimeWriting != 45 {
		t.Errorf("prompts=%d feedback=%d time=%d", s.TotalPrompts, s.TotalFeedback, s.TotalTimeWriting)
	}

	if _, err := a.RecordWritingTime(s, -1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("RecordWritingTime(-1) error = %v, want ErrInvalidInput", err)
	}
}

func TestAggregator_RecordActiveDay(t *testing.T) {
	a := engagement.NewAggregator(time.UTC)
	s, _ := a.RecordWords(engagement.NewStats(), 600, "", start)
	s = a.RecordActiveDay(s)
	s = a.RecordActiveDay(s)
	if s.ActiveDays != 2 || s.AverageWordsPerDay != 300 {
		t.Errorf("active days = %d avg = %v, want 2/300", s.ActiveDays, s.AverageWordsPerDay)
	}
}

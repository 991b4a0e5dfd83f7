package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/quill-writing/quill/internal/daemon"
	"github.com/quill-writing/quill/internal/domain"
)

func init() {
	addOutputFlag(statusCmd, &statusOutput)
	rootCmd.AddCommand(statusCmd)
}

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show level, streak and writing stats",
	RunE:  runStatus,
}

type statusView struct {
	UserID       string    `json:"userId" yaml:"userId"`
	Level        int       `json:"level" yaml:"level"`
	CurrentXP    int64     `json:"currentXP" yaml:"currentXP"`
	NextLevelXP  int64     `json:"xpForNextLevel" yaml:"xpForNextLevel"`
	TotalXP      int64     `json:"totalXP" yaml:"totalXP"`
	ProgressPct  float64   `json:"progressPct" yaml:"progressPct"`
	Streak       int       `json:"currentStreak" yaml:"currentStreak"`
	Longest      int       `json:"longestStreak" yaml:"longestStreak"`
	AtRisk       bool      `json:"isAtRisk" yaml:"isAtRisk"`
	Freezes      int       `json:"streakFreezeAvailable" yaml:"streakFreezeAvailable"`
	Badges       int       `json:"badges" yaml:"badges"`
	Pending      []string  `json:"pendingBadges" yaml:"pendingBadges"`
	TotalWords   int64     `json:"totalWords" yaml:"totalWords"`
	TotalTexts   int64     `json:"totalTexts" yaml:"totalTexts"`
	TotalPrompts int64     `json:"totalPrompts" yaml:"totalPrompts"`
	Minutes      int64     `json:"totalTimeWriting" yaml:"totalTimeWriting"`
	WordsToday   int64     `json:"wordsToday" yaml:"wordsToday"`
	WordsWeek    int64     `json:"wordsThisWeek" yaml:"wordsThisWeek"`
	WordsMonth   int64     `json:"wordsThisMonth" yaml:"wordsThisMonth"`
	ActiveDays   int       `json:"activeDays" yaml:"activeDays"`
	BestHour     int       `json:"mostProductiveHour" yaml:"mostProductiveHour"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updatedAt"`
}

func newStatusView(p domain.UserProgress, pending []string) statusView {
	if pending == nil {
		pending = []string{}
	}
	return statusView{
		UserID:       p.UserID,
		Level:        p.Level.Level,
		CurrentXP:    p.Level.CurrentXP,
		NextLevelXP:  p.Level.XPForNextLevel,
		TotalXP:      p.Level.TotalXP,
		ProgressPct:  p.Level.ProgressPct(),
		Streak:       p.Streak.CurrentStreak,
		Longest:      p.Streak.LongestStreak,
		AtRisk:       p.Streak.IsAtRisk,
		Freezes:      p.Streak.StreakFreezeAvailable,
		Badges:       len(p.Badges),
		Pending:      pending,
		TotalWords:   p.Stats.TotalWords,
		TotalTexts:   p.Stats.TotalTexts,
		TotalPrompts: p.Stats.TotalPrompts,
		Minutes:      p.Stats.TotalTimeWriting,
		WordsToday:   p.Stats.WordsToday,
		WordsWeek:    p.Stats.WordsThisWeek,
		WordsMonth:   p.Stats.WordsThisMonth,
		ActiveDays:   p.Stats.ActiveDays,
		BestHour:     p.Stats.MostProductiveHour,
		UpdatedAt:    p.UpdatedAt,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := daemon.New(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	p := d.Session.Snapshot()
	view := newStatusView(p, d.Session.PendingBadges())

	return writeOutput(cmd.OutOrStdout(), statusOutput, view, func(w io.Writer) error {
		return printStatus(w, p, view)
	})
}

func printStatus(w io.Writer, p domain.UserProgress, v statusView) error {
	fmt.Fprintln(w, renderLevel(p.Level))
	fmt.Fprintf(w, "Total XP: %d\n", v.TotalXP)
	fmt.Fprintln(w, renderStreak(p.Streak))
	fmt.Fprintf(w, "Words: %d today, %d this week, %d this month, %d total\n",
		v.WordsToday, v.WordsWeek, v.WordsMonth, v.TotalWords)
	fmt.Fprintf(w, "Texts: %d  Prompts: %d  Minutes: %d  Active days: %d\n",
		v.TotalTexts, v.TotalPrompts, v.Minutes, v.ActiveDays)
	fmt.Fprintf(w, "Badges: %d", v.Badges)
	if len(v.Pending) > 0 {
		fmt.Fprintf(w, " (%d new)", len(v.Pending))
	}
	fmt.Fprintln(w)
	return nil
}

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quill-writing/quill/internal/app/engagement"
	"github.com/quill-writing/quill/internal/daemon"
	"github.com/quill-writing/quill/internal/domain"
)

func init() {
	writeCmd.Flags().StringVar(&writeCategory, "category", "", "Category the words belong to")
	completeCmd.Flags().StringVar(&completeCategory, "category", "", "Category of the finished text")
	completeCmd.Flags().StringVar(&completePrompt, "prompt", "", "Difficulty of the prompt the text answered")

	rootCmd.AddCommand(writeCmd, completeCmd, promptCmd, timeCmd, feedbackCmd, streakCmd)
}

var (
	writeCategory    string
	completeCategory string
	completePrompt   string
)

var writeCmd = &cobra.Command{
	Use:   "write WORDS",
	Short: "Record words written (10 XP per 100 words)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		words, err := parseCount(args[0], "word count")
		if err != nil {
			return err
		}
		return withSession(cmd, func(s *engagement.Session) (engagement.Outcome, error) {
			return s.RecordWords(cmd.Context(), words, writeCategory)
		})
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Record a finished text, optionally answering a prompt",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var difficulty *domain.Difficulty
		if completePrompt != "" {
			d, err := domain.ParseDifficulty(completePrompt)
			if err != nil {
				return err
			}
			difficulty = &d
		}
		return withSession(cmd, func(s *engagement.Session) (engagement.Outcome, error) {
			return s.CompleteDocument(cmd.Context(), completeCategory, difficulty)
		})
	},
}

var promptCmd = &cobra.Command{
	Use:       "prompt DIFFICULTY",
	Short:     "Record a completed prompt (beginner, intermediate, advanced)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"beginner", "intermediate", "advanced"},
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := domain.ParseDifficulty(args[0])
		if err != nil {
			return err
		}
		return withSession(cmd, func(s *engagement.Session) (engagement.Outcome, error) {
			return s.RecordPrompt(cmd.Context(), d)
		})
	},
}

var timeCmd = &cobra.Command{
	Use:   "time MINUTES",
	Short: "Record minutes spent writing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := parseCount(args[0], "minutes")
		if err != nil {
			return err
		}
		return withSession(cmd, func(s *engagement.Session) (engagement.Outcome, error) {
			return s.RecordWritingTime(cmd.Context(), minutes)
		})
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record feedback given to another writer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *engagement.Session) (engagement.Outcome, error) {
			return s.RecordFeedback(cmd.Context())
		})
	},
}

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Credit today's writing to the streak",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *engagement.Session) (engagement.Outcome, error) {
			out, err := s.AdvanceStreak(cmd.Context())
			if err == nil && !out.StreakCredited {
				snap := s.Snapshot()
				fmt.Fprintln(cmd.OutOrStdout(), renderStreak(snap.Streak))
			}
			return out, err
		})
	},
}

// withSession opens the daemon, runs op against its session and prints the
// outcome.
func withSession(cmd *cobra.Command, op func(s *engagement.Session) (engagement.Outcome, error)) error {
	d, err := daemon.New(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	out, err := op(d.Session)
	return printOutcome(cmd.OutOrStdout(), out, err)
}

func parseCount(arg, what string) (int64, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", domain.ErrInvalidInput, what, arg)
	}
	return n, nil
}

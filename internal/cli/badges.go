package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/quill-writing/quill/internal/app/engagement"
	"github.com/quill-writing/quill/internal/daemon"
	"github.com/quill-writing/quill/internal/domain"
)

func init() {
	badgesCmd.Flags().StringVar(&badgesCategory, "category", "", "Only badges of this category")
	badgesCmd.Flags().StringVar(&badgesRarity, "rarity", "", "Only badges of this rarity")
	badgesCmd.Flags().BoolVar(&badgesUnlocked, "unlocked", false, "Only badges already earned")
	addOutputFlag(badgesCmd, &badgesOutput)

	rootCmd.AddCommand(badgesCmd, seenCmd)
}

var (
	badgesCategory string
	badgesRarity   string
	badgesUnlocked bool
	badgesOutput   string
)

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "List the badge catalog and what you have earned",
	Args:  cobra.NoArgs,
	RunE:  runBadges,
}

var seenCmd = &cobra.Command{
	Use:   "seen BADGE",
	Short: "Mark an unlocked badge as seen",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New(cmd.Context())
		if err != nil {
			return err
		}
		defer d.Close()

		snap := d.Session.Snapshot()
		if !snap.HasBadge(args[0]) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is not unlocked, nothing to mark\n", args[0])
			return nil
		}
		if err := d.Session.MarkBadgeSeen(cmd.Context(), args[0]); err != nil && !errors.Is(err, domain.ErrPersistenceWrite) {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as seen\n", args[0])
		return nil
	},
}

type badgeView struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Category   string     `json:"category" yaml:"category"`
	Rarity     string     `json:"rarity" yaml:"rarity"`
	XPReward   int64      `json:"xpReward" yaml:"xpReward"`
	Unlocked   bool       `json:"unlocked" yaml:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty" yaml:"unlockedAt,omitempty"`
	Seen       bool       `json:"seen" yaml:"seen"`
}

// filterBadges applies the category, rarity and unlocked filters in catalog order.
func filterBadges(catalog *engagement.Catalog, p domain.UserProgress, category, rarity string, unlockedOnly bool) []badgeView {
	var badges []domain.Badge
	switch {
	case category != "":
		badges = catalog.ByCategory(domain.BadgeCategory(category))
	case rarity != "":
		badges = catalog.ByRarity(domain.BadgeRarity(rarity))
	default:
		badges = catalog.All()
	}

	views := make([]badgeView, 0, len(badges))
	for _, b := range badges {
		if rarity != "" && b.Rarity != domain.BadgeRarity(rarity) {
			continue
		}
		v := badgeView{
			ID:       b.ID,
			Name:     b.Name,
			Category: string(b.Category),
			Rarity:   string(b.Rarity),
			XPReward: b.XPReward,
		}
		if ub := p.UserBadge(b.ID); ub != nil {
			at := ub.UnlockedAt
			v.Unlocked, v.UnlockedAt, v.Seen = true, &at, ub.Seen
		}
		if unlockedOnly && !v.Unlocked {
			continue
		}
		views = append(views, v)
	}
	return views
}

func runBadges(cmd *cobra.Command, args []string) error {
	d, err := daemon.New(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	views := filterBadges(d.Engine.Catalog(), d.Session.Snapshot(), badgesCategory, badgesRarity, badgesUnlocked)

	return writeOutput(cmd.OutOrStdout(), badgesOutput, views, func(w io.Writer) error {
		if len(views) == 0 {
			fmt.Fprintln(w, "No badges match.")
			return nil
		}
		return printBadges(w, views)
	})
}

func printBadges(out io.Writer, views []badgeView) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tRARITY\tXP\tEARNED")
	for _, v := range views {
		earned := "-"
		if v.UnlockedAt != nil {
			earned = v.UnlockedAt.Format("2006-01-02 15:04")
			if !v.Seen {
				earned += " (new)"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			v.ID, v.Name, v.Category, v.Rarity, v.XPReward, earned)
	}
	return w.Flush()
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/quill-writing/quill/internal/app/engagement"
	"github.com/quill-writing/quill/internal/domain"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", formatText, "Output format: text, json or yaml")
}

// writeOutput prints v in the requested machine format, or calls text for
// the human one.
func writeOutput(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case formatText, "":
		return text(w)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// printOutcome reports what an operation earned. A failed save is shown as a
// warning since the in-memory progress was still updated.
func printOutcome(w io.Writer, out engagement.Outcome, err error) error {
	if err != nil && !errors.Is(err, domain.ErrPersistenceWrite) {
		return err
	}
	if out.XPGained > 0 {
		fmt.Fprintf(w, "+%d XP\n", out.XPGained)
	}
	if out.StreakCredited {
		fmt.Fprintln(w, "Streak extended")
	}
	if out.LeveledUp {
		fmt.Fprintf(w, "Level up! %d -> %d\n", out.FromLevel, out.ToLevel)
	}
	for _, id := range out.Unlocked {
		fmt.Fprintf(w, "Badge unlocked: %s\n", id)
	}
	if out.XPGained == 0 && !out.LeveledUp && len(out.Unlocked) == 0 && !out.StreakCredited {
		fmt.Fprintln(w, "Recorded")
	}
	if err != nil {
		fmt.Fprintf(w, "Warning: %v\n", err)
	}
	return nil
}

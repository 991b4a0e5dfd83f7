package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quill-writing/quill/internal/daemon"
)

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm that all progress should be erased")
	rootCmd.AddCommand(resetCmd)
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase all progress and start over at level 1",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return errors.New("reset erases all XP, badges and stats; pass --yes to confirm")
		}
		d, err := daemon.New(cmd.Context())
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.Session.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Progress reset")
		return nil
	},
}

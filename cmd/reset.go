package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all learning progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("refusing to reset without --yes")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		n := len(a.sched.Cards())
		a.sched.ResetSystem(ctx)
		fmt.Printf("Removed %d cards.\n", n)
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm deleting all progress")
}

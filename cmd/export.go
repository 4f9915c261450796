package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizbox/internal/spacedrep"
	"github.com/abhisek/quizbox/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export all cards as JSON (stdout if no file given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		sum := a.sched.Stats()
		data := &store.SnapshotData{
			Cards:        spacedrep.CardsToData(a.sched.Cards()),
			TotalReviews: sum.TotalReviews,
		}
		if !sum.LastSystemUpdate.IsZero() {
			data.LastSystemUpdate = store.FormatTime(sum.LastSystemUpdate)
		}
		raw, err := store.Encode(data)
		if err != nil {
			return fmt.Errorf("encode export: %w", err)
		}

		if len(args) == 0 {
			_, err = fmt.Println(string(raw))
			return err
		}
		if err := os.WriteFile(args[0], raw, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(os.Stderr, "exported %d cards to %s\n", len(data.Cards), args[0])
		return nil
	},
}

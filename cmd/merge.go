package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizbox/internal/spacedrep"
	"github.com/abhisek/quizbox/internal/store"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <file>",
	Short: "Merge cards from an export into the current progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		policyFlag, _ := cmd.Flags().GetString("policy")
		policy, err := spacedrep.ParseMergePolicy(policyFlag)
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		if err := store.ValidateDocument(raw); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		data, err := store.Decode(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		incoming := spacedrep.CardsFromData(data.Cards, a.sched.Now())
		res := a.sched.MergeCards(ctx, incoming, policy)
		fmt.Printf("merged %d cards: %d new, %d replaced, %d kept\n",
			len(incoming), res.Inserted, res.Replaced, res.Kept)
		return nil
	},
}

func init() {
	names := make([]string, len(spacedrep.MergePolicies))
	for i, p := range spacedrep.MergePolicies {
		names[i] = string(p)
	}
	mergeCmd.Flags().String("policy", string(spacedrep.PreferNewer),
		"Conflict policy: "+strings.Join(names, ", "))
}

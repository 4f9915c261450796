package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizbox/internal/spacedrep"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics per box",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		topic, _ := cmd.Flags().GetString("topic")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		sum := a.sched.Stats()
		byLevel := a.sched.StatisticsByLevel(topic)
		dueByLevel := a.sched.DueCountByLevel(topic)

		scope := "all topics"
		if topic != spacedrep.AllTopics {
			scope = topic
		}
		fmt.Printf("Cards: %d   Reviews: %d   Due today: %d\n", sum.TotalCards, sum.TotalReviews, sum.DueToday)
		if !sum.LastSystemUpdate.IsZero() {
			fmt.Printf("Last update: %s\n", sum.LastSystemUpdate.Format(time.DateTime))
		}
		fmt.Printf("\nBoxes (%s):\n", scope)
		for box := spacedrep.MinBox; box <= spacedrep.MaxBox; box++ {
			n := len(byLevel[box])
			fmt.Printf("  box %d  %-20s %3d cards, %3d due\n", box, strings.Repeat("#", min(n, 20)), n, dueByLevel[box])
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("topic", spacedrep.AllTopics, "Restrict box statistics to one topic")
}

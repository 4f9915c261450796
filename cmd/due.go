package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizbox/internal/questions"
)

var dueCmd = &cobra.Command{
	Use:   "due [topic]",
	Short: "List questions due for review, most urgent first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		var due []*questions.Question
		if len(args) == 1 {
			due, err = a.sched.DueQuestions(ctx, args[0])
		} else {
			due, err = a.sched.AllDueQuestions(ctx)
		}
		if err != nil {
			return fmt.Errorf("due questions: %w", err)
		}

		if len(due) == 0 {
			fmt.Println("Nothing due. Come back tomorrow.")
			return nil
		}
		for i, q := range due {
			line := fmt.Sprintf("%3d. [%s] %s", i+1, q.Topic, q.Title)
			if c, ok := a.sched.Card(q.Topic, q.Title); ok {
				line += fmt.Sprintf("  (box %d, %s", c.Box, c.Difficulty.DisplayName())
				if od := c.OverdueDays(a.sched.Now()); od > 0 {
					line += fmt.Sprintf(", %d days overdue", od)
				}
				line += ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

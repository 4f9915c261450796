package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizbox/internal/questions"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Manage the question bank",
}

var questionsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import questions from .json, .csv or .xlsx",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		tab := questions.DefaultTabularConfig()
		tab.SheetName, _ = cmd.Flags().GetString("sheet")
		if n, _ := cmd.Flags().GetInt("start-row"); n > 0 {
			tab.StartRow = n
		}
		res, err := questions.ImportFile(args[0], tab)
		if err != nil {
			return err
		}

		repo, err := openQuestions(cfg)
		if err != nil {
			return err
		}
		defer repo.Close()

		created, updated := 0, 0
		for _, q := range res.Questions {
			isNew, err := repo.Upsert(ctx, q)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s:%s: %v", q.Topic, q.Title, err))
				continue
			}
			if isNew {
				created++
			} else {
				updated++
			}
		}

		fmt.Printf("imported %d questions (%d new, %d updated, %d skipped)\n",
			created+updated, created, updated, res.Skipped)
		for _, e := range res.Errors {
			fmt.Fprintln(os.Stderr, "  "+e)
		}
		return nil
	},
}

var questionsListCmd = &cobra.Command{
	Use:   "list [topic]",
	Short: "List topics, or the questions of one topic",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		repo, err := openQuestions(cfg)
		if err != nil {
			return err
		}
		defer repo.Close()

		if len(args) == 0 {
			topics, err := repo.ListTopics(ctx)
			if err != nil {
				return err
			}
			for _, t := range topics {
				fmt.Println(t)
			}
			return nil
		}

		titles, err := repo.ListQuestionTitles(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		for i, t := range titles {
			fmt.Printf("%3d. %s\n", i+1, t)
		}
		return nil
	},
}

func init() {
	questionsImportCmd.Flags().String("sheet", "", "Worksheet to read (xlsx; default first sheet)")
	questionsImportCmd.Flags().Int("start-row", 0, "First data row, 1-based (csv/xlsx; default 2)")

	questionsCmd.AddCommand(questionsImportCmd)
	questionsCmd.AddCommand(questionsListCmd)
}

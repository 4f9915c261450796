package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "quizbox",
	Short:         "Adaptive spaced repetition for quiz questions",
	Long:          "quizbox tracks how well each quiz question is known and schedules the next review with a six-box Leitner system.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("data", "", "Progress file or database (overrides QUIZBOX_DATA env var)")
	rootCmd.PersistentFlags().String("backend", "", "Progress backend: file or sqlite (overrides QUIZBOX_BACKEND)")
	rootCmd.PersistentFlags().String("questions", "", "Question bank database (overrides QUIZBOX_QUESTIONS_DB)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(versionCmd)
}

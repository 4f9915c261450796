package cmd

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizbox/internal/questions"
	"github.com/abhisek/quizbox/internal/spacedrep"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record an answer to a question",
	Long: `Record an answer and reschedule the question.

Either pass --correct/--wrong explicitly, or pass --chosen and let the
answer be checked against the question bank.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		topic, _ := cmd.Flags().GetString("topic")
		title, _ := cmd.Flags().GetString("title")
		chosen, _ := cmd.Flags().GetString("chosen")
		ms, _ := cmd.Flags().GetInt64("ms")
		correctSet := cmd.Flags().Changed("correct")
		correctVal, _ := cmd.Flags().GetBool("correct")
		wrongSet := cmd.Flags().Changed("wrong")

		if correctSet && wrongSet {
			return errors.New("--correct and --wrong are mutually exclusive")
		}
		if !correctSet && !wrongSet && chosen == "" {
			return errors.New("one of --correct, --wrong or --chosen is required")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		outcome := spacedrep.Outcome{
			Topic:         topic,
			QuestionTitle: title,
			ChosenAnswer:  chosen,
			Correct:       correctSet && correctVal,
			AnswerTimeMs:  ms,
		}
		if chosen != "" && !correctSet && !wrongSet {
			q, err := findQuestion(cmd, a, topic, title)
			if err != nil {
				return err
			}
			correct := q.CorrectAnswers()
			outcome.Correct = slices.Contains(correct, chosen)
			if len(correct) > 0 {
				outcome.CorrectAnswer = correct[0]
			}
		}

		card := a.sched.RecordOutcome(ctx, outcome)
		verdict := "wrong"
		if outcome.Correct {
			verdict = "correct"
		}
		fmt.Printf("%s: %s\n", card.QuestionID, verdict)
		if !outcome.Correct && outcome.CorrectAnswer != "" {
			fmt.Printf("  correct answer: %s\n", outcome.CorrectAnswer)
		}
		fmt.Printf("  box %d, %s, next review %s\n",
			card.Box, card.Difficulty.DisplayName(), card.NextReviewDate.Format(time.DateOnly))
		return nil
	},
}

func findQuestion(cmd *cobra.Command, a *app, topic, title string) (*questions.Question, error) {
	qs, err := questions.All(cmd.Context(), a.questions, topic)
	if err != nil {
		return nil, err
	}
	for _, q := range qs {
		if q.Title == title {
			return q, nil
		}
	}
	return nil, fmt.Errorf("%w: %s:%s", questions.ErrQuestionNotFound, topic, title)
}

func init() {
	recordCmd.Flags().String("topic", "", "Question topic")
	recordCmd.Flags().String("title", "", "Question title")
	recordCmd.Flags().Bool("correct", false, "The answer was correct")
	recordCmd.Flags().Bool("wrong", false, "The answer was wrong")
	recordCmd.Flags().String("chosen", "", "The chosen answer, checked against the question bank")
	recordCmd.Flags().Int64("ms", 0, "Answer time in milliseconds")
	_ = recordCmd.MarkFlagRequired("topic")
	_ = recordCmd.MarkFlagRequired("title")
}

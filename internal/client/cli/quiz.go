package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/models"
)

const defaultWeakLimit = 10

func quizCommand(with wrapFunc) *cobra.Command {
	quiz := &cobra.Command{
		Use:   "quiz",
		Short: "Record and review quiz answers",
	}

	var add models.QuizResult
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record an answered question",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, c *Cli, _ *cobra.Command, _ []string) error {
			result := add
			return c.runQuizAdd(ctx, &result)
		}),
	}
	addCmd.Flags().StringVarP(&add.Category, "category", "c", "", "Question category")
	addCmd.Flags().StringVarP(&add.Question, "question", "q", "", "Question text")
	addCmd.Flags().StringVarP(&add.UserAnswer, "answer", "a", "", "Your answer")
	addCmd.Flags().StringVar(&add.CorrectAnswer, "correct", "", "Correct answer")
	addCmd.Flags().StringVar(&add.Explanation, "explanation", "", "Explanation of the correct answer")
	addCmd.Flags().StringVar(&add.SessionID, "session", "", "Quiz session id")
	addCmd.Flags().StringSliceVar(&add.Options, "option", nil, "Answer option (repeatable)")
	_ = addCmd.MarkFlagRequired("category")
	_ = addCmd.MarkFlagRequired("question")
	_ = addCmd.MarkFlagRequired("answer")
	_ = addCmd.MarkFlagRequired("correct")

	var listCategories []string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List answered questions, newest first",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, c *Cli, _ *cobra.Command, _ []string) error {
			return c.runQuizList(ctx, listCategories)
		}),
	}
	listCmd.Flags().StringSliceVarP(&listCategories, "category", "c", nil, "Only these categories")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show accuracy per category",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, c *Cli, _ *cobra.Command, _ []string) error {
			return c.runQuizStats(ctx)
		}),
	}

	var weakCategories []string
	var weakLimit int
	weakCmd := &cobra.Command{
		Use:   "weak",
		Short: "Show incorrectly answered questions to review",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, c *Cli, _ *cobra.Command, _ []string) error {
			return c.runQuizWeak(ctx, weakCategories, weakLimit)
		}),
	}
	weakCmd.Flags().StringSliceVarP(&weakCategories, "category", "c", nil, "Only these categories")
	weakCmd.Flags().IntVarP(&weakLimit, "limit", "n", defaultWeakLimit, "Maximum number of questions")

	reviewCmd := &cobra.Command{
		Use:   "review <id>",
		Short: "Mark a question as reviewed",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(ctx context.Context, c *Cli, _ *cobra.Command, args []string) error {
			return c.runQuizReview(ctx, args[0])
		}),
	}

	deleteSessionCmd := &cobra.Command{
		Use:   "delete-session <session-id>",
		Short: "Delete all answers of a quiz session",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(ctx context.Context, c *Cli, _ *cobra.Command, args []string) error {
			return c.runQuizDeleteSession(ctx, args[0])
		}),
	}

	quiz.AddCommand(addCmd, listCmd, statsCmd, weakCmd, reviewCmd, deleteSessionCmd)
	return quiz
}

func (c *Cli) runQuizAdd(ctx context.Context, result *models.QuizResult) error {
	svc, err := c.userData(ctx)
	if err != nil {
		return err
	}
	result.IsCorrect = strings.EqualFold(strings.TrimSpace(result.UserAnswer), strings.TrimSpace(result.CorrectAnswer))

	qr, err := svc.AddQuizResult(ctx, result)
	if err != nil {
		return fmt.Errorf("failed to save quiz result: %w", err)
	}

	if qr.Result.IsCorrect {
		c.io.Println("✓ Correct!")
	} else {
		c.io.Printf("✗ Incorrect, the answer is: %s\n", qr.Result.CorrectAnswer)
		if qr.Result.Explanation != "" {
			c.io.Printf("  %s\n", qr.Result.Explanation)
		}
	}
	c.io.Printf("Saved as %s (queued for sync)\n", qr.RecordID)
	return nil
}

func (c *Cli) runQuizList(ctx context.Context, categories []string) error {
	svc, err := c.userData(ctx)
	if err != nil {
		return err
	}

	var results []*models.QuizRecord
	if len(categories) > 0 {
		results, err = svc.QuestionsByCategories(ctx, categories, 0)
	} else {
		results, err = svc.ListQuizResults(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list quiz results: %w", err)
	}

	if len(results) == 0 {
		c.io.Println("No quiz results found.")
		c.io.Println("Use 'studysync quiz add' to record an answer.")
		return nil
	}

	c.io.Printf("Found %d result(s):\n\n", len(results))
	return c.printQuizTable(results)
}

func (c *Cli) runQuizStats(ctx context.Context) error {
	svc, err := c.userData(ctx)
	if err != nil {
		return err
	}
	perf, err := svc.CategoryPerformance(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}
	if len(perf) == 0 {
		c.io.Println("No quiz results found.")
		return nil
	}

	tw := tabwriter.NewWriter(c.io, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTOTAL\tINCORRECT\tACCURACY")
	for _, p := range perf {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.0f%%\n", p.Category, p.Total, p.Incorrect, p.Accuracy()*100)
	}
	return tw.Flush()
}

func (c *Cli) runQuizWeak(ctx context.Context, categories []string, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}
	svc, err := c.userData(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		all, err := svc.Categories(ctx)
		if err != nil {
			return fmt.Errorf("failed to list categories: %w", err)
		}
		categories = all
	}

	results, err := svc.WeakQuestions(ctx, categories, limit)
	if err != nil {
		return fmt.Errorf("failed to list weak questions: %w", err)
	}
	if len(results) == 0 {
		c.io.Println("No incorrect answers to review. 🎉")
		return nil
	}

	c.io.Printf("%d question(s) to review:\n\n", len(results))
	return c.printQuizTable(results)
}

func (c *Cli) runQuizReview(ctx context.Context, id string) error {
	svc, err := c.userData(ctx)
	if err != nil {
		return err
	}
	qr, err := svc.MarkReviewed(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return fmt.Errorf("quiz result %s not found", id)
		}
		return fmt.Errorf("failed to mark reviewed: %w", err)
	}

	c.io.Printf("Question: %s\n", qr.Result.Question)
	c.io.Printf("Answer:   %s\n", qr.Result.CorrectAnswer)
	if qr.Result.Explanation != "" {
		c.io.Printf("Why:      %s\n", qr.Result.Explanation)
	}
	c.io.Printf("Reviewed %d time(s)\n", qr.Result.ReviewCount)
	return nil
}

func (c *Cli) runQuizDeleteSession(ctx context.Context, sessionID string) error {
	svc, err := c.userData(ctx)
	if err != nil {
		return err
	}
	n, err := svc.DeleteSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	c.io.Printf("Deleted %d answer(s) of session %s\n", n, sessionID)
	return nil
}

func (c *Cli) printQuizTable(results []*models.QuizRecord) error {
	tw := tabwriter.NewWriter(c.io, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tRESULT\tREVIEWS\tANSWERED\tQUESTION")
	for _, qr := range results {
		mark := "✓"
		if !qr.Result.IsCorrect {
			mark = "✗"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			qr.RecordID,
			qr.Result.Category,
			mark,
			qr.Result.ReviewCount,
			qr.Result.CreatedAt.Local().Format(time.DateTime),
			qr.Result.Question,
		)
	}
	return tw.Flush()
}

package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/studysync/internal/client/auth"
	"github.com/iudanet/studysync/internal/models"
)

func addQuiz(t *testing.T, env *testEnv, category, question, answer, correct string) string {
	t.Helper()
	result := &models.QuizResult{
		Category:      category,
		Question:      question,
		UserAnswer:    answer,
		CorrectAnswer: correct,
		SessionID:     "session-1",
	}
	require.NoError(t, env.cli.runQuizAdd(context.Background(), result))

	records, err := env.data.ListQuizResults(context.Background())
	require.NoError(t, err)
	for _, qr := range records {
		if qr.Result.Question == question {
			return qr.RecordID
		}
	}
	t.Fatalf("quiz result %q not stored", question)
	return ""
}

func TestCli_runQuizAdd(t *testing.T) {
	tests := []struct {
		name        string
		answer      string
		correct     string
		wantOutput  string
		wantCorrect bool
	}{
		{name: "exact answer", answer: "Paris", correct: "Paris", wantCorrect: true, wantOutput: "Correct!"},
		{name: "case and spaces ignored", answer: " paris ", correct: "Paris", wantCorrect: true, wantOutput: "Correct!"},
		{name: "wrong answer", answer: "Lyon", correct: "Paris", wantOutput: "Incorrect, the answer is: Paris"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t)

			addQuiz(t, env, "geography", "Capital of France?", tt.answer, tt.correct)

			results, err := env.data.ListQuizResults(ctx)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, tt.wantCorrect, results[0].Result.IsCorrect)
			assert.Contains(t, env.io.output(), tt.wantOutput)

			// запись попала в журнал изменений
			pending, _, err := env.store.PendingCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, pending)
		})
	}
}

func TestCli_runQuizAdd_RequiresQuestion(t *testing.T) {
	env := newTestEnv(t)

	err := env.cli.runQuizAdd(context.Background(), &models.QuizResult{Category: "math"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "category and question are required")
}

func TestCli_runQuizList(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.cli.runQuizList(ctx, nil))
		assert.Contains(t, env.io.output(), "No quiz results found.")
	})

	t.Run("filtered by category", func(t *testing.T) {
		env := newTestEnv(t)
		addQuiz(t, env, "math", "2+2?", "4", "4")
		addQuiz(t, env, "history", "Year of Hastings?", "1067", "1066")

		require.NoError(t, env.cli.runQuizList(ctx, []string{"history"}))

		out := env.io.output()
		assert.Contains(t, out, "Found 1 result(s)")
		assert.Contains(t, out, "Year of Hastings?")
		assert.NotContains(t, out, "2+2?")
	})

	t.Run("all", func(t *testing.T) {
		env := newTestEnv(t)
		addQuiz(t, env, "math", "2+2?", "4", "4")
		addQuiz(t, env, "history", "Year of Hastings?", "1067", "1066")

		require.NoError(t, env.cli.runQuizList(ctx, nil))
		assert.Contains(t, env.io.output(), "Found 2 result(s)")
	})
}

func TestCli_runQuizStats(t *testing.T) {
	env := newTestEnv(t)
	addQuiz(t, env, "math", "2+2?", "4", "4")
	addQuiz(t, env, "math", "3*3?", "6", "9")
	addQuiz(t, env, "history", "Year of Hastings?", "1066", "1066")

	require.NoError(t, env.cli.runQuizStats(context.Background()))

	lines := strings.Split(strings.TrimSpace(env.io.output()), "\n")
	last := lines[len(lines)-2:]
	assert.Regexp(t, `^history\s+1\s+0\s+100%$`, strings.TrimSpace(last[0]))
	assert.Regexp(t, `^math\s+2\s+1\s+50%$`, strings.TrimSpace(last[1]))
}

func TestCli_runQuizWeak(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	addQuiz(t, env, "math", "2+2?", "4", "4")
	addQuiz(t, env, "math", "3*3?", "6", "9")

	require.NoError(t, env.cli.runQuizWeak(ctx, nil, 5))
	out := env.io.output()
	assert.Contains(t, out, "1 question(s) to review")
	assert.Contains(t, out, "3*3?")
	assert.NotContains(t, out, "2+2?")

	assert.Error(t, env.cli.runQuizWeak(ctx, nil, 0))
}

func TestCli_runQuizReview(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := addQuiz(t, env, "math", "3*3?", "6", "9")

	require.NoError(t, env.cli.runQuizReview(ctx, id))
	require.NoError(t, env.cli.runQuizReview(ctx, id))
	assert.Contains(t, env.io.output(), "Reviewed 2 time(s)")

	err := env.cli.runQuizReview(ctx, "missing-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCli_runQuizDeleteSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	addQuiz(t, env, "math", "2+2?", "4", "4")
	addQuiz(t, env, "math", "3*3?", "6", "9")

	require.NoError(t, env.cli.runQuizDeleteSession(ctx, "session-1"))
	assert.Contains(t, env.io.output(), "Deleted 2 answer(s)")

	results, err := env.data.ListQuizResults(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCli_QuizUsesSessionUserRecords(t *testing.T) {
	ctx := context.Background()

	t.Run("not signed in", func(t *testing.T) {
		env := newTestEnv(t)
		env.auth.CurrentFunc = func(ctx context.Context) (*auth.Session, error) {
			return nil, auth.ErrNotSignedIn
		}

		err := env.cli.runQuizList(ctx, nil)
		assert.ErrorIs(t, err, ErrNotSignedIn)
	})

	t.Run("another user sees own records", func(t *testing.T) {
		env := newTestEnv(t)
		addQuiz(t, env, "math", "2+2?", "4", "4")

		env.auth.CurrentFunc = func(ctx context.Context) (*auth.Session, error) {
			return &auth.Session{UserID: "user-456", Username: "bob"}, nil
		}
		require.NoError(t, env.cli.runQuizList(ctx, nil))
		assert.Contains(t, env.io.output(), "No quiz results found.")

		bob, err := env.db.User(ctx, "user-456")
		require.NoError(t, err)
		pending, _, err := bob.PendingCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, pending)
	})
}

package quiz_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-quiz/internal/ai"
	"github.com/p-n-ai/pai-quiz/internal/curriculum"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
	"github.com/p-n-ai/pai-quiz/internal/rotation"
)

func samplePlan(t *testing.T) rotation.Plan {
	t.Helper()
	topics := []curriculum.FlattenedTopic{
		{ExamCode: "PDE", Domain: "Ingesting and processing the data", Section: "Planning data pipelines", Topic: "Pub/Sub messaging patterns", Weight: 2},
	}
	plan, err := rotation.ForDate(topics, time.Date(2026, time.January, 14, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return plan
}

func TestGenerator_Generate(t *testing.T) {
	mock := ai.NewMockProvider("Here you go:\n```json\n" +
		`{"question":"What guarantees ordering?","options":["Ordering keys","Dead-letter topics","Snapshots","Filters"],"correct":0,"explanation":"Ordering keys."}` +
		"\n```")
	plan := samplePlan(t)

	gen := quiz.NewGenerator(quiz.GeneratorConfig{AI: mock})
	q, err := gen.Generate(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, plan.QuizID, q.ID)
	assert.Equal(t, "pde-20260114-pub-sub-messaging-pa", q.ID)
	assert.Equal(t, rotation.DifficultyEasy, q.Difficulty)
	assert.Equal(t, rotation.QuestionTroubleshooting, q.QuestionType)
	assert.Equal(t, "Pub/Sub messaging patterns", q.Topic)
	// No shuffle: option order is trusted.
	assert.Equal(t, 0, q.Correct)
	assert.Equal(t, "Ordering keys", q.Options[0])

	req := mock.LastRequest()
	require.NotNil(t, req)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "PDE")
	assert.Contains(t, req.Messages[1].Content, "Topic: Pub/Sub messaging patterns")
	assert.Contains(t, req.Messages[1].Content, "Difficulty: easy")
	assert.Contains(t, req.Messages[1].Content, "Question style: troubleshooting")
	assert.Equal(t, 0.7, req.Temperature)
	assert.Equal(t, 2048, req.MaxTokens)
	assert.True(t, req.JSONOutput)
}

func TestGenerator_Generate_Shuffled(t *testing.T) {
	mock := ai.NewMockProvider(`{"question":"Q","options":["right","w1","w2","w3"],"correct":0,"explanation":"E"}`)
	plan := samplePlan(t)

	for seed := uint64(0); seed < 10; seed++ {
		gen := quiz.NewGenerator(quiz.GeneratorConfig{
			AI:      mock,
			Shuffle: true,
			Rand:    rotation.NewSeeded(seed),
		})
		q, err := gen.Generate(context.Background(), plan)
		require.NoError(t, err)
		assert.Equal(t, "right", q.CorrectOption(), "seed %d", seed)
	}
}

func TestGenerator_Generate_AIError(t *testing.T) {
	mock := &ai.MockProvider{Err: errors.New("quota exceeded")}
	gen := quiz.NewGenerator(quiz.GeneratorConfig{AI: mock})

	_, err := gen.Generate(context.Background(), samplePlan(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 1, mock.Calls(), "generator must not retry")
}

func TestGenerator_Generate_ParseError(t *testing.T) {
	gen := quiz.NewGenerator(quiz.GeneratorConfig{AI: ai.NewMockProvider("Sorry, I can't do that.")})

	_, err := gen.Generate(context.Background(), samplePlan(t))
	var perr *quiz.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, quiz.StageSyntax, perr.Stage)
	assert.Equal(t, "Sorry, I can't do that.", perr.Input)
}

func TestLoadPrompts_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "system-prompt.md"), []byte("SYS {{.ExamCode}}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generate-quiz.md"), []byte("USER {{.Topic}} {{.Difficulty}} {{.QuestionType}}"), 0o644))

	prompts, err := quiz.LoadPrompts(dir)
	require.NoError(t, err)

	system, user, err := prompts.Render(quiz.PromptDataFor(samplePlan(t)))
	require.NoError(t, err)
	assert.Equal(t, "SYS PDE", system)
	assert.Equal(t, "USER Pub/Sub messaging patterns easy troubleshooting", user)
}

func TestLoadPrompts_Errors(t *testing.T) {
	_, err := quiz.LoadPrompts(t.TempDir())
	assert.Error(t, err, "missing files")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "system-prompt.md"), []byte("{{.Nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generate-quiz.md"), []byte("ok"), 0o644))
	_, err = quiz.LoadPrompts(dir)
	assert.Error(t, err, "broken template")
}

func TestDefaultPrompts_QuestionStyles(t *testing.T) {
	prompts := quiz.DefaultPrompts()
	data := quiz.PromptDataFor(samplePlan(t))

	for qt, hint := range map[rotation.QuestionType]string{
		rotation.QuestionConcept:         "what a service or feature is",
		rotation.QuestionBestPractice:    "recommended approach",
		rotation.QuestionTroubleshooting: "most likely cause",
	} {
		data.QuestionType = qt
		_, user, err := prompts.Render(data)
		require.NoError(t, err)
		assert.True(t, strings.Contains(user, hint), "%s prompt should contain %q", qt, hint)
		assert.Contains(t, user, `"correct": 0`)
	}
}

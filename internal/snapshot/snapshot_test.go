package snapshot_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
	"github.com/p-n-ai/pai-quiz/internal/rotation"
	"github.com/p-n-ai/pai-quiz/internal/snapshot"
)

func sampleQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID:           "pde-20260110-b",
		ExamCode:     "PDE",
		Domain:       "D",
		Section:      "S",
		Topic:        "B",
		Difficulty:   rotation.DifficultyHard,
		QuestionType: rotation.QuestionBestPractice,
		Question:     "Q?\nwith `code`",
		Options:      [4]string{"1", "2", "3", "4"},
		Correct:      2,
		Explanation:  "E",
	}
}

func TestStore_QuizRoundTrip(t *testing.T) {
	store := snapshot.NewStore(filepath.Join(t.TempDir(), "data"))

	require.NoError(t, store.SaveQuiz(sampleQuiz()))
	got, err := store.LoadQuiz()
	require.NoError(t, err)
	assert.Equal(t, sampleQuiz(), got)
}

func TestStore_PostRoundTrip(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	post := quiz.QuizPost{
		Quiz:      sampleQuiz(),
		MessageID: "m-1",
		ChannelID: "c-1",
		PostedAt:  time.Date(2026, time.January, 10, 5, 0, 0, 0, time.UTC),
	}

	require.NoError(t, store.SavePost(post))
	got, err := store.LoadPost()
	require.NoError(t, err)
	assert.Equal(t, post, got)
}

func TestStore_FileFormat(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	require.NoError(t, store.SavePost(quiz.QuizPost{
		Quiz:      sampleQuiz(),
		MessageID: "m-1",
		ChannelID: "c-1",
		PostedAt:  time.Date(2026, time.January, 10, 5, 0, 0, 0, time.UTC),
	}))

	data, err := os.ReadFile(store.Path(snapshot.PostFile))
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "{\n  \"quiz\": {\n    \"id\""), text)
	assert.Contains(t, text, `"posted_at": "2026-01-10T05:00:00Z"`)
	assert.True(t, strings.HasSuffix(text, "}\n"))

	entries, err := os.ReadDir(filepath.Dir(store.Path(snapshot.PostFile)))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStore_NotFound(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())

	_, err := store.LoadQuiz()
	assert.True(t, errors.Is(err, snapshot.ErrNotFound))

	_, err = store.LoadPost()
	assert.True(t, errors.Is(err, snapshot.ErrNotFound))
}

func TestStore_LoadPost_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":           `{`,
		"missing message id": `{"quiz":` + validQuizJSON + `,"channel_id":"c","posted_at":"2026-01-10T05:00:00Z"}`,
		"bad timestamp":      `{"quiz":` + validQuizJSON + `,"message_id":"m","channel_id":"c","posted_at":"yesterday"}`,
		"three options":      `{"quiz":` + strings.Replace(validQuizJSON, `"1","2","3","4"`, `"1","2","3"`, 1) + `,"message_id":"m","channel_id":"c","posted_at":"2026-01-10T05:00:00Z"}`,
		"correct too high":   `{"quiz":` + strings.Replace(validQuizJSON, `"correct":2`, `"correct":7`, 1) + `,"message_id":"m","channel_id":"c","posted_at":"2026-01-10T05:00:00Z"}`,
		"blank question":     `{"quiz":` + strings.Replace(validQuizJSON, `"question":"Q"`, `"question":"  "`, 1) + `,"message_id":"m","channel_id":"c","posted_at":"2026-01-10T05:00:00Z"}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, snapshot.PostFile), []byte(body), 0o644))

			_, err := snapshot.NewStore(dir).LoadPost()
			require.Error(t, err)
			assert.False(t, errors.Is(err, snapshot.ErrNotFound))
		})
	}
}

const validQuizJSON = `{"id":"x","exam_code":"PDE","domain":"D","section":"S","topic":"T","difficulty":"easy","question":"Q","options":["1","2","3","4"],"correct":2,"explanation":"E"}`

func TestStore_LoadPost_Minimal(t *testing.T) {
	dir := t.TempDir()
	body := `{"quiz":` + validQuizJSON + `,"message_id":"m","channel_id":"c","posted_at":"2026-01-10T05:00:00Z"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, snapshot.PostFile), []byte(body), 0o644))

	post, err := snapshot.NewStore(dir).LoadPost()
	require.NoError(t, err)
	assert.Equal(t, "m", post.MessageID)
	assert.Equal(t, 2, post.Quiz.Correct)
	assert.Empty(t, post.Quiz.QuestionType)
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	first := sampleQuiz()
	second := sampleQuiz()
	second.ID = "pde-20260111-b"

	require.NoError(t, store.SaveQuiz(first))
	require.NoError(t, store.SaveQuiz(second))

	got, err := store.LoadQuiz()
	require.NoError(t, err)
	assert.Equal(t, "pde-20260111-b", got.ID)
}

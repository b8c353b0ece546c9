package quiz_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
	"github.com/p-n-ai/pai-quiz/internal/rotation"
)

func validQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID:          "pde-20260110-windowing",
		ExamCode:    "PDE",
		Domain:      "Processing",
		Section:     "Streaming",
		Topic:       "Windowing",
		Difficulty:  rotation.DifficultyHard,
		Question:    "Which window type fits user sessions?",
		Options:     [4]string{"Fixed", "Sliding", "Session", "Global"},
		Correct:     2,
		Explanation: "Session windows close after a gap in activity.",
	}
}

func TestQuiz_Validate(t *testing.T) {
	require.NoError(t, validQuiz().Validate())

	tests := map[string]func(q *quiz.Quiz){
		"empty id":           func(q *quiz.Quiz) { q.ID = "" },
		"empty exam":         func(q *quiz.Quiz) { q.ExamCode = "" },
		"unknown difficulty": func(q *quiz.Quiz) { q.Difficulty = "extreme" },
		"blank question":     func(q *quiz.Quiz) { q.Question = " " },
		"missing option":     func(q *quiz.Quiz) { q.Options[3] = "" },
		"correct too high":   func(q *quiz.Quiz) { q.Correct = 4 },
		"correct negative":   func(q *quiz.Quiz) { q.Correct = -1 },
		"empty explanation":  func(q *quiz.Quiz) { q.Explanation = "" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			q := validQuiz()
			mutate(&q)
			err := q.Validate()
			assert.True(t, errors.Is(err, quiz.ErrInvalidQuiz), "got %v", err)
		})
	}
}

func TestQuiz_JSONShape(t *testing.T) {
	data, err := json.Marshal(validQuiz())
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	for _, key := range []string{"id", "exam_code", "domain", "section", "topic", "difficulty", "question", "options", "correct", "explanation"} {
		assert.Contains(t, flat, key)
	}
	assert.NotContains(t, flat, "question_type", "empty question type is omitted")
	assert.Len(t, flat["options"], 4)
}

func TestReactionStats_Totals(t *testing.T) {
	s := quiz.ReactionStats{A: 2, B: 0, C: 5, D: 1}
	assert.Equal(t, 8, s.Total())
	assert.Equal(t, [4]int{2, 0, 5, 1}, s.Counts())
}

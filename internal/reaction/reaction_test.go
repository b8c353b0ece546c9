package reaction_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
	"github.com/p-n-ai/pai-quiz/internal/reaction"
)

func TestTally_Example(t *testing.T) {
	stats := reaction.Tally([]reaction.Count{
		{Emoji: "🅰️", Count: 3},
		{Emoji: "🅱️", Count: 1},
		{Emoji: "🇨", Count: 0},
		{Emoji: "🇩", Count: 0},
	}, nil)

	assert.Equal(t, quiz.ReactionStats{A: 2, B: 0, C: 0, D: 0}, stats)
	assert.Equal(t, 1.0, reaction.CorrectRate(stats, 0))
}

func TestTally_IgnoresUnmappedAndNeverNegative(t *testing.T) {
	stats := reaction.Tally([]reaction.Count{
		{Emoji: "👍", Count: 10},
		{Emoji: "🇩", Count: 1},
		{Emoji: "🇨", Count: -4},
		{Emoji: "🅱", Count: 5}, // without the variation selector
	}, reaction.DefaultMapping())

	assert.Equal(t, quiz.ReactionStats{A: 0, B: 4, C: 0, D: 0}, stats)
	for _, c := range stats.Counts() {
		assert.GreaterOrEqual(t, c, 0)
	}
}

func TestTally_CustomMapping(t *testing.T) {
	stats := reaction.Tally([]reaction.Count{
		{Emoji: "1️⃣", Count: 2},
		{Emoji: "4️⃣", Count: 6},
		{Emoji: "🅰️", Count: 9},
	}, map[string]int{"1️⃣": 0, "2️⃣": 1, "3️⃣": 2, "4️⃣": 3})

	assert.Equal(t, quiz.ReactionStats{A: 1, D: 5}, stats)
}

func TestTally_Empty(t *testing.T) {
	stats := reaction.Tally(nil, nil)
	assert.Equal(t, quiz.ReactionStats{}, stats)
	assert.False(t, reaction.HasAnyResponses(stats))
}

func TestHasAnyResponses(t *testing.T) {
	assert.False(t, reaction.HasAnyResponses(quiz.ReactionStats{}))
	assert.True(t, reaction.HasAnyResponses(quiz.ReactionStats{D: 1}))
}

func TestCorrectRate(t *testing.T) {
	tests := map[string]struct {
		stats   quiz.ReactionStats
		correct int
		want    float64
	}{
		"no answers":        {quiz.ReactionStats{}, 2, 0},
		"all correct":       {quiz.ReactionStats{C: 7}, 2, 1},
		"none correct":      {quiz.ReactionStats{A: 3, B: 1}, 3, 0},
		"quarter":           {quiz.ReactionStats{A: 1, B: 1, C: 1, D: 1}, 1, 0.25},
		"index out of range": {quiz.ReactionStats{A: 1}, 4, 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := reaction.CorrectRate(tt.stats, tt.correct)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.False(t, got != got, "NaN")
		})
	}
}

func TestEmojiFor(t *testing.T) {
	for i, e := range reaction.OptionEmojis {
		assert.Equal(t, e, reaction.EmojiFor(i))
		assert.Equal(t, i, reaction.DefaultMapping()[e])
	}
	assert.Empty(t, reaction.EmojiFor(4))
	assert.Empty(t, reaction.EmojiFor(-1))
}

func TestSummarize(t *testing.T) {
	post := quiz.QuizPost{
		Quiz:      quiz.Quiz{ID: "pde-20260110-b", Correct: 1},
		MessageID: "m1",
		ChannelID: "c1",
		PostedAt:  time.Date(2026, time.January, 10, 5, 0, 0, 0, time.UTC),
	}
	stats := quiz.ReactionStats{A: 1, B: 3}

	got := reaction.Summarize(post, stats)
	assert.Equal(t, post, got.QuizPost)
	assert.Equal(t, stats, got.Reactions)
	assert.Equal(t, 4, got.TotalAnswers)
	assert.InDelta(t, 0.75, got.CorrectRate, 1e-9)
}

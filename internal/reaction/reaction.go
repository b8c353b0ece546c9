// Package reaction turns per-emoji reaction counts on a posted quiz into an
// answer tally.
package reaction

import (
	"strings"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

// OptionEmojis are the reactions used to answer options 0 to 3.
var OptionEmojis = [quiz.OptionCount]string{"🅰️", "🅱️", "🇨", "🇩"}

// variationSelector is the emoji presentation selector (U+FE0F). Some
// clients drop it, so lookups ignore it.
const variationSelector = "️"

// Count is one reaction as reported by the messaging platform.
type Count struct {
	Emoji string
	Count int
}

// EmojiFor returns the reaction emoji of option index, or "" when the index
// is out of range.
func EmojiFor(index int) string {
	if index < 0 || index >= quiz.OptionCount {
		return ""
	}
	return OptionEmojis[index]
}

// DefaultMapping maps each option emoji to its option index.
func DefaultMapping() map[string]int {
	m := make(map[string]int, quiz.OptionCount)
	for i, e := range OptionEmojis {
		m[e] = i
	}
	return m
}

// Tally maps raw reaction counts onto options. Emojis missing from mapping
// are ignored. Each mapped count drops by one for the bot's own seed
// reaction and never goes below zero. A nil mapping uses DefaultMapping.
func Tally(counts []Count, mapping map[string]int) quiz.ReactionStats {
	if mapping == nil {
		mapping = DefaultMapping()
	}
	index := make(map[string]int, len(mapping))
	for emoji, i := range mapping {
		index[normalize(emoji)] = i
	}

	var tally [quiz.OptionCount]int
	for _, c := range counts {
		i, ok := index[normalize(c.Emoji)]
		if !ok || i < 0 || i >= quiz.OptionCount {
			continue
		}
		tally[i] = max(0, c.Count-1)
	}

	return quiz.ReactionStats{A: tally[0], B: tally[1], C: tally[2], D: tally[3]}
}

func normalize(emoji string) string {
	return strings.ReplaceAll(emoji, variationSelector, "")
}

// HasAnyResponses reports whether anyone other than the bot answered.
func HasAnyResponses(s quiz.ReactionStats) bool {
	return s.A > 0 || s.B > 0 || s.C > 0 || s.D > 0
}

// CorrectRate is the share of answers on the correct option, in [0, 1]. It
// is 0 when nobody answered.
func CorrectRate(s quiz.ReactionStats, correct int) float64 {
	total := s.Total()
	if total == 0 || correct < 0 || correct >= quiz.OptionCount {
		return 0
	}
	return float64(s.Counts()[correct]) / float64(total)
}

// Summarize combines a post with its tally.
func Summarize(post quiz.QuizPost, s quiz.ReactionStats) quiz.QuizStats {
	return quiz.QuizStats{
		QuizPost:     post,
		Reactions:    s,
		TotalAnswers: s.Total(),
		CorrectRate:  CorrectRate(s, post.Quiz.Correct),
	}
}

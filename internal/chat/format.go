package chat

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
	"github.com/p-n-ai/pai-quiz/internal/reaction"
	"github.com/p-n-ai/pai-quiz/internal/rotation"
)

// Discord embed limits, in characters.
const (
	discordMaxContent     = 2000
	discordMaxTitle       = 256
	discordMaxDescription = 4096
	discordMaxFieldName   = 256
	discordMaxFieldValue  = 1024
	discordMaxFooter      = 2048
)

const (
	colorEasy   = 0x00ff00
	colorMedium = 0xffff00
	colorHard   = 0xff0000
	colorAnswer = 0x5865f2
)

// DifficultyLabel returns the display label of a difficulty.
func DifficultyLabel(d rotation.Difficulty) string {
	switch d {
	case rotation.DifficultyEasy:
		return "🟢 Easy"
	case rotation.DifficultyMedium:
		return "🟡 Medium"
	case rotation.DifficultyHard:
		return "🔴 Hard"
	}
	return string(d)
}

// DifficultyColor returns the embed colour of a difficulty.
func DifficultyColor(d rotation.Difficulty) int {
	switch d {
	case rotation.DifficultyMedium:
		return colorMedium
	case rotation.DifficultyHard:
		return colorHard
	}
	return colorEasy
}

// QuestionEmbed formats a quiz for posting. Options are prefixed with the
// reaction emoji used to answer them.
func QuestionEmbed(q quiz.Quiz, now time.Time) Embed {
	opts := make([]string, len(q.Options))
	for i, o := range q.Options {
		opts[i] = reaction.EmojiFor(i) + " " + o
	}

	fields := []EmbedField{
		{Name: "Options", Value: strings.Join(opts, "\n\n")},
		{Name: "Topic", Value: q.Domain + " > " + q.Section, Inline: true},
		{Name: "Difficulty", Value: DifficultyLabel(q.Difficulty), Inline: true},
	}
	if q.QuestionType != "" {
		fields = append(fields, EmbedField{Name: "Style", Value: string(q.QuestionType), Inline: true})
	}

	return Embed{
		Title:       fmt.Sprintf("📝 %s Daily Quiz", q.ExamCode),
		Description: q.Question,
		Color:       DifficultyColor(q.Difficulty),
		Fields:      fields,
		Footer:      "Quiz ID: " + q.ID,
		Timestamp:   now,
	}
}

func answerHeader(q quiz.Quiz, now time.Time) Embed {
	return Embed{
		Title:       fmt.Sprintf("✅ Answer: %s Daily Quiz", q.ExamCode),
		Description: fmt.Sprintf("**The correct answer is %s**\n\n%s", reaction.EmojiFor(q.Correct), q.CorrectOption()),
		Color:       colorAnswer,
		Footer:      "Quiz ID: " + q.ID,
		Timestamp:   now,
	}
}

// AnswerEmbed reveals the correct answer without audience statistics.
func AnswerEmbed(q quiz.Quiz, now time.Time) Embed {
	e := answerHeader(q, now)
	e.Fields = []EmbedField{
		{Name: "📚 Explanation", Value: q.Explanation},
		{Name: "Topic", Value: q.TopicPath()},
	}
	return e
}

// AnswerEmbedWithStats reveals the correct answer with the vote tally.
func AnswerEmbedWithStats(q quiz.Quiz, stats quiz.ReactionStats, now time.Time) Embed {
	counts := stats.Counts()
	lines := make([]string, len(counts))
	for i, n := range counts {
		line := fmt.Sprintf("%s: %d votes", reaction.EmojiFor(i), n)
		if i == q.Correct {
			line += " ✓"
		}
		lines[i] = line
	}

	total := stats.Total()
	rate := reaction.CorrectRate(stats, q.Correct) * 100
	results := fmt.Sprintf("%s\n\n**Correct rate: %.1f%%** (%d/%d)", strings.Join(lines, "\n"), rate, counts[q.Correct], total)

	e := answerHeader(q, now)
	e.Fields = []EmbedField{
		{Name: "📊 Results", Value: results},
		{Name: "📚 Explanation", Value: q.Explanation},
		{Name: "Topic", Value: q.TopicPath()},
	}
	return e
}

// Text renders an embed as plain text, for logs and dry runs.
func (e Embed) Text() string {
	var b strings.Builder
	b.WriteString(e.Title)
	b.WriteString("\n")
	b.WriteString(e.Description)
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "\n\n[%s]\n%s", f.Name, f.Value)
	}
	if e.Footer != "" {
		b.WriteString("\n\n")
		b.WriteString(e.Footer)
	}
	return b.String()
}

// clip shortens s to at most maxLen characters, cutting at the last newline
// or space in the second half of the allowance when there is one.
func clip(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	const ellipsis = "…"
	runes := []rune(s)[:maxLen-1]
	cut := string(runes)
	if idx := strings.LastIndex(cut, "\n"); idx > len(cut)/2 {
		cut = cut[:idx]
	} else if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return cut + ellipsis
}

// Package quiz holds the quiz entities and turns free-form generated text
// into a validated, de-biased Quiz.
package quiz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/rotation"
)

// OptionCount is the number of answer options every quiz carries.
const OptionCount = 4

// ErrInvalidQuiz is wrapped by every Quiz.Validate failure.
var ErrInvalidQuiz = errors.New("invalid quiz")

// Quiz is one generated multiple-choice question. It is immutable once built.
type Quiz struct {
	ID           string                `json:"id"`
	ExamCode     string                `json:"exam_code"`
	Domain       string                `json:"domain"`
	Section      string                `json:"section"`
	Topic        string                `json:"topic"`
	Difficulty   rotation.Difficulty   `json:"difficulty"`
	QuestionType rotation.QuestionType `json:"question_type,omitempty"`
	Question     string                `json:"question"`
	Options      [OptionCount]string   `json:"options"`
	Correct      int                   `json:"correct"`
	Explanation  string                `json:"explanation"`
}

// CorrectOption returns the text of the correct answer.
func (q Quiz) CorrectOption() string {
	return q.Options[q.Correct]
}

// TopicPath renders "domain > section > topic".
func (q Quiz) TopicPath() string {
	return q.Domain + " > " + q.Section + " > " + q.Topic
}

// Validate checks the invariants a quiz must hold before it is posted or
// after it is read back from a snapshot.
func (q Quiz) Validate() error {
	var problems []string
	if q.ID == "" {
		problems = append(problems, "id is empty")
	}
	if q.ExamCode == "" {
		problems = append(problems, "exam_code is empty")
	}
	if !q.Difficulty.Valid() {
		problems = append(problems, fmt.Sprintf("difficulty %q is not easy, medium or hard", q.Difficulty))
	}
	if strings.TrimSpace(q.Question) == "" {
		problems = append(problems, "question is empty")
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			problems = append(problems, fmt.Sprintf("option %d is empty", i))
		}
	}
	if q.Correct < 0 || q.Correct >= OptionCount {
		problems = append(problems, fmt.Sprintf("correct index %d out of range [0,3]", q.Correct))
	}
	if strings.TrimSpace(q.Explanation) == "" {
		problems = append(problems, "explanation is empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidQuiz, strings.Join(problems, "; "))
	}
	return nil
}

// QuizPost is a quiz that was delivered to a channel.
type QuizPost struct {
	Quiz      Quiz      `json:"quiz"`
	MessageID string    `json:"message_id"`
	ChannelID string    `json:"channel_id"`
	PostedAt  time.Time `json:"posted_at"`
}

// ReactionStats counts audience answers per option, net of the bot's own
// seed reaction.
type ReactionStats struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
	D int `json:"d"`
}

// Counts returns the four counts in option order.
func (s ReactionStats) Counts() [OptionCount]int {
	return [OptionCount]int{s.A, s.B, s.C, s.D}
}

// Total is the number of answers across all options.
func (s ReactionStats) Total() int {
	return s.A + s.B + s.C + s.D
}

// QuizStats is a posted quiz with its aggregated reactions.
type QuizStats struct {
	QuizPost     QuizPost      `json:"quiz_post"`
	Reactions    ReactionStats `json:"reactions"`
	TotalAnswers int           `json:"total_answers"`
	CorrectRate  float64       `json:"correct_rate"`
}

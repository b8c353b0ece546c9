// Package rotation maps a timestamp to the topic, difficulty and question
// type of a quiz. Every selection is a pure function of the timestamp, so a
// re-run for the same slot reproduces the same quiz without stored state.
//
// All calendar math uses UTC. The slot boundaries (04:00 and 09:00 UTC) line
// up with three posting times in Japan Standard Time.
package rotation

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-quiz/internal/curriculum"
)

// Difficulty of a generated question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// QuestionType is the style of question asked in a slot.
type QuestionType string

const (
	QuestionConcept         QuestionType = "concept"
	QuestionBestPractice    QuestionType = "best-practice"
	QuestionTroubleshooting QuestionType = "troubleshooting"
)

// SlotsPerDay is the number of quizzes posted per day.
const SlotsPerDay = 3

// slotStartHours holds the first UTC hour of slots 1 and 2.
var slotStartHours = [SlotsPerDay - 1]int{4, 9}

// slotQuestionTypes pairs each slot with its question type.
var slotQuestionTypes = [SlotsPerDay]QuestionType{
	QuestionConcept,
	QuestionBestPractice,
	QuestionTroubleshooting,
}

const slugMaxLen = 20

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// DayOfYear returns the 1-based calendar day of t within its year.
func DayOfYear(t time.Time) int {
	return t.UTC().YearDay()
}

// TimeSlot returns 0, 1 or 2 depending on the UTC hour of t.
func TimeSlot(t time.Time) int {
	hour := t.UTC().Hour()
	slot := 0
	for i, start := range slotStartHours {
		if hour >= start {
			slot = i + 1
		}
	}
	return slot
}

// QuestionTypeFor returns the question type of the slot t falls in.
func QuestionTypeFor(t time.Time) QuestionType {
	return slotQuestionTypes[TimeSlot(t)]
}

// DifficultyFor picks difficulty by weekday: Monday to Wednesday are easy,
// Thursday and Friday medium, the weekend hard.
func DifficultyFor(t time.Time) Difficulty {
	switch t.UTC().Weekday() {
	case time.Monday, time.Tuesday, time.Wednesday:
		return DifficultyEasy
	case time.Thursday, time.Friday:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// SelectTopicByDate picks topics[(dayOfYear*3 + slot) % len(topics)].
func SelectTopicByDate(topics []curriculum.FlattenedTopic, t time.Time) (curriculum.FlattenedTopic, error) {
	if len(topics) == 0 {
		return curriculum.FlattenedTopic{}, curriculum.ErrEmptyTopicSet
	}
	index := (DayOfYear(t)*SlotsPerDay + TimeSlot(t)) % len(topics)
	return topics[index], nil
}

// Float64Source yields uniform values in [0, 1). *rand.Rand satisfies it.
type Float64Source interface {
	Float64() float64
}

// NewSeeded returns a deterministic generator: the same seed always yields
// the same sequence.
func NewSeeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

type entropySource struct{}

func (entropySource) Float64() float64 { return rand.Float64() }
func (entropySource) IntN(n int) int   { return rand.IntN(n) }

// Entropy is the non-deterministic source used when no generator is given.
var Entropy = entropySource{}

// SelectTopicWeighted draws one topic with probability proportional to its
// weight. A nil src uses Entropy. If rounding leaves the threshold positive
// after the whole walk, the last topic is returned.
func SelectTopicWeighted(topics []curriculum.FlattenedTopic, src Float64Source) (curriculum.FlattenedTopic, error) {
	if len(topics) == 0 {
		return curriculum.FlattenedTopic{}, curriculum.ErrEmptyTopicSet
	}
	if src == nil {
		src = Entropy
	}

	var total float64
	for _, t := range topics {
		total += t.Weight
	}

	threshold := src.Float64() * total
	for _, t := range topics {
		threshold -= t.Weight
		if threshold <= 0 {
			return t, nil
		}
	}
	return topics[len(topics)-1], nil
}

// GenerateQuizID builds "<exam>-<YYYYMMDD>-<slug>". The id is the
// idempotency key of a quiz: identical inputs always give identical ids.
func GenerateQuizID(topic curriculum.FlattenedTopic, t time.Time) string {
	lower := cases.Lower(language.Und)
	exam := lower.String(norm.NFKC.String(topic.ExamCode))
	return fmt.Sprintf("%s-%s-%s", exam, t.UTC().Format("20060102"), Slug(topic.Topic))
}

// Slug lower-cases s, collapses every run of characters outside [a-z0-9]
// into "-", trims separators from both ends and keeps at most 20 bytes.
// Trimming happens before the cut, so a long slug may end in "-".
func Slug(s string) string {
	s = cases.Lower(language.Und).String(norm.NFKC.String(s))
	s = slugSeparators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > slugMaxLen {
		s = s[:slugMaxLen]
	}
	return s
}

// Plan is everything rotation decides for one run.
type Plan struct {
	Topic        curriculum.FlattenedTopic
	Slot         int
	Difficulty   Difficulty
	QuestionType QuestionType
	QuizID       string
	At           time.Time
}

// LedgerKey identifies the slot a plan was made for. Two slots of one day
// can share a quiz id, so the slot number is part of the key.
func (p Plan) LedgerKey() string {
	return fmt.Sprintf("%s:%d", p.QuizID, p.Slot)
}

// ForDate computes the plan for t.
func ForDate(topics []curriculum.FlattenedTopic, t time.Time) (Plan, error) {
	topic, err := SelectTopicByDate(topics, t)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		Topic:        topic,
		Slot:         TimeSlot(t),
		Difficulty:   DifficultyFor(t),
		QuestionType: QuestionTypeFor(t),
		QuizID:       GenerateQuizID(topic, t),
		At:           t,
	}, nil
}

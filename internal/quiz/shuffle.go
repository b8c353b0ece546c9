package quiz

import (
	"github.com/p-n-ai/pai-quiz/internal/curriculum"
	"github.com/p-n-ai/pai-quiz/internal/rotation"
)

// IntNSource yields uniform integers in [0, n). *rand.Rand satisfies it.
type IntNSource interface {
	IntN(n int) int
}

// Shuffle permutes the options with an unbiased Fisher-Yates shuffle and
// moves the correct index along with its option. Generation services tend to
// put the right answer first; shuffling keeps that from skewing the vote.
// A nil src uses rotation.Entropy.
func Shuffle(ans RawAnswer, src IntNSource) ([OptionCount]string, int) {
	if src == nil {
		src = rotation.Entropy
	}

	perm := [OptionCount]int{0, 1, 2, 3}
	for i := OptionCount - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}

	var options [OptionCount]string
	correct := 0
	for pos, from := range perm {
		options[pos] = ans.Options[from]
		if from == ans.Correct {
			correct = pos
		}
	}
	return options, correct
}

// Build assembles a Quiz from a topic and a validated (and optionally
// shuffled) answer.
func Build(topic curriculum.FlattenedTopic, difficulty rotation.Difficulty, id string, ans RawAnswer) Quiz {
	return Quiz{
		ID:          id,
		ExamCode:    topic.ExamCode,
		Domain:      topic.Domain,
		Section:     topic.Section,
		Topic:       topic.Topic,
		Difficulty:  difficulty,
		Question:    ans.Question,
		Options:     ans.Options,
		Correct:     ans.Correct,
		Explanation: ans.Explanation,
	}
}

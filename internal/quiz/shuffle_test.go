package quiz_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-quiz/internal/curriculum"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
	"github.com/p-n-ai/pai-quiz/internal/rotation"
)

func sampleAnswer(correct int) quiz.RawAnswer {
	return quiz.RawAnswer{
		Question:    "Which service stores wide-column data?",
		Options:     [4]string{"Bigtable", "Cloud SQL", "Firestore", "Memorystore"},
		Correct:     correct,
		Explanation: "Bigtable is a wide-column store.",
	}
}

func sorted(opts [4]string) []string {
	out := append([]string(nil), opts[:]...)
	sort.Strings(out)
	return out
}

func TestShuffle_PreservesOptionsAndCorrectText(t *testing.T) {
	for correct := 0; correct < 4; correct++ {
		ans := sampleAnswer(correct)
		want := ans.Options[correct]

		for seed := uint64(0); seed < 50; seed++ {
			opts, idx := quiz.Shuffle(ans, rotation.NewSeeded(seed))

			require.Equal(t, sorted(ans.Options), sorted(opts), "seed %d", seed)
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, 4)
			require.Equal(t, want, opts[idx], "seed %d", seed)
		}
	}
}

func TestShuffle_DoesNotMutateInput(t *testing.T) {
	ans := sampleAnswer(0)
	before := ans.Options

	quiz.Shuffle(ans, rotation.NewSeeded(7))
	assert.Equal(t, before, ans.Options)
}

func TestShuffle_SeededIsReproducible(t *testing.T) {
	a, ai := quiz.Shuffle(sampleAnswer(1), rotation.NewSeeded(42))
	b, bi := quiz.Shuffle(sampleAnswer(1), rotation.NewSeeded(42))
	assert.Equal(t, a, b)
	assert.Equal(t, ai, bi)
}

// Every one of the 24 permutations must be reachable, and the correct
// answer must land in every position.
func TestShuffle_Unbiased(t *testing.T) {
	ans := sampleAnswer(0)
	src := rotation.NewSeeded(1)

	perms := map[[4]string]int{}
	positions := [4]int{}
	const runs = 24000
	for i := 0; i < runs; i++ {
		opts, idx := quiz.Shuffle(ans, src)
		perms[opts]++
		positions[idx]++
	}

	assert.Len(t, perms, 24)
	for pos, n := range positions {
		// Expect ~6000 each; allow a generous band.
		assert.InDelta(t, runs/4, n, 600, "position %d", pos)
	}
}

func TestShuffle_NilSource(t *testing.T) {
	ans := sampleAnswer(2)
	opts, idx := quiz.Shuffle(ans, nil)
	assert.Equal(t, ans.Options[2], opts[idx])
}

func TestBuild(t *testing.T) {
	topic := curriculum.FlattenedTopic{
		ExamCode: "PDE",
		Domain:   "Storing the data",
		Section:  "Selecting storage systems",
		Topic:    "Bigtable schema design",
		Weight:   2,
	}
	ans := sampleAnswer(0)

	q := quiz.Build(topic, rotation.DifficultyMedium, "pde-20260105-bigtable-schema-desi", ans)

	assert.Equal(t, "pde-20260105-bigtable-schema-desi", q.ID)
	assert.Equal(t, "PDE", q.ExamCode)
	assert.Equal(t, "Storing the data", q.Domain)
	assert.Equal(t, "Selecting storage systems", q.Section)
	assert.Equal(t, "Bigtable schema design", q.Topic)
	assert.Equal(t, rotation.DifficultyMedium, q.Difficulty)
	assert.Equal(t, ans.Options, q.Options)
	assert.Equal(t, "Bigtable", q.CorrectOption())
	assert.Equal(t, "Storing the data > Selecting storage systems > Bigtable schema design", q.TopicPath())
	assert.NoError(t, q.Validate())
}

package quiz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-quiz/internal/ai"
	"github.com/p-n-ai/pai-quiz/internal/rotation"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2048
)

// Completer is the generation service. *ai.Router satisfies it.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// GeneratorConfig holds dependencies for the quiz generator.
type GeneratorConfig struct {
	AI          Completer
	Prompts     *Prompts // defaults to the embedded templates
	Model       string   // empty lets each provider use its own default
	Temperature float64  // default 0.7
	MaxTokens   int      // default 2048
	Shuffle     bool     // shuffle options before building the quiz
	Rand        IntNSource
}

// Generator asks the generation service for one question and turns the
// answer into a Quiz.
type Generator struct {
	ai          Completer
	prompts     *Prompts
	model       string
	temperature float64
	maxTokens   int
	shuffle     bool
	rand        IntNSource
}

// NewGenerator creates a generator, filling defaults for unset fields.
func NewGenerator(cfg GeneratorConfig) *Generator {
	prompts := cfg.Prompts
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	return &Generator{
		ai:          cfg.AI,
		prompts:     prompts,
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   maxTokens,
		shuffle:     cfg.Shuffle,
		rand:        cfg.Rand,
	}
}

// Generate produces the quiz for plan. Any failure is returned as is; the
// generator never retries.
func (g *Generator) Generate(ctx context.Context, plan rotation.Plan) (Quiz, error) {
	system, user, err := g.prompts.Render(PromptDataFor(plan))
	if err != nil {
		return Quiz{}, err
	}

	resp, err := g.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		JSONOutput:  true,
	})
	if err != nil {
		return Quiz{}, fmt.Errorf("generating quiz %s: %w", plan.QuizID, err)
	}

	slog.Debug("quiz response received",
		"quiz_id", plan.QuizID,
		"provider", resp.Provider,
		"model", resp.Model,
		"tokens", resp.TotalTokens(),
	)

	ans, err := Parse(resp.Content)
	if err != nil {
		return Quiz{}, err
	}

	if g.shuffle {
		ans.Options, ans.Correct = Shuffle(ans, g.rand)
	}

	q := Build(plan.Topic, plan.Difficulty, plan.QuizID, ans)
	q.QuestionType = plan.QuestionType

	if err := q.Validate(); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// Package pipeline runs the two scheduled jobs: posting the quiz for the
// current slot and later posting its answer with the audience tally.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/chat"
	"github.com/p-n-ai/pai-quiz/internal/curriculum"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
	"github.com/p-n-ai/pai-quiz/internal/reaction"
	"github.com/p-n-ai/pai-quiz/internal/rotation"
	"github.com/p-n-ai/pai-quiz/internal/snapshot"
)

// ErrAlreadyPosted is returned when the ledger already holds the requested
// slot.
var ErrAlreadyPosted = errors.New("quiz already posted")

// CurriculumSource loads curricula by exam code. *curriculum.Loader
// satisfies it.
type CurriculumSource interface {
	Load(examCode string) (*curriculum.ExamCurriculum, error)
}

// QuizGenerator turns a rotation plan into a quiz. *quiz.Generator
// satisfies it.
type QuizGenerator interface {
	Generate(ctx context.Context, plan rotation.Plan) (quiz.Quiz, error)
}

// Ledger records delivered slots by rotation.Plan.LedgerKey. *cache.Ledger
// satisfies it.
type Ledger interface {
	WasPosted(ctx context.Context, key string) (bool, error)
	MarkPosted(ctx context.Context, key, messageID string) (bool, error)
}

// Config holds dependencies for the pipeline.
type Config struct {
	Curriculum CurriculumSource
	Generator  QuizGenerator
	Publisher  chat.Publisher      // may be nil for dry runs
	Reactions  chat.ReactionClient // nil when no bot token is configured
	Snapshots  *snapshot.Store
	Ledger     Ledger      // optional
	Events     EventLogger // default NopEventLogger
	Now        func() time.Time
}

// Pipeline runs quiz and answer posts.
type Pipeline struct {
	curriculum CurriculumSource
	generator  QuizGenerator
	publisher  chat.Publisher
	reactions  chat.ReactionClient
	snapshots  *snapshot.Store
	ledger     Ledger
	events     EventLogger
	now        func() time.Time
}

// New creates a pipeline, filling defaults for unset fields.
func New(cfg Config) *Pipeline {
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		curriculum: cfg.Curriculum,
		generator:  cfg.Generator,
		publisher:  cfg.Publisher,
		reactions:  cfg.Reactions,
		snapshots:  cfg.Snapshots,
		ledger:     cfg.Ledger,
		events:     events,
		now:        now,
	}
}

// Plan loads the curriculum for examCode and computes the rotation plan
// for at. It calls no external service.
func (p *Pipeline) Plan(examCode string, at time.Time) (rotation.Plan, error) {
	if examCode == "" {
		return rotation.Plan{}, fmt.Errorf("exam code is required")
	}
	c, err := p.curriculum.Load(examCode)
	if err != nil {
		return rotation.Plan{}, err
	}
	plan, err := rotation.ForDate(curriculum.Flatten(c), at)
	if err != nil {
		return rotation.Plan{}, fmt.Errorf("planning %s: %w", examCode, err)
	}
	return plan, nil
}

// PostQuizOptions controls one PostQuiz run.
type PostQuizOptions struct {
	ExamCode string
	At       time.Time // zero means now
	DryRun   bool
}

// PostQuizResult describes a PostQuiz run. Post is nil for dry runs.
type PostQuizResult struct {
	Plan rotation.Plan
	Quiz quiz.Quiz
	Post *quiz.QuizPost
}

// PostQuiz generates the quiz for the slot containing opts.At, snapshots it
// and delivers it. A dry run stops after the snapshot.
func (p *Pipeline) PostQuiz(ctx context.Context, opts PostQuizOptions) (PostQuizResult, error) {
	at := opts.At
	if at.IsZero() {
		at = p.now()
	}

	plan, err := p.Plan(opts.ExamCode, at)
	if err != nil {
		return PostQuizResult{}, err
	}
	slog.Info("quiz planned",
		"quiz_id", plan.QuizID,
		"topic", plan.Topic.Path(),
		"slot", plan.Slot,
		"difficulty", plan.Difficulty,
		"question_type", plan.QuestionType,
	)

	if p.ledger != nil && !opts.DryRun {
		posted, err := p.ledger.WasPosted(ctx, plan.LedgerKey())
		if err != nil {
			return PostQuizResult{}, err
		}
		if posted {
			return PostQuizResult{Plan: plan}, fmt.Errorf("%w: %s", ErrAlreadyPosted, plan.LedgerKey())
		}
	}

	q, err := p.generator.Generate(ctx, plan)
	if err != nil {
		return PostQuizResult{}, err
	}
	if err := p.snapshots.SaveQuiz(q); err != nil {
		return PostQuizResult{}, err
	}
	p.logEvent(q.ID, EventQuizGenerated, map[string]any{
		"topic":         q.TopicPath(),
		"difficulty":    string(q.Difficulty),
		"question_type": string(q.QuestionType),
		"correct":       q.Correct,
	})

	result := PostQuizResult{Plan: plan, Quiz: q}
	embed := chat.QuestionEmbed(q, p.now())

	if opts.DryRun {
		slog.Info("dry run: quiz not posted", "quiz_id", q.ID, "preview", embed.Text())
		return result, nil
	}
	if p.publisher == nil {
		return result, fmt.Errorf("no publisher configured")
	}

	res, err := p.publisher.Publish(ctx, chat.OutboundMessage{Embeds: []chat.Embed{embed}})
	if err != nil {
		return result, fmt.Errorf("posting quiz %s: %w", q.ID, err)
	}

	p.seedReactions(ctx, res)

	post := quiz.QuizPost{
		Quiz:      q,
		MessageID: res.MessageID,
		ChannelID: res.ChannelID,
		PostedAt:  p.now().UTC(),
	}
	if err := p.snapshots.SavePost(post); err != nil {
		return result, err
	}
	result.Post = &post

	if p.ledger != nil {
		if _, err := p.ledger.MarkPosted(ctx, plan.LedgerKey(), res.MessageID); err != nil {
			slog.Warn("failed to record posted quiz", "quiz_id", q.ID, "key", plan.LedgerKey(), "error", err)
		}
	}

	p.logEvent(q.ID, EventQuizPosted, map[string]any{
		"message_id": res.MessageID,
		"channel_id": res.ChannelID,
	})
	slog.Info("quiz posted", "quiz_id", q.ID, "message_id", res.MessageID)
	return result, nil
}

// seedReactions adds the option emojis to a new post so the audience can
// answer with one click. Seeding is best effort.
func (p *Pipeline) seedReactions(ctx context.Context, res chat.PostResult) {
	if p.reactions == nil {
		slog.Info("no bot token, reactions not seeded", "message_id", res.MessageID)
		return
	}
	for _, emoji := range reaction.OptionEmojis {
		if err := p.reactions.AddReaction(ctx, res.ChannelID, res.MessageID, emoji); err != nil {
			slog.Warn("failed to seed reaction", "message_id", res.MessageID, "emoji", emoji, "error", err)
			return
		}
	}
}

// PostAnswerOptions controls one PostAnswer run.
type PostAnswerOptions struct {
	DryRun bool
}

// PostAnswerResult describes a PostAnswer run. Result is nil for dry runs.
type PostAnswerResult struct {
	Stats  quiz.QuizStats
	Embed  chat.Embed
	Result *chat.PostResult
}

// PostAnswer reads the last post, tallies its reactions and delivers the
// answer reveal. Without a reaction client the tally is all zero and the
// reveal carries no statistics.
func (p *Pipeline) PostAnswer(ctx context.Context, opts PostAnswerOptions) (PostAnswerResult, error) {
	post, err := p.snapshots.LoadPost()
	if err != nil {
		return PostAnswerResult{}, err
	}

	var stats quiz.ReactionStats
	if p.reactions == nil {
		slog.Warn("no bot token, skipping reaction collection", "quiz_id", post.Quiz.ID)
		p.logEvent(post.Quiz.ID, EventReactionsSkipped, map[string]any{"reason": chat.ErrNoBotToken.Error()})
	} else {
		counts, err := p.reactions.Reactions(ctx, post.ChannelID, post.MessageID)
		if err != nil {
			return PostAnswerResult{}, err
		}
		stats = reaction.Tally(counts, nil)
	}

	summary := reaction.Summarize(post, stats)
	slog.Info("reactions collected",
		"quiz_id", post.Quiz.ID,
		"a", stats.A, "b", stats.B, "c", stats.C, "d", stats.D,
		"correct_rate", summary.CorrectRate,
	)

	var embed chat.Embed
	if reaction.HasAnyResponses(stats) {
		embed = chat.AnswerEmbedWithStats(post.Quiz, stats, p.now())
	} else {
		embed = chat.AnswerEmbed(post.Quiz, p.now())
	}

	result := PostAnswerResult{Stats: summary, Embed: embed}
	if opts.DryRun {
		slog.Info("dry run: answer not posted", "quiz_id", post.Quiz.ID, "preview", embed.Text())
		return result, nil
	}
	if p.publisher == nil {
		return result, fmt.Errorf("no publisher configured")
	}

	res, err := p.publisher.Publish(ctx, chat.OutboundMessage{Embeds: []chat.Embed{embed}})
	if err != nil {
		return result, fmt.Errorf("posting answer for %s: %w", post.Quiz.ID, err)
	}
	result.Result = &res

	p.logEvent(post.Quiz.ID, EventAnswerPosted, map[string]any{
		"message_id":    res.MessageID,
		"total_answers": summary.TotalAnswers,
		"correct_rate":  summary.CorrectRate,
	})
	slog.Info("answer posted", "quiz_id", post.Quiz.ID, "message_id", res.MessageID)
	return result, nil
}

func (p *Pipeline) logEvent(quizID, eventType string, data map[string]any) {
	if err := p.events.LogEvent(Event{
		QuizID:    quizID,
		EventType: eventType,
		Data:      data,
		CreatedAt: p.now(),
	}); err != nil {
		slog.Warn("failed to log event", "type", eventType, "error", err)
	}
}

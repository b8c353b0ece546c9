// Command quizbot posts the daily quiz for the current rotation slot and,
// later, its answer with the audience tally.
//
// Usage:
//
//	quizbot post-quiz   [--exam CODE] [--date RFC3339] [--dry-run]
//	quizbot post-answer [--dry-run]
//	quizbot plan        [--exam CODE] [--date RFC3339]
//	quizbot history     [--quiz ID] [--limit N]
//	quizbot health
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/ai"
	"github.com/p-n-ai/pai-quiz/internal/chat"
	"github.com/p-n-ai/pai-quiz/internal/curriculum"
	"github.com/p-n-ai/pai-quiz/internal/history"
	"github.com/p-n-ai/pai-quiz/internal/pipeline"
	"github.com/p-n-ai/pai-quiz/internal/platform/cache"
	"github.com/p-n-ai/pai-quiz/internal/platform/config"
	"github.com/p-n-ai/pai-quiz/internal/platform/database"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
	"github.com/p-n-ai/pai-quiz/internal/snapshot"
)

var errUsage = errors.New("usage: quizbot <post-quiz|post-answer|plan|history|health> [flags]")

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stderr))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	err = run(ctx, cfg, os.Args[1:], os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrAlreadyPosted):
		// Re-running a slot that already went out is not a failure.
		slog.Info("nothing to do", "reason", err)
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprintln(os.Stderr, errUsage)
		os.Exit(2)
	default:
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from LogConfig. Unknown levels fall
// back to info.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

type runFlags struct {
	exam   string
	date   string
	dryRun bool
	quizID string
	limit  int
}

func parseFlags(cmd string, args []string, cfg *config.Config, out io.Writer) (runFlags, error) {
	var f runFlags
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(out)
	switch cmd {
	case "health":
	case "history":
		fs.StringVar(&f.quizID, "quiz", "", "show every event of one quiz")
		fs.IntVar(&f.limit, "limit", 10, "number of recent posts to list")
	case "post-answer":
		fs.BoolVar(&f.dryRun, "dry-run", false, "generate and format without delivering")
	default:
		fs.BoolVar(&f.dryRun, "dry-run", false, "generate and format without delivering")
		fs.StringVar(&f.exam, "exam", cfg.Exam.Code, "exam code")
		fs.StringVar(&f.date, "date", "", "run timestamp (RFC 3339), defaults to now")
	}
	if err := fs.Parse(args); err != nil {
		return runFlags{}, err
	}
	if fs.NArg() > 0 {
		return runFlags{}, fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
	}
	return f, nil
}

// parseDate parses an RFC 3339 timestamp as UTC. Empty means zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: %w", s, err)
	}
	return t.UTC(), nil
}

func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd := args[0]
	switch cmd {
	case "post-quiz", "post-answer", "plan", "history", "health":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	f, err := parseFlags(cmd, args[1:], cfg, out)
	if err != nil {
		return err
	}
	at, err := parseDate(f.date)
	if err != nil {
		return err
	}

	switch cmd {
	case "plan":
		return runPlan(cfg, f.exam, at, out)
	case "history":
		return runHistory(ctx, cfg, f, out)
	case "health":
		return runHealth(ctx, cfg, out)
	case "post-quiz":
		if err := cfg.ValidateGenerate(); err != nil {
			return err
		}
		if !f.dryRun {
			if err := cfg.ValidatePublish(); err != nil {
				return err
			}
		}
		p, cleanup, err := buildPipeline(ctx, cfg, f.dryRun)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := p.PostQuiz(ctx, pipeline.PostQuizOptions{ExamCode: f.exam, At: at, DryRun: f.dryRun})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, chat.QuestionEmbed(res.Quiz, time.Now()).Text())
		return nil
	default:
		if !f.dryRun {
			if err := cfg.ValidatePublish(); err != nil {
				return err
			}
		}
		p, cleanup, err := buildPipeline(ctx, cfg, f.dryRun)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := p.PostAnswer(ctx, pipeline.PostAnswerOptions{DryRun: f.dryRun})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Embed.Text())
		return nil
	}
}

func runPlan(cfg *config.Config, exam string, at time.Time, out io.Writer) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	p := pipeline.New(pipeline.Config{Curriculum: curriculum.NewLoader(cfg.Exam.CurriculumPath)})
	plan, err := p.Plan(exam, at)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "quiz_id:       %s\n", plan.QuizID)
	fmt.Fprintf(out, "topic:         %s\n", plan.Topic.Path())
	fmt.Fprintf(out, "slot:          %d\n", plan.Slot)
	fmt.Fprintf(out, "difficulty:    %s\n", plan.Difficulty)
	fmt.Fprintf(out, "question_type: %s\n", plan.QuestionType)
	fmt.Fprintf(out, "at:            %s\n", plan.At.Format(time.RFC3339))

	last, err := snapshot.NewStore(cfg.Exam.DataDir).LoadQuiz()
	switch {
	case err == nil:
		status := "other slot"
		if last.ID == plan.QuizID && last.Topic == plan.Topic.Topic && last.QuestionType == plan.QuestionType {
			status = "this slot"
		}
		fmt.Fprintf(out, "last_quiz:     %s (%s)\n", last.ID, status)
	case errors.Is(err, snapshot.ErrNotFound):
		fmt.Fprintln(out, "last_quiz:     none")
	default:
		slog.Warn("unreadable quiz snapshot", "error", err)
		fmt.Fprintln(out, "last_quiz:     unreadable")
	}
	return nil
}

// runHealth pings the optional backing services. Unset services are
// reported as skipped; any failure fails the command.
func runHealth(ctx context.Context, cfg *config.Config, out io.Writer) error {
	var failed []string

	if cfg.Cache.URL == "" {
		fmt.Fprintln(out, "cache:    skipped")
	} else if err := checkCache(ctx, cfg.Cache.URL); err != nil {
		fmt.Fprintf(out, "cache:    error: %v\n", err)
		failed = append(failed, "cache")
	} else {
		fmt.Fprintln(out, "cache:    ok")
	}

	if cfg.DB.URL == "" {
		fmt.Fprintln(out, "database: skipped")
	} else if err := checkDatabase(ctx, cfg.DB); err != nil {
		fmt.Fprintf(out, "database: error: %v\n", err)
		failed = append(failed, "database")
	} else {
		fmt.Fprintln(out, "database: ok")
	}

	if len(failed) > 0 {
		return fmt.Errorf("unhealthy: %s", strings.Join(failed, ", "))
	}
	return nil
}

func checkCache(ctx context.Context, url string) error {
	c, err := cache.New(ctx, url)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.HealthCheck(ctx)
}

func checkDatabase(ctx context.Context, cfg config.DatabaseConfig) error {
	db, err := database.New(ctx, database.Options{URL: cfg.URL, MaxConns: 1})
	if err != nil {
		return err
	}
	defer db.Close()
	return db.HealthCheck(ctx)
}

func runHistory(ctx context.Context, cfg *config.Config, f runFlags, out io.Writer) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("QUIZ_DATABASE_URL is required for history")
	}
	store, closeDB, err := openHistory(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer closeDB()

	var events []pipeline.Event
	if f.quizID != "" {
		events, err = store.Events(ctx, f.quizID)
	} else {
		events, err = store.Recent(ctx, pipeline.EventQuizPosted, f.limit)
	}
	if err != nil {
		return err
	}
	printEvents(out, events)
	return nil
}

func printEvents(out io.Writer, events []pipeline.Event) {
	if len(events) == 0 {
		fmt.Fprintln(out, "no events")
		return
	}
	for _, e := range events {
		fmt.Fprintf(out, "%s  %-18s %s", e.CreatedAt.UTC().Format(time.RFC3339), e.EventType, e.QuizID)
		for _, k := range sortedKeys(e.Data) {
			fmt.Fprintf(out, " %s=%v", k, e.Data[k])
		}
		fmt.Fprintln(out)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// openHistory connects to PostgreSQL and applies the history schema.
func openHistory(ctx context.Context, cfg config.DatabaseConfig) (*history.Store, func(), error) {
	db, err := database.New(ctx, database.Options{
		URL:      cfg.URL,
		MaxConns: cfg.MaxConns,
		MinConns: cfg.MinConns,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, history.Schema...); err != nil {
		db.Close()
		return nil, nil, err
	}
	store, err := history.NewStore(db.Pool)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}

// newRouter registers every configured provider in fallback order:
// Google, OpenAI, DeepSeek, Anthropic, OpenRouter, then a local Ollama.
func newRouter(cfg *config.Config) *ai.Router {
	router := ai.NewRouter()
	if cfg.AI.Google.APIKey != "" {
		router.Register("google", ai.NewGoogleProvider(cfg.AI.Google.APIKey,
			ai.WithGoogleModel(cfg.AI.Google.Model),
		))
	}
	if cfg.AI.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey,
			ai.WithBaseURL(cfg.AI.OpenAI.BaseURL),
			ai.WithModel(cfg.AI.OpenAI.Model),
		))
	}
	if cfg.AI.DeepSeek.APIKey != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.AI.DeepSeek.APIKey,
			ai.WithModel(cfg.AI.DeepSeek.Model),
		))
	}
	if cfg.AI.Anthropic.APIKey != "" {
		p, err := ai.NewAnthropicProvider(cfg.AI.Anthropic.APIKey,
			ai.WithAnthropicModel(cfg.AI.Anthropic.Model),
		)
		if err != nil {
			slog.Warn("skipping anthropic provider", "error", err)
		} else {
			router.Register("anthropic", p)
		}
	}
	if cfg.AI.OpenRouter.APIKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.AI.OpenRouter.APIKey,
			ai.WithModel(cfg.AI.OpenRouter.Model),
		))
	}
	if cfg.AI.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.AI.Ollama.URL,
			ai.WithOllamaModel(cfg.AI.Ollama.Model),
		))
	}
	return router
}

// buildPipeline wires the pipeline from config. The returned cleanup closes
// whichever cache and database connections were opened.
func buildPipeline(ctx context.Context, cfg *config.Config, dryRun bool) (*pipeline.Pipeline, func(), error) {
	cleanup := func() {}

	prompts, err := quiz.LoadPrompts(cfg.Exam.PromptPath)
	if err != nil {
		return nil, cleanup, err
	}

	pc := pipeline.Config{
		Curriculum: curriculum.NewLoader(cfg.Exam.CurriculumPath),
		Generator: quiz.NewGenerator(quiz.GeneratorConfig{
			AI:          newRouter(cfg),
			Prompts:     prompts,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
			Shuffle:     cfg.Exam.ShuffleOptions,
		}),
		Snapshots: snapshot.NewStore(cfg.Exam.DataDir),
		Events:    pipeline.NewSlogEventLogger(nil),
	}
	var closers []func()
	cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Discord.WebhookURL != "" {
		pub, err := chat.NewWebhookPublisher(cfg.Discord.WebhookURL, nil)
		if err != nil {
			return nil, cleanup, err
		}
		pc.Publisher = pub
	}

	bot, err := chat.NewBotClient(cfg.Discord.BotToken, cfg.Discord.APIBase, nil)
	switch {
	case err == nil:
		pc.Reactions = bot
	case errors.Is(err, chat.ErrNoBotToken):
		slog.Info("discord bot token not set, reactions disabled")
	default:
		return nil, cleanup, err
	}

	if cfg.Cache.URL != "" && !dryRun {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Warn("cache unavailable, posted-quiz ledger disabled", "error", err)
		} else {
			pc.Ledger = cache.NewLedger(c, cfg.Cache.KeyPrefix, cfg.Cache.LedgerTTL())
			closers = append(closers, func() { c.Close() })
		}
	}

	if cfg.DB.URL != "" && !dryRun {
		store, closeDB, err := openHistory(ctx, cfg.DB)
		if err != nil {
			slog.Warn("database unavailable, run history disabled", "error", err)
		} else {
			pc.Events = pipeline.MultiEventLogger{pc.Events, store}
			closers = append(closers, closeDB)
		}
	}

	return pipeline.New(pc), cleanup, nil
}

package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Run event types.
const (
	EventQuizGenerated    = "quiz_generated"
	EventQuizPosted       = "quiz_posted"
	EventAnswerPosted     = "answer_posted"
	EventReactionsSkipped = "reactions_skipped"
)

// Event records one step of a run.
type Event struct {
	QuizID    string
	EventType string
	Data      map[string]any
	CreatedAt time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// Types returns the recorded event types in order.
func (l *MemoryEventLogger) Types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	types := make([]string, len(l.events))
	for i, e := range l.events {
		types[i] = e.EventType
	}
	return types
}

// SlogEventLogger writes events as structured log records.
type SlogEventLogger struct {
	logger *slog.Logger
}

// NewSlogEventLogger creates an event logger on logger, or on the default
// logger when logger is nil.
func NewSlogEventLogger(logger *slog.Logger) *SlogEventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEventLogger{logger: logger}
}

func (l *SlogEventLogger) LogEvent(event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	attrs := []any{
		"type", event.EventType,
		"quiz_id", event.QuizID,
		"created_at", createdAt.UTC(),
	}
	if len(event.Data) > 0 {
		attrs = append(attrs, "data", event.Data)
	}
	l.logger.Info("run event", attrs...)
	return nil
}

// MultiEventLogger fans each event out to every logger. Failures are joined.
type MultiEventLogger []EventLogger

func (m MultiEventLogger) LogEvent(event Event) error {
	var errs []error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.LogEvent(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package history persists run events in PostgreSQL so past quizzes and
// their outcomes can be inspected after the snapshots are overwritten.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-quiz/internal/pipeline"
)

const dbTimeout = 5 * time.Second

// Schema creates the event table. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS quiz_events (
		id         BIGSERIAL PRIMARY KEY,
		quiz_id    TEXT NOT NULL,
		event_type TEXT NOT NULL,
		data       JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS quiz_events_quiz_id_idx ON quiz_events (quiz_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS quiz_events_type_idx ON quiz_events (event_type, created_at DESC)`,
}

// Store is a PostgreSQL-backed pipeline.EventLogger that can also read the
// log back.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store on pool. The schema must already be applied.
func NewStore(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &Store{pool: pool}, nil
}

// LogEvent inserts one event.
func (s *Store) LogEvent(event pipeline.Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.QuizID == "" {
		return fmt.Errorf("quiz_id is required")
	}
	if s == nil || s.pool == nil {
		return fmt.Errorf("history store pool is nil")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_events (quiz_id, event_type, data, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		event.QuizID,
		event.EventType,
		string(data),
		createdAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event stored", "type", event.EventType, "quiz_id", event.QuizID)
	return nil
}

// Events returns every event recorded for quizID, oldest first.
func (s *Store) Events(ctx context.Context, quizID string) ([]pipeline.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return s.query(ctx,
		`SELECT quiz_id, event_type, data, created_at
		 FROM quiz_events
		 WHERE quiz_id = $1
		 ORDER BY created_at ASC, id ASC`,
		quizID,
	)
}

// Recent returns up to limit events of eventType, newest first.
func (s *Store) Recent(ctx context.Context, eventType string, limit int) ([]pipeline.Event, error) {
	if limit <= 0 {
		limit = 10
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return s.query(ctx,
		`SELECT quiz_id, event_type, data, created_at
		 FROM quiz_events
		 WHERE event_type = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		eventType,
		limit,
	)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]pipeline.Event, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []pipeline.Event{}
	for rows.Next() {
		var (
			e   pipeline.Event
			raw []byte
		)
		if err := rows.Scan(&e.QuizID, &e.EventType, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		e.CreatedAt = e.CreatedAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

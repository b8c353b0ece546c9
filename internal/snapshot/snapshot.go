// Package snapshot stores the flat JSON records passed between the
// post-quiz and post-answer runs.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

// ErrNotFound is returned when a snapshot file does not exist.
var ErrNotFound = errors.New("snapshot not found")

const (
	QuizFile = "quiz.json"
	PostFile = "post.json"
)

const quizSchema = `{
  "type": "object",
  "required": ["id", "exam_code", "domain", "section", "topic", "difficulty", "question", "options", "correct", "explanation"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "exam_code": {"type": "string", "minLength": 1},
    "domain": {"type": "string"},
    "section": {"type": "string"},
    "topic": {"type": "string"},
    "difficulty": {"enum": ["easy", "medium", "hard"]},
    "question_type": {"enum": ["concept", "best-practice", "troubleshooting"]},
    "question": {"type": "string", "minLength": 1},
    "options": {
      "type": "array",
      "minItems": 4,
      "maxItems": 4,
      "items": {"type": "string", "minLength": 1}
    },
    "correct": {"type": "integer", "minimum": 0, "maximum": 3},
    "explanation": {"type": "string", "minLength": 1}
  }
}`

const postSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["quiz", "message_id", "channel_id", "posted_at"],
  "properties": {
    "quiz": ` + quizSchema + `,
    "message_id": {"type": "string", "minLength": 1},
    "channel_id": {"type": "string"},
    "posted_at": {"type": "string", "format": "date-time"}
  }
}`

var (
	quizSchemaLoader = gojsonschema.NewStringLoader(quizSchema)
	postSchemaLoader = gojsonschema.NewStringLoader(postSchema)
)

// Store reads and writes snapshots in a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the location of the named snapshot file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// SaveQuiz writes q to quiz.json.
func (s *Store) SaveQuiz(q quiz.Quiz) error {
	return s.write(QuizFile, q)
}

// LoadQuiz reads quiz.json and checks it against the quiz invariants.
func (s *Store) LoadQuiz() (quiz.Quiz, error) {
	var q quiz.Quiz
	if err := s.read(QuizFile, quizSchemaLoader, &q); err != nil {
		return quiz.Quiz{}, err
	}
	if err := q.Validate(); err != nil {
		return quiz.Quiz{}, fmt.Errorf("snapshot %s: %w", s.Path(QuizFile), err)
	}
	return q, nil
}

// SavePost writes p to post.json.
func (s *Store) SavePost(p quiz.QuizPost) error {
	return s.write(PostFile, p)
}

// LoadPost reads post.json and checks it against the post schema and the
// quiz invariants.
func (s *Store) LoadPost() (quiz.QuizPost, error) {
	var p quiz.QuizPost
	if err := s.read(PostFile, postSchemaLoader, &p); err != nil {
		return quiz.QuizPost{}, err
	}
	if err := p.Quiz.Validate(); err != nil {
		return quiz.QuizPost{}, fmt.Errorf("snapshot %s: %w", s.Path(PostFile), err)
	}
	return p, nil
}

func (s *Store) read(name string, schema gojsonschema.JSONLoader, out any) error {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return fmt.Errorf("snapshot %s: invalid structure: %s", path, strings.Join(details, "; "))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return nil
}

// write replaces the named file atomically so a reader never sees a partial
// record.
func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", name, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(name)); err != nil {
		return fmt.Errorf("replacing snapshot %s: %w", name, err)
	}
	return nil
}

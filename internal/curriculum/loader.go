// Package curriculum loads exam curricula (domains → sections → topics) from
// YAML and flattens them into the ordered topic list used for rotation.
package curriculum

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrEmptyTopicSet is returned when a topic list has nothing to select from.
var ErrEmptyTopicSet = errors.New("curriculum has no topics")

// CurriculumError reports a missing or malformed curriculum document.
type CurriculumError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CurriculumError) Error() string {
	msg := fmt.Sprintf("curriculum %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CurriculumError) Unwrap() error { return e.Err }

const curriculumSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["exam_code", "exam_name", "domains"],
  "properties": {
    "exam_code": {"type": "string", "minLength": 1},
    "exam_name": {"type": "string"},
    "domains": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "percentage", "sections"],
        "properties": {
          "name": {"type": "string"},
          "percentage": {"type": "number", "minimum": 0, "maximum": 100},
          "sections": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name", "topics"],
              "properties": {
                "name": {"type": "string"},
                "topics": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["name"],
                    "properties": {
                      "name": {"type": "string"},
                      "weight": {"type": "number", "exclusiveMinimum": 0}
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(curriculumSchema)

// Loader reads curricula from a directory of <exam-code>.yaml files and
// caches each one after the first successful load.
type Loader struct {
	rootDir string
	exams   map[string]*ExamCurriculum
	mu      sync.RWMutex
}

// NewLoader creates a loader rooted at dir.
func NewLoader(rootDir string) *Loader {
	return &Loader{
		rootDir: rootDir,
		exams:   make(map[string]*ExamCurriculum),
	}
}

// Load returns the curriculum for examCode. The file name is the lower-cased
// exam code with a .yaml extension.
func (l *Loader) Load(examCode string) (*ExamCurriculum, error) {
	key := strings.ToLower(examCode)

	l.mu.RLock()
	c, ok := l.exams[key]
	l.mu.RUnlock()
	if ok {
		return c, nil
	}

	path := filepath.Join(l.rootDir, key+".yaml")
	c, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.exams[key] = c
	l.mu.Unlock()

	slog.Info("curriculum loaded",
		"exam_code", c.ExamCode,
		"domains", len(c.Domains),
		"topics", len(Flatten(c)),
	)
	return c, nil
}

// LoadFile reads and validates a single curriculum file.
func LoadFile(path string) (*ExamCurriculum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		reason := "cannot read file"
		if errors.Is(err, os.ErrNotExist) {
			reason = "file not found"
		}
		return nil, &CurriculumError{Path: path, Reason: reason, Err: err}
	}
	return Parse(path, data)
}

// Parse decodes a curriculum document and checks its structure. Either the
// whole document is valid or an error is returned; partial curricula are
// never produced.
func Parse(source string, data []byte) (*ExamCurriculum, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &CurriculumError{Path: source, Reason: "invalid YAML", Err: err}
	}
	if doc == nil {
		return nil, &CurriculumError{Path: source, Reason: "empty document"}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, &CurriculumError{Path: source, Reason: "schema check failed", Err: err}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return nil, &CurriculumError{Path: source, Reason: "invalid structure: " + strings.Join(details, "; ")}
	}

	var c ExamCurriculum
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, &CurriculumError{Path: source, Reason: "invalid YAML", Err: err}
	}
	return &c, nil
}

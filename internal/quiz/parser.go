package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Stage names the step of Parse that rejected the input.
type Stage string

const (
	StageSyntax Stage = "syntax"
	StageSchema Stage = "schema"
)

// ParseError reports generated text that cannot become a quiz. Input holds
// the extracted payload; Value holds the decoded document for schema errors.
type ParseError struct {
	Stage  Stage
	Detail string
	Input  string
	Value  any
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("quiz response %s error: %s\ninput: %s", e.Stage, e.Detail, e.Input)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RawAnswer is the validated payload returned by the generation service.
type RawAnswer struct {
	Question    string              `json:"question"`
	Options     [OptionCount]string `json:"options"`
	Correct     int                 `json:"correct"`
	Explanation string              `json:"explanation"`
}

var (
	fencedBlock = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")
	objectSpan  = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractPayload finds the JSON object inside generated text. A fenced code
// block wins; otherwise the span from the first "{" to the last "}" is used;
// otherwise the trimmed text is returned as is.
func ExtractPayload(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := objectSpan.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	return strings.TrimSpace(text)
}

// Parse extracts, decodes and validates a generated answer.
func Parse(text string) (RawAnswer, error) {
	payload := ExtractPayload(text)

	value, err := decodeStrict(payload)
	if err != nil {
		return RawAnswer{}, &ParseError{
			Stage:  StageSyntax,
			Detail: err.Error(),
			Input:  payload,
			Err:    err,
		}
	}

	result := ValidateAnswer(value)
	if !result.OK() {
		pretty, _ := json.MarshalIndent(value, "", "  ")
		return RawAnswer{}, &ParseError{
			Stage:  StageSchema,
			Detail: result.Detail(),
			Input:  string(pretty),
			Value:  value,
		}
	}
	return result.Answer, nil
}

func decodeStrict(payload string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("no JSON value found")
		}
		return nil, err
	}

	var rest json.RawMessage
	if err := dec.Decode(&rest); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// FieldError is one schema violation.
type FieldError struct {
	Field   string
	Problem string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Problem
}

// ValidationResult is either a valid Answer (no Errors) or a list of
// violations.
type ValidationResult struct {
	Answer RawAnswer
	Errors []FieldError
}

// OK reports whether validation passed.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Detail joins all violations into one line.
func (r ValidationResult) Detail() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}

// ValidateAnswer checks a decoded JSON document field by field: question is
// a non-empty string, options exactly four non-empty strings, correct an
// integer in [0,3] and explanation a non-empty string. Unknown fields are
// ignored.
func ValidateAnswer(value any) ValidationResult {
	var res ValidationResult

	obj, ok := value.(map[string]any)
	if !ok {
		res.Errors = append(res.Errors, FieldError{Field: "(root)", Problem: "expected object, got " + jsonKind(value)})
		return res
	}

	fail := func(field, problem string) {
		res.Errors = append(res.Errors, FieldError{Field: field, Problem: problem})
	}

	res.Answer.Question = requireText(obj, "question", fail)
	res.Answer.Explanation = requireText(obj, "explanation", fail)

	switch opts := obj["options"].(type) {
	case nil:
		fail("options", "required")
	case []any:
		if len(opts) != OptionCount {
			fail("options", fmt.Sprintf("expected exactly %d items, got %d", OptionCount, len(opts)))
			break
		}
		for i, o := range opts {
			s, ok := o.(string)
			field := fmt.Sprintf("options[%d]", i)
			switch {
			case !ok:
				fail(field, "expected string, got "+jsonKind(o))
			case strings.TrimSpace(s) == "":
				fail(field, "must not be empty")
			default:
				res.Answer.Options[i] = s
			}
		}
	default:
		fail("options", "expected array, got "+jsonKind(opts))
	}

	switch c := obj["correct"].(type) {
	case nil:
		fail("correct", "required")
	case json.Number:
		idx, ok := integral(c)
		switch {
		case !ok:
			fail("correct", fmt.Sprintf("expected integer, got %s", c))
		case idx < 0 || idx >= OptionCount:
			fail("correct", fmt.Sprintf("must be between 0 and %d, got %d", OptionCount-1, idx))
		default:
			res.Answer.Correct = int(idx)
		}
	default:
		fail("correct", "expected number, got "+jsonKind(c))
	}

	return res
}

func requireText(obj map[string]any, field string, fail func(string, string)) string {
	raw, present := obj[field]
	if !present || raw == nil {
		fail(field, "required")
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		fail(field, "expected string, got "+jsonKind(raw))
		return ""
	}
	if strings.TrimSpace(s) == "" {
		fail(field, "must not be empty")
		return ""
	}
	return s
}

// integral accepts 2 and 2.0 but not 2.5.
func integral(n json.Number) (int64, bool) {
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

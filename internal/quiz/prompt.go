package quiz

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/template"

	"github.com/p-n-ai/pai-quiz/internal/rotation"
)

//go:embed prompts/*.md
var defaultPrompts embed.FS

const (
	systemPromptFile = "system-prompt.md"
	userPromptFile   = "generate-quiz.md"
)

// PromptData fills the prompt templates.
type PromptData struct {
	ExamCode     string
	Domain       string
	Section      string
	Topic        string
	Difficulty   rotation.Difficulty
	QuestionType rotation.QuestionType
}

// PromptDataFor converts a rotation plan into template data.
func PromptDataFor(plan rotation.Plan) PromptData {
	return PromptData{
		ExamCode:     plan.Topic.ExamCode,
		Domain:       plan.Topic.Domain,
		Section:      plan.Topic.Section,
		Topic:        plan.Topic.Topic,
		Difficulty:   plan.Difficulty,
		QuestionType: plan.QuestionType,
	}
}

// Prompts holds the parsed system and user templates.
type Prompts struct {
	system *template.Template
	user   *template.Template
}

// LoadPrompts reads system-prompt.md and generate-quiz.md from dir. An empty
// dir uses the templates compiled into the binary.
func LoadPrompts(dir string) (*Prompts, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(defaultPrompts, "prompts")
		if err != nil {
			return nil, err
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}

	system, err := parsePrompt(fsys, systemPromptFile)
	if err != nil {
		return nil, err
	}
	user, err := parsePrompt(fsys, userPromptFile)
	if err != nil {
		return nil, err
	}
	return &Prompts{system: system, user: user}, nil
}

// DefaultPrompts returns the embedded templates. It panics only if the
// binary was built with broken templates.
func DefaultPrompts() *Prompts {
	p, err := LoadPrompts("")
	if err != nil {
		panic(err)
	}
	return p
}

func parsePrompt(fsys fs.FS, name string) (*template.Template, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading prompt %s: %w", name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing prompt %s: %w", name, err)
	}
	return tmpl, nil
}

// Render returns the system and user prompts for data.
func (p *Prompts) Render(data PromptData) (system, user string, err error) {
	var sb strings.Builder
	if err := p.system.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("rendering system prompt: %w", err)
	}
	system = sb.String()

	sb.Reset()
	if err := p.user.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("rendering user prompt: %w", err)
	}
	return system, sb.String(), nil
}

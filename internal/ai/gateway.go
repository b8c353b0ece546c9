// Package ai talks to text-generation services. Providers share one request
// shape so the quiz generator does not care which service answers.
package ai

import "context"

// Message is one prompt message. Role is "system", "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a completion.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	// JSONOutput asks the service for a bare JSON document where supported.
	// Callers must still tolerate prose or code fences around the answer.
	JSONOutput bool `json:"json_output,omitempty"`
}

// CompletionResponse is the output of a completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	Provider     string `json:"provider,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// ModelInfo describes an available model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaxTokens   int    `json:"max_tokens"`
	Description string `json:"description"`
}

// Provider is implemented by every generation service.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Models() []ModelInfo
	HealthCheck(ctx context.Context) error
}

// splitSystem separates system messages from the conversation. Services
// that take the system prompt out of band use this.
func splitSystem(msgs []Message) (system string, rest []Message) {
	for _, m := range msgs {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

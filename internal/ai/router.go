package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoProvider is returned when the router has nothing registered.
var ErrNoProvider = errors.New("no AI provider registered")

// Router sends a request to registered providers in registration order and
// returns the first successful answer.
type Router struct {
	providers map[string]Provider
	order     []string
	mu        sync.RWMutex
}

// NewRouter creates a new AI router.
func NewRouter() *Router {
	return &Router{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the end of the fallback chain. Registering a
// name twice replaces the provider but keeps its position.
func (r *Router) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = provider
}

// Complete tries each provider in order. The returned error joins every
// provider failure.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return CompletionResponse{}, ErrNoProvider
	}

	var errs []error
	for _, name := range r.order {
		resp, err := r.providers[name].Complete(ctx, req)
		if err != nil {
			slog.Warn("AI provider failed, trying next",
				"provider", name,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if resp.Provider == "" {
			resp.Provider = name
		}
		slog.Debug("AI request completed",
			"provider", name,
			"model", resp.Model,
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
		)
		return resp, nil
	}

	return CompletionResponse{}, fmt.Errorf("all AI providers failed: %w", errors.Join(errs...))
}

// Providers returns the registered names in fallback order.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// HasProvider returns true if at least one provider is registered.
func (r *Router) HasProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}

// Package chat delivers quiz content to a messaging channel and reads back
// the reactions it collected.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/reaction"
)

// ErrNoBotToken is returned when reaction access is requested without a bot
// token. Callers treat it as "no reaction data" rather than a failure.
var ErrNoBotToken = errors.New("discord bot token is not configured")

// EmbedField is one named block inside an Embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message card.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
	Timestamp   time.Time
}

// OutboundMessage is a message to deliver to the channel.
type OutboundMessage struct {
	Content string
	Embeds  []Embed
}

// PostResult identifies a delivered message.
type PostResult struct {
	MessageID string
	ChannelID string
}

// Publisher delivers messages to a channel.
type Publisher interface {
	Publish(ctx context.Context, msg OutboundMessage) (PostResult, error)
}

// ReactionClient reads and adds reactions on delivered messages.
type ReactionClient interface {
	Reactions(ctx context.Context, channelID, messageID string) ([]reaction.Count, error)
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
}

// MockPublisher is a test double for Publisher.
type MockPublisher struct {
	Result PostResult
	Err    error

	mu   sync.Mutex
	sent []OutboundMessage
}

func (m *MockPublisher) Publish(_ context.Context, msg OutboundMessage) (PostResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return PostResult{}, m.Err
	}
	m.sent = append(m.sent, msg)
	return m.Result, nil
}

// Sent returns the messages published so far.
func (m *MockPublisher) Sent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OutboundMessage(nil), m.sent...)
}

// MockReactions is a test double for ReactionClient.
type MockReactions struct {
	Counts  []reaction.Count
	Err     error
	SeedErr error

	mu    sync.Mutex
	added []string
}

func (m *MockReactions) Reactions(_ context.Context, _, _ string) ([]reaction.Count, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Counts, nil
}

func (m *MockReactions) AddReaction(_ context.Context, _, _, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SeedErr != nil {
		return m.SeedErr
	}
	m.added = append(m.added, emoji)
	return nil
}

// Added returns the emojis added so far, in order.
func (m *MockReactions) Added() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.added...)
}

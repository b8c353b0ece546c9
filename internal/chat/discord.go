package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/reaction"
)

// DefaultDiscordAPIBase is the Discord REST API root used by the bot client.
const DefaultDiscordAPIBase = "https://discord.com/api/v10"

const discordTimeout = 30 * time.Second

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordFooter      `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordMessage struct {
	ID        string            `json:"id"`
	ChannelID string            `json:"channel_id"`
	Reactions []discordReaction `json:"reactions"`
}

type discordReaction struct {
	Emoji discordEmoji `json:"emoji"`
	Count int          `json:"count"`
}

type discordEmoji struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

func toDiscordEmbed(e Embed) discordEmbed {
	out := discordEmbed{
		Title:       clip(e.Title, discordMaxTitle),
		Description: clip(e.Description, discordMaxDescription),
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, discordEmbedField{
			Name:   clip(f.Name, discordMaxFieldName),
			Value:  clip(f.Value, discordMaxFieldValue),
			Inline: f.Inline,
		})
	}
	if e.Footer != "" {
		out.Footer = &discordFooter{Text: clip(e.Footer, discordMaxFooter)}
	}
	if !e.Timestamp.IsZero() {
		out.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	return out
}

// WebhookPublisher posts messages through a Discord channel webhook.
type WebhookPublisher struct {
	url    string
	client *http.Client
}

// NewWebhookPublisher creates a publisher for webhookURL. A nil client uses
// one with a 30 second timeout.
func NewWebhookPublisher(webhookURL string, client *http.Client) (*WebhookPublisher, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("discord webhook url is required (QUIZ_DISCORD_WEBHOOK_URL)")
	}
	u, err := url.Parse(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("parsing discord webhook url: %w", err)
	}
	// wait=true makes Discord return the created message.
	q := u.Query()
	q.Set("wait", "true")
	u.RawQuery = q.Encode()

	if client == nil {
		client = &http.Client{Timeout: discordTimeout}
	}
	return &WebhookPublisher{url: u.String(), client: client}, nil
}

func (w *WebhookPublisher) Publish(ctx context.Context, msg OutboundMessage) (PostResult, error) {
	payload := discordWebhookPayload{Content: clip(msg.Content, discordMaxContent)}
	for _, e := range msg.Embeds {
		payload.Embeds = append(payload.Embeds, toDiscordEmbed(e))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return PostResult{}, fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return PostResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var m discordMessage
	if err := doDiscord(w.client, req, &m); err != nil {
		return PostResult{}, fmt.Errorf("posting to discord webhook: %w", err)
	}
	if m.ID == "" {
		return PostResult{}, fmt.Errorf("posting to discord webhook: response has no message id")
	}
	return PostResult{MessageID: m.ID, ChannelID: m.ChannelID}, nil
}

// BotClient talks to the Discord REST API with a bot token. It reads the
// reactions on a message and adds the bot's own reactions.
type BotClient struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewBotClient creates a bot client. It returns ErrNoBotToken when token is
// empty. An empty baseURL uses DefaultDiscordAPIBase.
func NewBotClient(token, baseURL string, client *http.Client) (*BotClient, error) {
	if token == "" {
		return nil, ErrNoBotToken
	}
	if baseURL == "" {
		baseURL = DefaultDiscordAPIBase
	}
	if client == nil {
		client = &http.Client{Timeout: discordTimeout}
	}
	return &BotClient{token: token, baseURL: baseURL, client: client}, nil
}

func (b *BotClient) messageURL(channelID, messageID string) string {
	return fmt.Sprintf("%s/channels/%s/messages/%s", b.baseURL, url.PathEscape(channelID), url.PathEscape(messageID))
}

// Reactions returns the per-emoji reaction counts on a message. Counts
// include the bot's own reactions.
func (b *BotClient) Reactions(ctx context.Context, channelID, messageID string) ([]reaction.Count, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.messageURL(channelID, messageID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+b.token)

	var m discordMessage
	if err := doDiscord(b.client, req, &m); err != nil {
		return nil, fmt.Errorf("reading reactions for message %s: %w", messageID, err)
	}

	counts := make([]reaction.Count, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		// Custom guild emojis never match an option.
		if r.Emoji.ID != nil {
			continue
		}
		counts = append(counts, reaction.Count{Emoji: r.Emoji.Name, Count: r.Count})
	}
	return counts, nil
}

// AddReaction adds emoji to a message as the bot user.
func (b *BotClient) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	endpoint := b.messageURL(channelID, messageID) + "/reactions/" + url.PathEscape(emoji) + "/@me"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+b.token)

	if err := doDiscord(b.client, req, nil); err != nil {
		return fmt.Errorf("adding reaction %s: %w", emoji, err)
	}
	return nil
}

// doDiscord sends req and decodes a JSON body into out when out is non-nil.
func doDiscord(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("discord api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

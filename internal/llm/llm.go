// Package llm wraps the chat-completion provider.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// FallbackReply is shown when the provider cannot answer.
const FallbackReply = "I'm experiencing some technical difficulties right now. " +
	"Please try again in a moment. If you're in crisis, please reach out to a local emergency line or call or text 988."

// ErrNotConfigured is returned by a client built without an API key.
var ErrNotConfigured = errors.New("llm: no API key configured")

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message of a conversation.
type Turn struct {
	Role    Role
	Content string
}

// Completer generates text from a system prompt and conversation turns.
type Completer interface {
	Complete(ctx context.Context, system string, turns []Turn) (string, error)
}

// Config for the OpenAI-compatible provider.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// Client calls an OpenAI-compatible chat completion API through langchaingo.
type Client struct {
	model       llms.Model
	timeout     time.Duration
	temperature float64
}

// New builds a client. Without an API key every call returns ErrNotConfigured,
// so callers fall back to their offline behavior.
func New(cfg Config) (*Client, error) {
	c := &Client{timeout: cfg.Timeout, temperature: cfg.Temperature}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.temperature == 0 {
		c.temperature = 0.7
	}
	if cfg.APIKey == "" {
		return c, nil
	}

	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	c.model = model
	return c, nil
}

// Complete sends the prompt and returns the first choice.
func (c *Client) Complete(ctx context.Context, system string, turns []Turn) (string, error) {
	if c.model == nil {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]llms.MessageContent, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, system))
	}
	for _, t := range turns {
		role := schema.ChatMessageTypeHuman
		if t.Role == RoleAssistant {
			role = schema.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, t.Content))
	}

	resp, err := c.model.GenerateContent(ctx, messages, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", errors.New("llm: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// DecodeJSON extracts the first JSON object or array in text, tolerating
// markdown code fences and prose around it, and unmarshals it into dest.
func DecodeJSON(text string, dest any) error {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return errors.New("llm: no JSON in response")
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end < start {
		return errors.New("llm: unterminated JSON in response")
	}
	return json.Unmarshal([]byte(text[start:end+1]), dest)
}

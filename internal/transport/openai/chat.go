package openai

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodrag/internal/domain"
	"github.com/kailas-cloud/prodrag/internal/metrics"
)

// ChatConfig holds the chat and moderation provider settings.
type ChatConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	ModerationModel string
	Timeout         time.Duration
	Logger          *zap.Logger
}

func newClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return openai.NewClientWithConfig(cfg)
}

// Chat generates answers through the chat completions endpoint.
type Chat struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewChat creates a chat completion client.
func NewChat(cfg *ChatConfig) *Chat {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{
		client: newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:  cfg.Model,
		logger: logger,
	}
}

// Complete implements domain.Completer.
func (c *Chat) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature(req.Temperature),
	})
	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", fmt.Errorf("chat completion: %v: %w", err, domain.ErrCompletionProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", fmt.Errorf("chat completion returned no choices: %w", domain.ErrCompletionProviderError)
	}

	metrics.ChatRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
	c.logger.Debug("Chat completion",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", duration),
	)

	return resp.Choices[0].Message.Content, nil
}

// temperature maps 0 to the smallest positive float32: the request field is
// omitempty, so a literal 0 would fall back to the server default.
func temperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// Moderator asks a Llama Guard model whether a prompt is safe.
type Moderator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewModerator creates a moderation client on the completions endpoint.
func NewModerator(cfg *ChatConfig) *Moderator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Moderator{
		client: newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:  cfg.ModerationModel,
		logger: logger,
	}
}

// ModerationPrompt wraps a user message in the Llama Guard instruction format.
func ModerationPrompt(text string) string {
	return fmt.Sprintf("[INST] Is this prompt safe? '%s' [/INST]", text)
}

// IsSafe implements domain.Moderator. Any verdict mentioning "unsafe" blocks the message.
func (m *Moderator) IsSafe(ctx context.Context, text string) (bool, error) {
	resp, err := m.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       m.model,
		Prompt:      ModerationPrompt(text),
		Temperature: math.SmallestNonzeroFloat32,
	})
	if err != nil {
		return false, fmt.Errorf("moderation: %v: %w", err, domain.ErrCompletionProviderError)
	}
	if len(resp.Choices) == 0 {
		return false, fmt.Errorf("moderation returned no choices: %w", domain.ErrCompletionProviderError)
	}

	verdict := strings.ToLower(strings.TrimSpace(resp.Choices[0].Text))
	if strings.Contains(verdict, "unsafe") {
		m.logger.Info("Message flagged by moderation", zap.String("verdict", verdict))
		return false, nil
	}
	return true, nil
}

package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/knowledgequest/quiz-engine/internal/question"
)

const defaultBaseURL = "https://api.poe.com/v1"

// Config holds connection details for an OpenAI-compatible endpoint.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
}

// Client implements question.Completer over the chat completions API.
type Client struct {
	api    *openai.Client
	config Config
	logger zerolog.Logger
}

var _ question.Completer = (*Client)(nil)

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		config: cfg,
		logger: logger.With().Str("component", "chat_completion").Logger(),
	}
}

// Complete sends prompt as a single user message. Transport and API
// failures come back as errors; an empty reply is ("", nil).
func (c *Client) Complete(ctx context.Context, prompt, model string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion (%s): %w", model, err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn().Str("model", model).Msg("response carried no choices")
		return "", nil
	}

	choice := resp.Choices[0]
	c.logger.Debug().
		Str("model", model).
		Str("finish_reason", string(choice.FinishReason)).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("chat completion received")
	if choice.FinishReason == openai.FinishReasonLength {
		c.logger.Warn().Str("model", model).Msg("response truncated at max tokens")
	}
	return choice.Message.Content, nil
}

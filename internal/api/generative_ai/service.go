package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"tripai/internal/types"
)

// Message is a role-tagged chat message. Roles follow the
// chat-completions convention ("system", "user", "assistant").
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// AIClient wraps an OpenAI-compatible chat-completions endpoint. One
// outbound call per invocation; no caching and no retries at this
// layer, retries belong to the caller.
type AIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	topP      float32
	logger    *slog.Logger
}

type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	TopP      float32
}

func NewAIClient(cfg Config, logger *slog.Logger) (*AIClient, error) {
	if cfg.APIKey == "" {
		return nil, types.ErrMissingCredential
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &AIClient{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		topP:      cfg.TopP,
		logger:    logger,
	}, nil
}

// Complete sends the messages and returns the first choice's content.
// The request always carries the JSON-object response-format hint; the
// model still cannot be trusted to honor it, which is the sanitizer's
// problem, not ours.
func (ai *AIClient) Complete(ctx context.Context, messages []Message, temperature float32) (string, error) {
	reqMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := ai.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       ai.model,
		Messages:    reqMessages,
		Temperature: temperature,
		MaxTokens:   ai.maxTokens,
		TopP:        ai.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", types.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyError maps upstream failures onto the pipeline taxonomy.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %v", types.ErrAuth, err)
		}
		return fmt.Errorf("%w: %v", types.ErrTransport, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %v", types.ErrAuth, err)
		}
		return fmt.Errorf("%w: %v", types.ErrTransport, err)
	}
	return fmt.Errorf("%w: %v", types.ErrTransport, err)
}

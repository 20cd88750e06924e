package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/grandhotel/aria/agent/contract"
)

// OpenAICompleter completes conversations through any OpenAI-compatible chat
// endpoint (OpenAI itself, or a router with a base-URL override).
type OpenAICompleter struct {
	client      openaisdk.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

var _ contractx.Completer = (*OpenAICompleter)(nil)

func NewOpenAICompleter(cfg Config) *OpenAICompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	return &OpenAICompleter{
		client:      openaisdk.NewClient(opts...),
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxCompletionToken,
		timeout:     cfg.Timeout,
	}
}

func (o *OpenAICompleter) Complete(ctx context.Context, history []contractx.Turn) (string, error) {
	ctx, cancel := timeoutCtx(ctx, o.timeout)
	defer cancel()

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(history))
	for _, t := range history {
		switch t.Role {
		case contractx.RoleSystem:
			messages = append(messages, openaisdk.SystemMessage(t.Text))
		case contractx.RoleAssistant:
			messages = append(messages, openaisdk.AssistantMessage(t.Text))
		default:
			messages = append(messages, openaisdk.UserMessage(t.Text))
		}
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(o.model),
		Messages:    messages,
		Temperature: openaisdk.Float(float64(o.temperature)),
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(o.maxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrCompletionFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", contractx.ErrCompletionFailed)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", contractx.ErrCompletionFailed)
	}
	return text, nil
}

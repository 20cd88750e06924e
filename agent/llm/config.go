// Package llm provides the text-completion capability behind a single
// Completer interface, with a Gemini backend (primary) and an
// OpenAI-compatible backend selected by configuration.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/grandhotel/aria/agent/contract"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Provider           string        `envconfig:"PROVIDER" split_words:"true" default:"gemini"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"gemini-2.5-flash-lite"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: llm model is required", contractx.ErrValidation)
	}
	switch strings.TrimSpace(c.Provider) {
	case ProviderGemini, ProviderOpenAI:
		return nil
	default:
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
}

// New builds the configured completer.
func New(ctx context.Context, cfg Config) (contractx.Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch strings.TrimSpace(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAICompleter(cfg), nil
	default:
		return NewGeminiCompleter(ctx, cfg)
	}
}

func timeoutCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

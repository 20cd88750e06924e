package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	contractx "github.com/grandhotel/aria/agent/contract"
)

// defaultSafetySettings is the static content-filter configuration applied
// uniformly to every completion call.
var defaultSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
}

// GeminiCompleter completes conversations through the Gemini API.
type GeminiCompleter struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

var _ contractx.Completer = (*GeminiCompleter)(nil)

func NewGeminiCompleter(ctx context.Context, cfg Config) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiCompleter{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

func (g *GeminiCompleter) Complete(ctx context.Context, history []contractx.Turn) (string, error) {
	ctx, cancel := timeoutCtx(ctx, g.timeout)
	defer cancel()

	system, contents := splitHistory(history)

	conf := &genai.GenerateContentConfig{
		SafetySettings: defaultSafetySettings,
		Temperature:    genai.Ptr(g.temperature),
	}
	if system != "" {
		conf.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, conf)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrCompletionFailed, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", contractx.ErrCompletionFailed)
	}
	return text, nil
}

// splitHistory lifts system turns into the system instruction and maps the
// rest onto Gemini's user/model roles.
func splitHistory(history []contractx.Turn) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(history))

	for _, t := range history {
		switch t.Role {
		case contractx.RoleSystem:
			system = append(system, t.Text)
		case contractx.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: t.Text}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: t.Text}},
			})
		}
	}

	return strings.Join(system, "\n"), contents
}

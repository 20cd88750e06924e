// Package tts renders reply text to speech through an edge-tts-compatible
// synthesis service and keeps the rendered audio retrievable by reference.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	contractx "github.com/grandhotel/aria/agent/contract"
)

const maxAudioSizeBytes = 8 << 20

type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Voice   string        `envconfig:"VOICE" split_words:"true" default:"en-GB-SoniaNeural"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

// Client is the speech-renderer capability: synthesize text, stash the audio
// artifact, hand back a stable reference.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *ArtifactStore
}

var _ contractx.Renderer = (*Client)(nil)

func NewClient(cfg Config, store *ArtifactStore) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("tts url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid tts url: %w", err)
	}
	if store == nil {
		return nil, errors.New("artifact store is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		store: store,
	}, nil
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Render synthesizes the text with the given voice and returns the reference
// under which the audio can be fetched.
func (c *Client) Render(ctx context.Context, text, voice string) (string, error) {
	body, err := json.Marshal(synthesizeRequest{Text: text, Voice: voice})
	if err != nil {
		return "", fmt.Errorf("marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute synthesis request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioSizeBytes))
	if err != nil {
		return "", fmt.Errorf("read synthesis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("tts http status=%d body=%s", resp.StatusCode, string(audio))
	}
	if len(audio) == 0 {
		return "", errors.New("tts returned empty audio")
	}

	ref := uuid.New().String()
	if err := c.store.Put(ctx, ref, audio); err != nil {
		return "", fmt.Errorf("store audio artifact: %w", err)
	}
	return ref, nil
}

// Fetch returns the audio bytes behind a reference.
func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, error) {
	return c.store.Get(ctx, ref)
}

package retrieval

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

	contractx "github.com/grandhotel/aria/agent/contract"
)

const maxResponseSizeBytes = 2 << 20

// ChromaConfig locates the Chroma vector database that holds the ingested
// hotel knowledge base.
type ChromaConfig struct {
	URL        string        `envconfig:"URL" split_words:"true" required:"true"`
	Collection string        `envconfig:"COLLECTION" split_words:"true" default:"hotel_knowledge"`
	Timeout    time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// ChromaRetriever queries a Chroma collection over REST for the single
// highest-ranked match.
type ChromaRetriever struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

var _ contractx.Retriever = (*ChromaRetriever)(nil)

func NewChromaRetriever(cfg ChromaConfig) (*ChromaRetriever, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("chroma url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid chroma url: %w", err)
	}

	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		return nil, errors.New("chroma collection is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ChromaRetriever{
		baseURL:    baseURL,
		collection: collection,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chromaQueryRequest struct {
	QueryTexts []string `json:"query_texts"`
	NResults   int      `json:"n_results"`
	Include    []string `json:"include"`
}

type chromaQueryResponse struct {
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
}

func (c *ChromaRetriever) Query(ctx context.Context, text string) (contractx.Document, error) {
	body, err := json.Marshal(chromaQueryRequest{
		QueryTexts: []string{text},
		NResults:   1,
		Include:    []string{"documents", "metadatas"},
	})
	if err != nil {
		return contractx.Document{}, fmt.Errorf("marshal chroma query: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/collections/%s/query", c.baseURL, url.PathEscape(c.collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return contractx.Document{}, fmt.Errorf("build chroma request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return contractx.Document{}, fmt.Errorf("execute chroma request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return contractx.Document{}, fmt.Errorf("read chroma response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return contractx.Document{}, fmt.Errorf("chroma http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed chromaQueryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return contractx.Document{}, fmt.Errorf("decode chroma response: %w", err)
	}

	if len(parsed.Documents) == 0 || len(parsed.Documents[0]) == 0 {
		return contractx.Document{}, contractx.ErrNoMatch
	}

	doc := contractx.Document{
		Text:   parsed.Documents[0][0],
		Source: "Unknown",
	}
	if len(parsed.Metadatas) > 0 && len(parsed.Metadatas[0]) > 0 {
		if src, ok := parsed.Metadatas[0][0]["source"].(string); ok && src != "" {
			doc.Source = src
		}
	}
	return doc, nil
}

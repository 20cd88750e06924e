// Package retrieval wraps the knowledge-retriever capability and formats its
// output into context fragments for prompt injection.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/grandhotel/aria/agent/contract"
)

const (
	// noMatchFragment keeps the downstream prompt shape consistent when the
	// knowledge base has nothing relevant.
	noMatchFragment     = "No specific policy found."
	unavailableFragment = "System Note: Knowledge base unavailable."
)

// Adapter turns retriever results into context fragments. A nil retriever is
// an explicit degraded mode (knowledge base not configured).
type Adapter struct {
	retriever contractx.Retriever
}

func NewAdapter(retriever contractx.Retriever) *Adapter {
	return &Adapter{retriever: retriever}
}

// Fragment retrieves the best match for the query and formats it with its
// source label. It always returns injectable text: no-match and retriever
// failures both degrade to a neutral fragment rather than omitting context
// silently.
func (a *Adapter) Fragment(ctx context.Context, query string) string {
	if a == nil || a.retriever == nil {
		return unavailableFragment
	}

	doc, err := a.retriever.Query(ctx, query)
	if err != nil {
		if !errors.Is(err, contractx.ErrNoMatch) {
			log.Warn().Err(err).Str("query", query).Msg("knowledge retriever failed, injecting neutral fragment")
		}
		return noMatchFragment
	}

	// The source label rides along for traceability even though the
	// completion step is instructed to summarize rather than quote.
	return fmt.Sprintf("Source (%s): %s", doc.Source, doc.Text)
}

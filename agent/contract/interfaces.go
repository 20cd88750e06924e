package contract

import "context"

// Completer is the text-completion capability. Implementations apply the
// static safety configuration uniformly to every call.
type Completer interface {
	Complete(ctx context.Context, history []Turn) (string, error)
}

// Retriever is the knowledge-retriever capability: the single best match for
// a query, or ErrNoMatch.
type Retriever interface {
	Query(ctx context.Context, text string) (Document, error)
}

// Renderer is the speech-synthesis capability. It returns a stable reference
// under which the rendered audio can be fetched later.
type Renderer interface {
	Render(ctx context.Context, text, voice string) (string, error)
}

// Sink is the append-only CRM row store.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

package retrieval

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	contractx "github.com/grandhotel/aria/agent/contract"
)

type fakeRetriever struct {
	doc contractx.Document
	err error
}

func (f *fakeRetriever) Query(ctx context.Context, text string) (contractx.Document, error) {
	if f.err != nil {
		return contractx.Document{}, f.err
	}
	return f.doc, nil
}

func TestFragmentFormatsSourceLabel(t *testing.T) {
	t.Parallel()

	a := NewAdapter(&fakeRetriever{
		doc: contractx.Document{
			Text:   "Cancellations within 48 hours incur a one-night fee.",
			Source: "policies.md",
		},
	})

	got := a.Fragment(context.Background(), "refund policy")
	want := "Source (policies.md): Cancellations within 48 hours incur a one-night fee."
	if got != want {
		t.Fatalf("unexpected fragment: %q", got)
	}
}

func TestFragmentNoMatchIsNeutral(t *testing.T) {
	t.Parallel()

	a := NewAdapter(&fakeRetriever{err: contractx.ErrNoMatch})

	if got := a.Fragment(context.Background(), "refund policy"); got != noMatchFragment {
		t.Fatalf("expected neutral fragment, got %q", got)
	}
}

func TestFragmentRetrieverFailureDegrades(t *testing.T) {
	t.Parallel()

	a := NewAdapter(&fakeRetriever{err: errors.New("connection refused")})

	if got := a.Fragment(context.Background(), "refund policy"); got != noMatchFragment {
		t.Fatalf("expected neutral fragment on failure, got %q", got)
	}
}

func TestFragmentNilRetriever(t *testing.T) {
	t.Parallel()

	a := NewAdapter(nil)

	if got := a.Fragment(context.Background(), "refund policy"); got != unavailableFragment {
		t.Fatalf("expected unavailable fragment, got %q", got)
	}
}

func TestChromaRetrieverQuery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/collections/hotel_knowledge/query" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"documents": [["Service animals are always welcome."]],
			"metadatas": [[{"source": "accessibility.md"}]]
		}`))
	}))
	defer srv.Close()

	r, err := NewChromaRetriever(ChromaConfig{URL: srv.URL, Collection: "hotel_knowledge"})
	if err != nil {
		t.Fatalf("NewChromaRetriever() error = %v", err)
	}

	doc, err := r.Query(context.Background(), "wheelchair access")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if doc.Source != "accessibility.md" {
		t.Fatalf("unexpected source: %q", doc.Source)
	}
	if doc.Text != "Service animals are always welcome." {
		t.Fatalf("unexpected text: %q", doc.Text)
	}
}

func TestChromaRetrieverEmptyResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"documents": [[]], "metadatas": [[]]}`))
	}))
	defer srv.Close()

	r, err := NewChromaRetriever(ChromaConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewChromaRetriever() error = %v", err)
	}

	if _, err := r.Query(context.Background(), "anything"); !errors.Is(err, contractx.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestChromaRetrieverBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer srv.Close()

	r, err := NewChromaRetriever(ChromaConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewChromaRetriever() error = %v", err)
	}

	if _, err := r.Query(context.Background(), "anything"); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestNewChromaRetrieverValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewChromaRetriever(ChromaConfig{URL: ""}); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewChromaRetriever(ChromaConfig{URL: "http://localhost:8000", Collection: "   "}); err == nil {
		t.Fatal("expected error for blank collection")
	}
}

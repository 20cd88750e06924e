package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/grandhotel/aria/agent/contract"
)

func TestRenderStoresArtifact(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synthesize" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req synthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Voice != "en-GB-SoniaNeural" {
			t.Errorf("unexpected voice: %s", req.Voice)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	store := NewArtifactStore(nil, time.Minute)
	client, err := NewClient(Config{URL: srv.URL}, store)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	ref, err := client.Render(context.Background(), "Good morning", "en-GB-SoniaNeural")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if ref == "" {
		t.Fatal("expected non-empty audio reference")
	}

	audio, err := client.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("unexpected audio payload: %q", audio)
	}
}

func TestRenderBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "synthesis failed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL}, NewArtifactStore(nil, time.Minute))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.Render(context.Background(), "hello", "en-GB-SoniaNeural"); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: ""}, NewArtifactStore(nil, 0)); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewClient(Config{URL: "http://localhost:9001"}, nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestArtifactStoreMemoryFallback(t *testing.T) {
	t.Parallel()

	store := NewArtifactStore(nil, time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, "ref-1", []byte("audio")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, err := store.Get(ctx, "ref-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "audio" {
		t.Fatalf("unexpected payload: %q", data)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, contractx.ErrAudioNotFound) {
		t.Fatalf("expected ErrAudioNotFound, got %v", err)
	}

	if err := store.Delete(ctx, "ref-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "ref-1"); !errors.Is(err, contractx.ErrAudioNotFound) {
		t.Fatalf("expected ErrAudioNotFound after delete, got %v", err)
	}
}

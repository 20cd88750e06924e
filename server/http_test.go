package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contractx "github.com/grandhotel/aria/agent/contract"
	orchestratorx "github.com/grandhotel/aria/orchestrator"
)

type fakeOrchestration struct {
	startResult orchestratorx.StartCallResult
	turnResult  orchestratorx.TurnResult
	turnErr     error
	ended       []string
}

func (f *fakeOrchestration) StartCall(ctx context.Context) orchestratorx.StartCallResult {
	return f.startResult
}

func (f *fakeOrchestration) Turn(ctx context.Context, sessionID, text string) (orchestratorx.TurnResult, error) {
	if f.turnErr != nil {
		return orchestratorx.TurnResult{}, f.turnErr
	}
	return f.turnResult, nil
}

func (f *fakeOrchestration) EndCall(ctx context.Context, sessionID string) {
	f.ended = append(f.ended, sessionID)
}

type fakeAudio struct {
	data map[string][]byte
}

func (f *fakeAudio) Fetch(ctx context.Context, ref string) ([]byte, error) {
	b, ok := f.data[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrAudioNotFound, ref)
	}
	return b, nil
}

func newTestServer(calls Orchestration, audio AudioFetcher) *httptest.Server {
	return httptest.NewServer(NewRouter(&Handler{Calls: calls, Audio: audio}))
}

func decodeBody(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestGreet(t *testing.T) {
	t.Parallel()

	calls := &fakeOrchestration{
		startResult: orchestratorx.StartCallResult{
			SessionID: "sess-1",
			Greeting:  "Good morning, The Grand Hotel. Aria speaking. How can I help you?",
			AudioRef:  "ref-1",
		},
	}
	srv := newTestServer(calls, &fakeAudio{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/greet")
	if err != nil {
		t.Fatalf("GET /greet: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["session_id"] != "sess-1" {
		t.Fatalf("session_id = %q", body["session_id"])
	}
	if !strings.Contains(body["text"], "Aria speaking") {
		t.Fatalf("text = %q", body["text"])
	}
	if body["audio_url"] != "/audio/ref-1" {
		t.Fatalf("audio_url = %q", body["audio_url"])
	}
}

func TestChat(t *testing.T) {
	t.Parallel()

	calls := &fakeOrchestration{
		turnResult: orchestratorx.TurnResult{Reply: "Certainly.", AudioRef: "ref-2"},
	}
	srv := newTestServer(calls, &fakeAudio{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"session_id":"sess-1","text":"Do you have a pool?"}`))
	if err != nil {
		t.Fatalf("POST /chat: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["text"] != "Certainly." {
		t.Fatalf("text = %q", body["text"])
	}
	if body["audio_url"] != "/audio/ref-2" {
		t.Fatalf("audio_url = %q", body["audio_url"])
	}
}

func TestChatExpiredSession(t *testing.T) {
	t.Parallel()

	calls := &fakeOrchestration{turnErr: orchestratorx.ErrSessionExpired}
	srv := newTestServer(calls, &fakeAudio{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"session_id":"gone","text":"hello"}`))
	if err != nil {
		t.Fatalf("POST /chat: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "Session expired" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestChatValidationError(t *testing.T) {
	t.Parallel()

	calls := &fakeOrchestration{turnErr: fmt.Errorf("%w: utterance is empty", contractx.ErrValidation)}
	srv := newTestServer(calls, &fakeAudio{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"session_id":"sess-1","text":""}`))
	if err != nil {
		t.Fatalf("POST /chat: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestChatMalformedBody(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeOrchestration{}, &fakeAudio{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST /chat: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestEndCall(t *testing.T) {
	t.Parallel()

	calls := &fakeOrchestration{}
	srv := newTestServer(calls, &fakeAudio{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/end_call", "application/json",
		strings.NewReader(`{"session_id":"sess-1"}`))
	if err != nil {
		t.Fatalf("POST /end_call: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "ok" {
		t.Fatalf("status field = %q", body["status"])
	}
	if len(calls.ended) != 1 || calls.ended[0] != "sess-1" {
		t.Fatalf("ended = %v", calls.ended)
	}
}

func TestServeAudio(t *testing.T) {
	t.Parallel()

	audio := &fakeAudio{data: map[string][]byte{"ref-1": []byte("mp3-bytes")}}
	srv := newTestServer(&fakeOrchestration{}, audio)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/audio/ref-1")
	if err != nil {
		t.Fatalf("GET /audio: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestServeAudioMissing(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeOrchestration{}, &fakeAudio{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/audio/no-such-ref")
	if err != nil {
		t.Fatalf("GET /audio: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeOrchestration{}, &fakeAudio{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/greet", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /greet: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeOrchestration{}, &fakeAudio{})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/chat", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /chat: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Fatalf("allow-origin = %q", origin)
	}
}

// Package server is the HTTP boundary. Handlers translate requests into
// orchestrator calls and map sentinel errors onto status codes; no call
// logic lives here.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/grandhotel/aria/agent/contract"
	orchestratorx "github.com/grandhotel/aria/orchestrator"
)

// Config holds the listener settings, bound from the SERVER env prefix.
type Config struct {
	Addr string `envconfig:"ADDR" default:":8000"`
}

// Orchestration is the slice of the orchestrator the handlers need.
type Orchestration interface {
	StartCall(ctx context.Context) orchestratorx.StartCallResult
	Turn(ctx context.Context, sessionID, text string) (orchestratorx.TurnResult, error)
	EndCall(ctx context.Context, sessionID string)
}

// AudioFetcher resolves a rendered-audio reference into bytes.
type AudioFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

type Handler struct {
	Calls Orchestration
	Audio AudioFetcher
}

func NewRouter(handler *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/greet", handler.Greet)
	mux.HandleFunc("/chat", handler.Chat)
	mux.HandleFunc("/end_call", handler.EndCall)
	mux.HandleFunc("/audio/", handler.ServeAudio)

	return withCORS(mux)
}

type greetResponse struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	AudioURL  string `json:"audio_url,omitempty"`
}

func (h *Handler) Greet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	res := h.Calls.StartCall(r.Context())
	writeJSON(w, http.StatusOK, greetResponse{
		SessionID: res.SessionID,
		Text:      res.Greeting,
		AudioURL:  audioURL(res.AudioRef),
	})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type chatResponse struct {
	Text     string `json:"text"`
	AudioURL string `json:"audio_url,omitempty"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	res, err := h.Calls.Turn(r.Context(), req.SessionID, req.Text)
	if err != nil {
		writeTurnError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Text:     res.Reply,
		AudioURL: audioURL(res.AudioRef),
	})
}

type endCallRequest struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) EndCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req endCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	// Blocking until the summary is logged, matching the caller-facing
	// contract that "ok" means the record landed (or was skipped).
	h.Calls.EndCall(r.Context(), req.SessionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ServeAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	ref := strings.TrimPrefix(r.URL.Path, "/audio/")
	if ref == "" || strings.Contains(ref, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "audio not found"})
		return
	}

	data, err := h.Audio.Fetch(r.Context(), ref)
	if err != nil {
		if errors.Is(err, contractx.ErrAudioNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "audio not found"})
			return
		}
		log.Error().Err(err).Str("ref", ref).Msg("audio fetch failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "audio unavailable"})
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestratorx.ErrSessionExpired):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Session expired"})
	case errors.Is(err, contractx.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id and text are required"})
	default:
		log.Error().Err(err).Msg("turn failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func audioURL(ref string) string {
	if ref == "" {
		return ""
	}
	return "/audio/" + ref
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	contractx "github.com/grandhotel/aria/agent/contract"
)

// MarkerToken flags turns that carry system-level bookkeeping text. Turns
// containing it are stripped from the transcript handed to the summarizer.
const MarkerToken = "[SYSTEM]"

// Greeting is the fixed opening line spoken on every new call.
const Greeting = "Good morning, The Grand Hotel. Aria speaking. How can I help you?"

const acknowledgment = "Understood. I will be concise."

const systemPromptTemplate = MarkerToken + `
You are 'Aria', a receptionist at The Grand Hotel. Today is %s.

CRITICAL VOICE RULES (Follow these strictly):
1. BE CONCISE: Voice answers must be SHORT (max 2 sentences, ~20 words) unless the caller explicitly asks for more.
2. SUMMARIZE RAG: If given [RAG CONTEXT], extract only the specific answer. Do not read the whole policy.
3. NO LISTS: Speak naturally. Do not say "First, Second...".

ORCHESTRATION INSTRUCTIONS:
1. If given [RAG CONTEXT], use a filler like "Let me check our guide/policy..." then summarize the finding.
2. If the caller asks about dates, use the [TOOL OUTPUT].
3. Keep answers conversational, warm, and concise.

YOUR BASE KNOWLEDGE:
- Standard Room: $150. Deluxe: $250.`

// Store owns all live call sessions. Per-session operations are atomic with
// respect to other operations on the same session id; distinct sessions do
// not contend.
type Store interface {
	Create() (id, greeting string)
	AppendCaller(id, text string) ([]contractx.Turn, error)
	AppendAssistant(id, text string) error
	History(id string) ([]contractx.Turn, error)
	Destroy(id string) ([]contractx.Turn, error)
	Len() int
}

type callSession struct {
	mu    sync.Mutex
	turns []contractx.Turn
}

// MemoryStore keeps all session state in process memory. A restart loses
// every active call.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*callSession

	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*callSession),
		now:      time.Now,
	}
}

// Create seeds a fresh session with the system instruction, the
// acknowledgment, and the greeting, and returns its identifier.
func (s *MemoryStore) Create() (string, string) {
	id := uuid.New().String()
	today := s.now().Format("2006-01-02")

	cs := &callSession{
		turns: []contractx.Turn{
			{Role: contractx.RoleSystem, Text: fmt.Sprintf(systemPromptTemplate, today)},
			{Role: contractx.RoleAssistant, Text: acknowledgment},
			{Role: contractx.RoleAssistant, Text: Greeting},
		},
	}

	s.mu.Lock()
	s.sessions[id] = cs
	s.mu.Unlock()

	return id, Greeting
}

// AppendCaller appends a caller turn and returns a snapshot of the full
// history including it. The append and the snapshot happen under the
// session's lock, so overlapping requests for the same session cannot
// interleave a read-modify-write.
func (s *MemoryStore) AppendCaller(id, text string) ([]contractx.Turn, error) {
	cs, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.turns = append(cs.turns, contractx.Turn{Role: contractx.RoleCaller, Text: text})
	return snapshot(cs.turns), nil
}

func (s *MemoryStore) AppendAssistant(id, text string) error {
	cs, err := s.lookup(id)
	if err != nil {
		return err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.turns = append(cs.turns, contractx.Turn{Role: contractx.RoleAssistant, Text: text})
	return nil
}

func (s *MemoryStore) History(id string) ([]contractx.Turn, error) {
	cs, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	return snapshot(cs.turns), nil
}

// Destroy removes the session and hands back its terminal history. Repeated
// destroys fail with ErrSessionNotFound, never crash.
func (s *MemoryStore) Destroy(id string) ([]contractx.Turn, error) {
	s.mu.Lock()
	cs, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, id)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	return snapshot(cs.turns), nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) lookup(id string) (*callSession, error) {
	s.mu.RLock()
	cs, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, id)
	}
	return cs, nil
}

func snapshot(turns []contractx.Turn) []contractx.Turn {
	out := make([]contractx.Turn, len(turns))
	copy(out, turns)
	return out
}

// Package orchestrator implements the per-call turn pipeline: intent
// routing, context injection, completion, history bookkeeping, speech
// rendering, and the call lifecycle operations.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/grandhotel/aria/agent/contract"
	intentx "github.com/grandhotel/aria/agent/intent"
	retrievalx "github.com/grandhotel/aria/agent/retrieval"
	sessionx "github.com/grandhotel/aria/agent/session"
	toolx "github.com/grandhotel/aria/agent/tool"
)

// ErrSessionExpired is the only failure surfaced to the caller as such: the
// referenced session is unknown and the call must be restarted.
var ErrSessionExpired = contractx.ErrSessionNotFound

const (
	// apologyReply replaces the model's answer on any completion failure so
	// the conversation continues instead of surfacing a backend error.
	apologyReply = "I apologize, I missed that. Could you repeat?"

	invalidDateNote = "System Note: Invalid date format."

	dateLayout = "2006-01-02"
)

// CallLogger receives the terminal history once a call ends.
type CallLogger interface {
	SummarizeAndLog(ctx context.Context, history []contractx.Turn)
}

type Config struct {
	RoomType string
	Voice    string
}

// Orchestrator drives one strictly sequential pipeline per incoming turn.
type Orchestrator struct {
	store        sessionx.Store
	policy       intentx.Classifier
	temporal     intentx.Classifier
	rag          *retrievalx.Adapter
	availability toolx.Checker
	completer    contractx.Completer
	renderer     contractx.Renderer
	logger       CallLogger

	roomType string
	voice    string

	now func() time.Time
}

func New(
	store sessionx.Store,
	rag *retrievalx.Adapter,
	availability toolx.Checker,
	completer contractx.Completer,
	renderer contractx.Renderer,
	logger CallLogger,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if rag == nil {
		rag = retrievalx.NewAdapter(nil)
	}
	if availability == nil {
		availability = toolx.NewWeekendRule()
	}
	if logger == nil {
		logger = noopCallLogger{}
	}

	roomType := strings.TrimSpace(cfg.RoomType)
	if roomType == "" {
		roomType = "Standard Room"
	}
	voice := strings.TrimSpace(cfg.Voice)
	if voice == "" {
		voice = "en-GB-SoniaNeural"
	}

	return &Orchestrator{
		store:        store,
		policy:       intentx.NewPolicyClassifier(),
		temporal:     intentx.NewTemporalClassifier(),
		rag:          rag,
		availability: availability,
		completer:    completer,
		renderer:     renderer,
		logger:       logger,
		roomType:     roomType,
		voice:        voice,
		now:          time.Now,
	}, nil
}

type StartCallResult struct {
	SessionID string
	Greeting  string
	AudioRef  string
}

type TurnResult struct {
	Reply    string
	AudioRef string
}

// StartCall seeds a new session and renders the greeting. It has no
// preconditions and always succeeds; a rendering failure degrades to an
// empty audio reference.
func (o *Orchestrator) StartCall(ctx context.Context) StartCallResult {
	id, greeting := o.store.Create()
	log.Info().Str("session", shortID(id)).Msg("call started")

	return StartCallResult{
		SessionID: id,
		Greeting:  greeting,
		AudioRef:  o.render(ctx, id, greeting),
	}
}

// Turn runs the full pipeline for one caller utterance.
func (o *Orchestrator) Turn(ctx context.Context, sessionID, text string) (TurnResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return TurnResult{}, fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}
	if strings.TrimSpace(text) == "" {
		return TurnResult{}, fmt.Errorf("%w: utterance is empty", contractx.ErrValidation)
	}

	log.Info().Str("session", shortID(sessionID)).Str("utterance", text).Msg("caller turn")

	// Both detectors run independently on the raw utterance and may each
	// contribute a fragment to the same turn.
	var ragFragment, toolFragment string
	if o.policy.Match(text) {
		ragFragment = "\n[RAG CONTEXT FOUND]: " + o.rag.Fragment(ctx, text)
		log.Debug().Str("session", shortID(sessionID)).Msg("injecting RAG context")
	}
	if o.temporal.Match(text) {
		toolFragment = "\n[TOOL OUTPUT]: " + o.availabilityNote()
		log.Debug().Str("session", shortID(sessionID)).Msg("injecting tool output")
	}

	augmented := text + ragFragment + toolFragment

	history, err := o.store.AppendCaller(sessionID, augmented)
	if err != nil {
		return TurnResult{}, err
	}

	reply, err := o.completer.Complete(ctx, history)
	if err != nil {
		// Degrade to the fixed apology; the cause is logged, never surfaced.
		log.Warn().Err(err).Str("session", shortID(sessionID)).Msg("completion failed, replying with apology")
		reply = apologyReply
	}

	if err := o.store.AppendAssistant(sessionID, reply); err != nil {
		// The session ended while the backend was generating. The reply is
		// still returned; there is just no history left to extend.
		log.Warn().Err(err).Str("session", shortID(sessionID)).Msg("session gone before reply append")
	}

	return TurnResult{
		Reply:    reply,
		AudioRef: o.render(ctx, sessionID, reply),
	}, nil
}

// EndCall destroys the session and synchronously summarizes and logs its
// history. Ending an unknown or already-ended session is a no-op.
func (o *Orchestrator) EndCall(ctx context.Context, sessionID string) {
	history, err := o.store.Destroy(sessionID)
	if err != nil {
		log.Debug().Str("session", shortID(sessionID)).Msg("end_call for unknown session, ignoring")
		return
	}

	log.Info().Str("session", shortID(sessionID)).Msg("call ended, logging summary")
	o.logger.SummarizeAndLog(ctx, history)
}

// availabilityNote checks tomorrow's availability for the fixed room
// category, recovering a malformed date into a neutral phrase.
func (o *Orchestrator) availabilityNote() string {
	tomorrow := o.now().AddDate(0, 0, 1).Format(dateLayout)

	verdict, err := o.availability.Check(tomorrow, o.roomType)
	if err != nil {
		log.Warn().Err(err).Str("date", tomorrow).Msg("availability check failed")
		return invalidDateNote
	}
	return verdict.Note()
}

func (o *Orchestrator) render(ctx context.Context, sessionID, text string) string {
	ref, err := o.renderer.Render(ctx, text, o.voice)
	if err != nil {
		log.Warn().Err(err).Str("session", shortID(sessionID)).Msg("speech rendering failed, returning text only")
		return ""
	}
	return ref
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type noopCallLogger struct{}

func (noopCallLogger) SummarizeAndLog(context.Context, []contractx.Turn) {}

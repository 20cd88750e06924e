// Package summary produces the post-call CRM record: transcript extraction,
// LLM summarization into a fixed JSON shape, and a bounded-retry append to
// the row sink. Everything here is best-effort; a call that has already
// ended must never observe a summarization failure.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/grandhotel/aria/agent/contract"
	sessionx "github.com/grandhotel/aria/agent/session"
)

const summaryInstruction = `Summarize this hotel call into JSON:
{
    "guest_name": "Name/Unknown",
    "intent": "Booking/Inquiry",
    "summary": "Short summary",
    "action_required": "Yes/No"
}
Transcript: %s`

// RetryPolicy bounds how hard the summarizer tries before giving up.
type RetryPolicy struct {
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" split_words:"true" default:"2"`
	Delay       time.Duration `envconfig:"DELAY" split_words:"true" default:"2s"`
}

func (p RetryPolicy) sanitized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Summarizer turns a terminal call history into one CRM row.
type Summarizer struct {
	completer contractx.Completer
	sink      contractx.Sink
	policy    RetryPolicy

	now func() time.Time
}

// New builds a summarizer. A nil sink is the explicit degraded mode used
// when no CRM connection is configured.
func New(completer contractx.Completer, sink contractx.Sink, policy RetryPolicy) *Summarizer {
	return &Summarizer{
		completer: completer,
		sink:      sink,
		policy:    policy.sanitized(),
		now:       time.Now,
	}
}

// SummarizeAndLog analyzes the transcript and appends one record to the row
// sink, retrying per policy. It never returns an error: exhausted retries
// are logged and dropped.
func (s *Summarizer) SummarizeAndLog(ctx context.Context, history []contractx.Turn) {
	if s.sink == nil {
		log.Info().Msg("call logging skipped: no CRM sink configured")
		return
	}

	transcript := BuildTranscript(history)
	prompt := fmt.Sprintf(summaryInstruction, transcript)

	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		err := s.summarizeOnce(ctx, prompt)
		if err == nil {
			log.Info().Msg("call summary logged to CRM")
			return
		}

		log.Warn().Err(err).Int("attempt", attempt).Msg("call logging attempt failed")

		if attempt < s.policy.MaxAttempts && s.policy.Delay > 0 {
			select {
			case <-ctx.Done():
				log.Warn().Err(ctx.Err()).Msg("call logging abandoned: context done")
				return
			case <-time.After(s.policy.Delay):
			}
		}
	}

	log.Error().Int("attempts", s.policy.MaxAttempts).Msg("call logging gave up")
}

func (s *Summarizer) summarizeOnce(ctx context.Context, prompt string) error {
	reply, err := s.completer.Complete(ctx, []contractx.Turn{
		{Role: contractx.RoleCaller, Text: prompt},
	})
	if err != nil {
		return err
	}

	parsed, err := decodeSummary(reply)
	if err != nil {
		return err
	}

	return s.sink.Append(ctx, parsed.record(s.now()))
}

// BuildTranscript concatenates the call's turns, excluding any turn that
// carries the internal marker token.
func BuildTranscript(history []contractx.Turn) string {
	lines := make([]string, 0, len(history))
	for _, t := range history {
		if strings.Contains(t.Text, sessionx.MarkerToken) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Text))
	}
	return strings.Join(lines, "\n")
}

type summaryPayload struct {
	GuestName      string `json:"guest_name"`
	Intent         string `json:"intent"`
	Summary        string `json:"summary"`
	ActionRequired string `json:"action_required"`
}

func (p summaryPayload) record(now time.Time) contractx.Record {
	return contractx.Record{
		LoggedAt:       now,
		GuestName:      defaultIfEmpty(p.GuestName, "Unknown"),
		Intent:         defaultIfEmpty(p.Intent, "General"),
		Summary:        p.Summary,
		ActionRequired: defaultIfEmpty(p.ActionRequired, "No"),
	}
}

func decodeSummary(raw string) (summaryPayload, error) {
	cleaned := stripCodeFences(raw)

	var parsed summaryPayload
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return summaryPayload{}, fmt.Errorf("%w: %v", contractx.ErrMalformedSummary, err)
	}
	return parsed, nil
}

func stripCodeFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

func defaultIfEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

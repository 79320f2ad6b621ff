package stage

import (
	"context"
	"encoding/json"
	"fmt"

	"autopilot/internal/llm"
)

// StubClient answers every stage with canned, schema-valid JSON so the
// pipeline can run offline. Replies echo the wedge name from the request.
type StubClient struct {
	// Score is returned by the qa stage. Zero means 0.86.
	Score float64
}

// NewStubClient returns a StubClient whose copy clears the quality gate.
func NewStubClient() *StubClient { return &StubClient{} }

func (s *StubClient) Chat(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	var in raw
	if n := len(req.Messages); n > 0 {
		_ = json.Unmarshal([]byte(req.Messages[n-1].Content), &in)
	}
	wedge := strOr(in, "wedge_name", "Stalled users")

	var reply any
	switch req.Stage {
	case NameCohort:
		reply = map[string]any{
			"name":    wedge,
			"story":   fmt.Sprintf("Users in %q signed up but stalled before their first real workflow.", wedge),
			"urgency": "High",
		}
	case NameFlow:
		reply = map[string]any{
			"trigger": "signup_completed and no consult_created within 48h",
			"sequence": []map[string]string{
				{"t_plus": "T+48h", "channel": "email", "goal": "Remove setup friction", "cta": "Create your first consult"},
				{"t_plus": "T+60h", "channel": "sms", "goal": "Short reminder", "cta": "Start now"},
				{"t_plus": "T+96h", "channel": "in_app", "goal": "Offer help", "cta": "Get a walkthrough"},
			},
		}
	case NameCopy:
		reply = map[string]any{
			"email":  stubPack(wedge+" - activation email", "Create your first consult"),
			"sms":    stubPack(wedge+" - quick SMS", "Start now"),
			"in_app": stubPack(wedge+" - in-app nudge", "Get a walkthrough"),
		}
	case NameQA:
		score := s.Score
		if score == 0 {
			score = 0.86
		}
		reply = map[string]any{"score": score, "flags": []string{}}
	case NameExplain:
		reply = map[string]string{
			"why_cohort":  "This group shows intent but has not reached first value yet.",
			"why_timing":  "Touches start after the 48h window and stay spaced to avoid fatigue.",
			"why_message": "Each message removes one setup step and offers help.",
		}
	default:
		return llm.ChatResponse{}, fmt.Errorf("stub client: unknown stage %q", req.Stage)
	}

	body, err := json.Marshal(reply)
	if err != nil {
		return llm.ChatResponse{}, err
	}
	return llm.ChatResponse{Content: string(body), FinishReason: "stop"}, nil
}

func stubPack(title, cta string) map[string]any {
	return map[string]any{
		"title": title,
		"notes": "Three tones for A/B testing.",
		"variants": []map[string]string{
			{"tone": "warm", "cta": cta, "text": "Your workspace is ready. " + cta + " in under two minutes."},
			{"tone": "direct", "cta": cta, "text": cta + " today."},
			{"tone": "helpful", "cta": cta, "text": "Need a hand getting started? " + cta + " with a guided setup."},
		},
	}
}

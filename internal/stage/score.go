package stage

import (
	"context"
	"math"

	"autopilot/internal/artifact"
	"autopilot/internal/llm"
)

// DefaultScore is assumed when the scorer omits a usable score.
const DefaultScore = 0.5

// Rubric is sent to the scorer with every request.
var Rubric = map[string]string{
	"clarity":           "clear, short, actionable",
	"spam_risk":         "no pushy language, no excessive punctuation",
	"brand_tone":        "calm, confident, time-saving workflow",
	"healthcare_safety": "no outcomes promises, no medical advice",
}

type scoreContext struct {
	WedgeName  string                  `json:"wedge_name"`
	Messages   artifact.MessagesBundle `json:"messages"`
	KnownFlags []string                `json:"known_flags"`
	Rubric     map[string]string       `json:"scoring_rubric"`
}

// Scored is the raw model verdict, before rule flags are merged in.
type Scored struct {
	Score float64
	Flags []string
}

// Score asks the model to grade a bundle. knownFlags are the rule-based
// findings, passed along as context only.
func Score(ctx context.Context, client llm.Client, p Profile, wedgeName string, messages artifact.MessagesBundle, knownFlags []string) (Scored, error) {
	if knownFlags == nil {
		knownFlags = []string{}
	}
	in := scoreContext{WedgeName: wedgeName, Messages: messages, KnownFlags: knownFlags, Rubric: Rubric}
	var data raw
	if err := call(ctx, client, NameQA, p, scoreSystem, in, &data); err != nil {
		return Scored{}, err
	}
	score, ok := num(data["score"])
	if !ok || math.IsNaN(score) {
		score = DefaultScore
	}
	return Scored{Score: clamp01(score), Flags: stringList(data["flags"])}, nil
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

package stage

import (
	"context"
	"strings"

	"autopilot/internal/artifact"
	"autopilot/internal/llm"
)

type flowRequirements struct {
	Steps         int      `json:"steps"`
	Channels      []string `json:"channels"`
	DefaultTiming []string `json:"default_timing"`
}

type flowContext struct {
	Goal         string           `json:"goal"`
	WedgeName    string           `json:"wedge_name"`
	Urgency      string           `json:"urgency"`
	Requirements flowRequirements `json:"requirements"`
}

// Flow asks the model for the trigger and touch sequence.
func Flow(ctx context.Context, client llm.Client, p Profile, goal, wedgeName, urgency string) (artifact.FlowSpec, error) {
	in := flowContext{
		Goal:      goal,
		WedgeName: wedgeName,
		Urgency:   urgency,
		Requirements: flowRequirements{
			Steps:         3,
			Channels:      artifact.Channels,
			DefaultTiming: []string{"T+48h", "T+60h", "T+96h"},
		},
	}
	var data raw
	if err := call(ctx, client, NameFlow, p, flowSystem, in, &data); err != nil {
		return artifact.FlowSpec{}, err
	}

	flow := normalizeFlow(data)
	if err := flow.Validate(); err != nil {
		return artifact.FlowSpec{}, fail(NameFlow, KindValidation, err)
	}
	return flow, nil
}

// normalizeFlow lower-cases channel names and keeps step order.
// Non-object steps are dropped; validation decides what is left.
func normalizeFlow(data raw) artifact.FlowSpec {
	flow := artifact.FlowSpec{Trigger: strOr(data, "trigger", "")}
	for _, s := range objects(data["sequence"]) {
		flow.Sequence = append(flow.Sequence, artifact.FlowStep{
			TPlus:   strOr(s, "t_plus", ""),
			Channel: strings.ToLower(strOr(s, "channel", "")),
			Goal:    strOr(s, "goal", ""),
			CTA:     strOr(s, "cta", ""),
		})
	}
	return flow
}

package stage

import (
	"context"

	"autopilot/internal/artifact"
	"autopilot/internal/llm"
)

type explainContext struct {
	Cohort        artifact.CohortInsight  `json:"cohort"`
	Flow          artifact.FlowSpec       `json:"flow"`
	Messages      artifact.MessagesBundle `json:"messages"`
	MessageIntent map[string]string       `json:"message_intent_summary"`
}

var messageIntent = map[string]string{
	artifact.ChannelEmail: "remove friction and prompt first consult setup",
	artifact.ChannelSMS:   "short reminder with low barrier CTA",
	artifact.ChannelInApp: "gentle safety net with help option",
}

// Explain writes the stakeholder narrative for the final artifacts.
func Explain(ctx context.Context, client llm.Client, p Profile, cohort artifact.CohortInsight, flow artifact.FlowSpec, messages artifact.MessagesBundle) (artifact.ExplainBundle, error) {
	in := explainContext{Cohort: cohort, Flow: flow, Messages: messages, MessageIntent: messageIntent}
	var data raw
	if err := call(ctx, client, NameExplain, p, explainSystem, in, &data); err != nil {
		return artifact.ExplainBundle{}, err
	}
	ex := artifact.ExplainBundle{
		WhyCohort:  strOr(data, "why_cohort", ""),
		WhyTiming:  strOr(data, "why_timing", ""),
		WhyMessage: strOr(data, "why_message", ""),
	}
	if err := ex.Validate(); err != nil {
		return artifact.ExplainBundle{}, fail(NameExplain, KindValidation, err)
	}
	return ex, nil
}

package artifact

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError reports the first field that failed schema validation.
type ValidationError struct {
	Record string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s %s", e.Record, e.Field, e.Reason)
}

func invalid(record, field, format string, args ...any) error {
	return &ValidationError{Record: record, Field: field, Reason: fmt.Sprintf(format, args...)}
}

var dropoffRatePattern = regexp.MustCompile(`^\d{1,3}%$`)

// ValidUrgency reports whether u is one of Low, Medium, High.
func ValidUrgency(u string) bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh
}

// ValidChannel reports whether c is one of the three fixed channels.
func ValidChannel(c string) bool {
	return c == ChannelEmail || c == ChannelSMS || c == ChannelInApp
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// Validate checks the statistics record before any generation call.
func (s CohortStats) Validate() error {
	const rec = "cohort stats"
	if blank(s.WedgeKey) {
		return invalid(rec, "wedge_key", "is required")
	}
	if _, ok := LookupWedge(s.WedgeKey); !ok {
		return invalid(rec, "wedge_key", "%q is not a known wedge", s.WedgeKey)
	}
	if blank(s.CohortName) {
		return invalid(rec, "cohort_name", "is required")
	}
	if s.CohortSize < 0 {
		return invalid(rec, "cohort_size", "must be >= 0, got %d", s.CohortSize)
	}
	if s.TotalUsers < 0 {
		return invalid(rec, "total_users", "must be >= 0, got %d", s.TotalUsers)
	}
	if !dropoffRatePattern.MatchString(s.DropoffRate) {
		return invalid(rec, "dropoff_rate", "must look like NN%%, got %q", s.DropoffRate)
	}
	if !ValidUrgency(s.UrgencyHint) {
		return invalid(rec, "urgency_hint", "must be Low, Medium or High, got %q", s.UrgencyHint)
	}
	return nil
}

func (c CohortInsight) Validate() error {
	const rec = "cohort insight"
	if blank(c.Name) {
		return invalid(rec, "name", "is required")
	}
	if blank(c.Story) {
		return invalid(rec, "story", "is required")
	}
	if c.Size < 0 {
		return invalid(rec, "size", "must be >= 0, got %d", c.Size)
	}
	if blank(c.DropoffRate) {
		return invalid(rec, "dropoff_rate", "is required")
	}
	if !ValidUrgency(c.Urgency) {
		return invalid(rec, "urgency", "must be Low, Medium or High, got %q", c.Urgency)
	}
	return nil
}

func (f FlowSpec) Validate() error {
	const rec = "flow spec"
	if blank(f.Trigger) {
		return invalid(rec, "trigger", "is required")
	}
	if n := len(f.Sequence); n < MinFlowSteps || n > MaxFlowSteps {
		return invalid(rec, "sequence", "must have %d-%d steps, got %d", MinFlowSteps, MaxFlowSteps, n)
	}
	for i, s := range f.Sequence {
		if blank(s.TPlus) {
			return invalid(rec, fmt.Sprintf("sequence[%d].t_plus", i), "is required")
		}
		if !ValidChannel(s.Channel) {
			return invalid(rec, fmt.Sprintf("sequence[%d].channel", i), "must be email, sms or in_app, got %q", s.Channel)
		}
	}
	return nil
}

func (p ChannelMessagePack) validate(channel string) error {
	const rec = "messages bundle"
	if blank(p.Title) {
		return invalid(rec, channel+".title", "is required")
	}
	if n := len(p.Variants); n < MinVariants || n > MaxVariants {
		return invalid(rec, channel+".variants", "must have %d-%d entries, got %d", MinVariants, MaxVariants, n)
	}
	for i, v := range p.Variants {
		if blank(v.Text) {
			return invalid(rec, fmt.Sprintf("%s.variants[%d].text", channel, i), "is required")
		}
	}
	return nil
}

func (b MessagesBundle) Validate() error {
	for _, ch := range Channels {
		p, _ := b.Pack(ch)
		if err := p.validate(ch); err != nil {
			return err
		}
	}
	return nil
}

func (q QAGate) Validate() error {
	const rec = "qa gate"
	if q.Score < 0 || q.Score > 1 {
		return invalid(rec, "score", "must be within [0,1], got %v", q.Score)
	}
	if q.Regenerations < 0 {
		return invalid(rec, "regenerations", "must be >= 0, got %d", q.Regenerations)
	}
	return nil
}

func (e ExplainBundle) Validate() error {
	const rec = "explain bundle"
	if blank(e.WhyCohort) {
		return invalid(rec, "why_cohort", "is required")
	}
	if blank(e.WhyTiming) {
		return invalid(rec, "why_timing", "is required")
	}
	if blank(e.WhyMessage) {
		return invalid(rec, "why_message", "is required")
	}
	return nil
}

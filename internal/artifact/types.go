// Package artifact holds the typed records each pipeline stage produces
// and the statistics record the pipeline consumes.
package artifact

// Urgency levels shared by the statistics hint and the cohort insight.
const (
	UrgencyLow    = "Low"
	UrgencyMedium = "Medium"
	UrgencyHigh   = "High"
)

// Channel names. A MessagesBundle always carries exactly these three.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelInApp = "in_app"
)

// Channels lists the fixed channels in their canonical order.
var Channels = []string{ChannelEmail, ChannelSMS, ChannelInApp}

// Bounds on list sizes.
const (
	MinFlowSteps = 1
	MaxFlowSteps = 6
	MinVariants  = 1
	MaxVariants  = 5
)

// CohortInsight is the cohort stage output. Size and DropoffRate are copied
// from the upstream statistics, never from the model.
type CohortInsight struct {
	Name        string `json:"name"`
	Story       string `json:"story"`
	Size        int    `json:"size"`
	DropoffRate string `json:"dropoff_rate"`
	Urgency     string `json:"urgency"`
}

// FlowStep is one touch in the engagement sequence.
type FlowStep struct {
	TPlus   string `json:"t_plus"`
	Channel string `json:"channel"`
	Goal    string `json:"goal"`
	CTA     string `json:"cta"`
}

// FlowSpec is the flow stage output.
type FlowSpec struct {
	Trigger  string     `json:"trigger"`
	Sequence []FlowStep `json:"sequence"`
}

// Channels returns the channel of every step, in sequence order.
func (f FlowSpec) Channels() []string {
	out := make([]string, 0, len(f.Sequence))
	for _, s := range f.Sequence {
		out = append(out, s.Channel)
	}
	return out
}

type MessageVariant struct {
	Tone string `json:"tone"`
	CTA  string `json:"cta"`
	Text string `json:"text"`
}

type ChannelMessagePack struct {
	Title    string           `json:"title"`
	Notes    string           `json:"notes"`
	Variants []MessageVariant `json:"variants"`
}

// MessagesBundle is the copy stage output and the unit of regeneration:
// a regeneration replaces the whole bundle, never a single channel.
type MessagesBundle struct {
	Email ChannelMessagePack `json:"email"`
	SMS   ChannelMessagePack `json:"sms"`
	InApp ChannelMessagePack `json:"in_app"`
}

// Pack returns the pack for a channel name, or false for unknown channels.
func (b *MessagesBundle) Pack(channel string) (*ChannelMessagePack, bool) {
	switch channel {
	case ChannelEmail:
		return &b.Email, true
	case ChannelSMS:
		return &b.SMS, true
	case ChannelInApp:
		return &b.InApp, true
	default:
		return nil, false
	}
}

// QAGate is the quality gate verdict. Regenerations counts copy
// regeneration attempts made after the first score.
type QAGate struct {
	Score         float64  `json:"score"`
	Flags         []string `json:"flags"`
	Regenerations int      `json:"regenerations"`
}

type ExplainBundle struct {
	WhyCohort  string `json:"why_cohort"`
	WhyTiming  string `json:"why_timing"`
	WhyMessage string `json:"why_message"`
}

// CohortStats is the record handed over by the statistics collaborator.
// It is trusted over anything the cohort stage returns for size and rate.
type CohortStats struct {
	WedgeKey    string `json:"wedge_key" yaml:"wedge_key"`
	CohortName  string `json:"cohort_name" yaml:"cohort_name"`
	CohortSize  int    `json:"cohort_size" yaml:"cohort_size"`
	TotalUsers  int    `json:"total_users" yaml:"total_users"`
	DropoffRate string `json:"dropoff_rate" yaml:"dropoff_rate"`
	UrgencyHint string `json:"urgency_hint" yaml:"urgency_hint"`
}

// Wedge is a named drop-off pattern the statistics collaborator knows how
// to compute.
type Wedge struct {
	Key         string `json:"key"`
	CohortName  string `json:"cohort_name"`
	UrgencyHint string `json:"urgency_hint"`
}

// Wedges lists the supported wedge keys.
var Wedges = []Wedge{
	{Key: "no_consult_48h", CohortName: "No first consult created within 48h", UrgencyHint: UrgencyHigh},
	{Key: "note_not_finalized_2h", CohortName: "Consult completed but note not finalized within 2h", UrgencyHint: UrgencyMedium},
	{Key: "followup_not_booked_14d", CohortName: "Follow-up due but not booked within 14 days", UrgencyHint: UrgencyMedium},
}

// LookupWedge finds a wedge by key.
func LookupWedge(key string) (Wedge, bool) {
	for _, w := range Wedges {
		if w.Key == key {
			return w, true
		}
	}
	return Wedge{}, false
}

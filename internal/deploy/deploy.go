// Package deploy maps the final artifacts to the payload handed to an
// external lifecycle-messaging platform. The autonomy mode decides how much
// is pre-filled and whether a human must approve.
package deploy

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"autopilot/internal/artifact"
)

// Mode is the operator-selected autonomy mode.
type Mode string

const (
	ModeShadow   Mode = "shadow"
	ModeAssisted Mode = "assisted"
	ModeAuto     Mode = "auto"
)

// Modes lists every valid mode.
var Modes = []Mode{ModeShadow, ModeAssisted, ModeAuto}

// ParseMode rejects anything outside the closed mode set.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeShadow, ModeAssisted, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want shadow, assisted or auto)", s)
	}
}

// Deployment statuses.
const (
	StatusDraft            = "draft"
	StatusReadyForApproval = "ready_for_approval"
	StatusAPIReady         = "api_ready"
)

// Fixed policy values.
const (
	HoldoutPct     = 10
	MinSends       = 500
	SunsetCTRBelow = 0.10
)

const (
	campaignPrefix = "Autopilot - "
	shadowNotes    = "Shadow mode: suggestions only. Human approval required before any deploy."
	assistedNotes  = "Assisted mode: prefilled deploy fields. Human approval required to push to lifecycle tool."
	autoNotes      = "Auto mode: API-ready payload + sunset rules. Human spot-check weekly."
)

type TemplateFields struct {
	CampaignName string   `json:"campaign_name"`
	AudienceRule string   `json:"audience_rule"`
	Channels     []string `json:"channels"`
	HoldoutPct   int      `json:"holdout_pct"`
}

type SunsetRules struct {
	MinSends         int     `json:"min_sends"`
	SunsetIfCTRBelow float64 `json:"sunset_if_ctr_below"`
}

// SelectedVariants holds the auto-mode pick for each fixed channel.
type SelectedVariants struct {
	Email artifact.MessageVariant `json:"email"`
	SMS   artifact.MessageVariant `json:"sms"`
	InApp artifact.MessageVariant `json:"in_app"`
}

// Deployment is the mode-specific block. Only the fields of the active
// mode are set.
type Deployment struct {
	Status           string            `json:"status"`
	ReviewRequired   bool              `json:"review_required"`
	TemplateFields   *TemplateFields   `json:"template_fields,omitempty"`
	SunsetRules      *SunsetRules      `json:"sunset_rules,omitempty"`
	SelectedVariants *SelectedVariants `json:"selected_variants,omitempty"`
	Notes            string            `json:"notes"`
}

// Payload is the export artifact. Its shape depends only on Mode and the
// four source artifacts.
type Payload struct {
	Cohort     artifact.CohortInsight  `json:"cohort"`
	Flow       artifact.FlowSpec       `json:"flow"`
	Messages   artifact.MessagesBundle `json:"messages"`
	QA         artifact.QAGate         `json:"qa"`
	Mode       Mode                    `json:"mode"`
	Deployment Deployment              `json:"deployment"`
}

// Build synthesizes the payload. mode must come from ParseMode; any other
// value panics since it can only be a programming error.
func Build(mode Mode, cohort artifact.CohortInsight, flow artifact.FlowSpec, messages artifact.MessagesBundle, qa artifact.QAGate) Payload {
	p := Payload{Cohort: cohort, Flow: flow, Messages: messages, QA: qa, Mode: mode}
	switch mode {
	case ModeShadow:
		p.Deployment = shadow()
	case ModeAssisted:
		p.Deployment = assisted(cohort, flow)
	case ModeAuto:
		p.Deployment = auto(messages)
	default:
		panic(fmt.Sprintf("deploy: unvalidated mode %q", mode))
	}
	return p
}

func shadow() Deployment {
	return Deployment{Status: StatusDraft, ReviewRequired: true, Notes: shadowNotes}
}

func assisted(cohort artifact.CohortInsight, flow artifact.FlowSpec) Deployment {
	return Deployment{
		Status:         StatusReadyForApproval,
		ReviewRequired: true,
		TemplateFields: &TemplateFields{
			CampaignName: campaignPrefix + cohort.Name,
			AudienceRule: flow.Trigger,
			Channels:     flow.Channels(),
			HoldoutPct:   HoldoutPct,
		},
		Notes: assistedNotes,
	}
}

func auto(messages artifact.MessagesBundle) Deployment {
	return Deployment{
		Status:         StatusAPIReady,
		ReviewRequired: false,
		SunsetRules:    &SunsetRules{MinSends: MinSends, SunsetIfCTRBelow: SunsetCTRBelow},
		SelectedVariants: &SelectedVariants{
			Email: Shortest(messages.Email.Variants),
			SMS:   Shortest(messages.SMS.Variants),
			InApp: Shortest(messages.InApp.Variants),
		},
		Notes: autoNotes,
	}
}

// Shortest returns the variant with the fewest characters of text; the
// first one wins ties. It is a placeholder for real variant scoring.
func Shortest(variants []artifact.MessageVariant) artifact.MessageVariant {
	var best artifact.MessageVariant
	bestLen := 0
	for i, v := range variants {
		n := utf8.RuneCountInString(v.Text)
		if i == 0 || n < bestLen {
			best, bestLen = v, n
		}
	}
	return best
}

var adoption = map[Mode]string{
	ModeShadow:   "AI proposes flows with confidence + review checkpoints. Nothing auto-deploys.",
	ModeAssisted: "AI pre-fills deploy templates and suggests holdout. Human approval required to export.",
	ModeAuto:     "AI outputs API-ready payloads, chooses best variants, and suggests sunset rules. Human spot-check weekly.",
}

// Adoption returns the static adoption narrative, keyed by mode name.
func Adoption() map[string]string {
	out := make(map[string]string, len(adoption))
	for m, s := range adoption {
		out[string(m)] = s
	}
	return out
}

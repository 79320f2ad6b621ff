package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"autopilot/internal/artifact"
	"autopilot/internal/jobs"
	"autopilot/internal/orchestrate"
	"autopilot/internal/store"

	"github.com/dustin/go-humanize"
)

// Progress renders progress lines one per row: ✓ finished, … running,
// ✗ error.
func Progress(lines []jobs.Progress) string {
	var b strings.Builder
	for _, p := range lines {
		b.WriteString(progressMark(p))
		b.WriteByte(' ')
		b.WriteString(p.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

func progressMark(p jobs.Progress) string {
	switch {
	case p.Kind == jobs.KindError:
		return "✗"
	case p.Done:
		return "✓"
	default:
		return "…"
	}
}

// Result renders every section of a finished job.
func Result(m Mode, res *orchestrate.Result) string {
	sections := []string{
		cohortTable(m, res.Cohort),
		flowTable(m, res.Flow),
		messagesTable(m, res.Messages),
		qaTable(m, res.QA),
		deployTable(m, res),
		explainTable(m, res.Explain),
	}
	return strings.Join(sections, "\n\n") + "\n"
}

func cohortTable(m Mode, c artifact.CohortInsight) string {
	tb := NewTable(m)
	tb.Title("Cohort")
	tb.Header("Name", "Size", "Drop-off", "Urgency")
	tb.Row(c.Name, humanize.Comma(int64(c.Size)), c.DropoffRate, c.Urgency)
	return tb.String()
}

func flowTable(m Mode, f artifact.FlowSpec) string {
	tb := NewTable(m)
	tb.Title("Flow: " + f.Trigger)
	tb.Header("#", "When", "Channel", "Goal", "CTA")
	for i, s := range f.Sequence {
		tb.Row(i+1, s.TPlus, s.Channel, s.Goal, s.CTA)
	}
	tb.Columns(ColumnConfig{Number: 1, Align: AlignRight}, ColumnConfig{Number: 4, MaxWidth: 40})
	return tb.String()
}

func messagesTable(m Mode, b artifact.MessagesBundle) string {
	tb := NewTable(m)
	tb.Title("Messages")
	tb.Header("Channel", "Tone", "CTA", "Text")
	for _, ch := range artifact.Channels {
		pack, _ := b.Pack(ch)
		for _, v := range pack.Variants {
			tb.Row(ch, v.Tone, v.CTA, oneLine(v.Text))
		}
	}
	tb.Columns(ColumnConfig{Number: 4, MaxWidth: 60})
	return tb.String()
}

func qaTable(m Mode, q artifact.QAGate) string {
	tb := NewTable(m)
	tb.Title("QA gate")
	tb.Header("Score", "Regenerations", "Flags")
	flags := "none"
	if len(q.Flags) > 0 {
		flags = strings.Join(q.Flags, "; ")
	}
	tb.Row(Score(q.Score, orchestrate.QualityFloor), q.Regenerations, flags)
	tb.Columns(ColumnConfig{Number: 2, Align: AlignRight}, ColumnConfig{Number: 3, MaxWidth: 60})
	return tb.String()
}

func deployTable(m Mode, res *orchestrate.Result) string {
	d := res.DeployPayload.Deployment
	tb := NewTable(m)
	tb.Title(fmt.Sprintf("Deployment (%s)", res.DeployPayload.Mode))
	tb.Header("Field", "Value")
	tb.Row("status", d.Status)
	tb.Row("review required", BoolMark(d.ReviewRequired))
	if tf := d.TemplateFields; tf != nil {
		tb.Row("campaign", tf.CampaignName)
		tb.Row("audience", tf.AudienceRule)
		tb.Row("channels", strings.Join(tf.Channels, ", "))
		tb.Row("holdout", fmt.Sprintf("%d%%", tf.HoldoutPct))
	}
	if sv := d.SelectedVariants; sv != nil {
		tb.Row("email pick", Truncate(sv.Email.Text, 60))
		tb.Row("sms pick", Truncate(sv.SMS.Text, 60))
		tb.Row("in_app pick", Truncate(sv.InApp.Text, 60))
	}
	if sr := d.SunsetRules; sr != nil {
		tb.Row("sunset", fmt.Sprintf("CTR < %.2f after %d sends", sr.SunsetIfCTRBelow, sr.MinSends))
	}
	tb.Row("notes", d.Notes)
	if s := res.Adoption[string(res.DeployPayload.Mode)]; s != "" {
		tb.Row("adoption", s)
	}
	tb.Columns(ColumnConfig{Number: 2, MaxWidth: 70})
	return tb.String()
}

func explainTable(m Mode, e artifact.ExplainBundle) string {
	tb := NewTable(m)
	tb.Title("Why")
	tb.Header("Question", "Answer")
	tb.Row("cohort", e.WhyCohort)
	tb.Row("timing", e.WhyTiming)
	tb.Row("message", e.WhyMessage)
	tb.Columns(ColumnConfig{Number: 2, MaxWidth: 70})
	return tb.String()
}

// payloadSummary is the subset of a stored payload shown in listings.
type payloadSummary struct {
	Mode   string `json:"mode"`
	Cohort struct {
		Name string `json:"name"`
	} `json:"cohort"`
	QA struct {
		Score float64 `json:"score"`
	} `json:"qa"`
	Deployment struct {
		Status string `json:"status"`
	} `json:"deployment"`
}

// Exports renders a listing of saved exports. now anchors relative times.
func Exports(m Mode, list []*store.Export, now time.Time) string {
	tb := NewTable(m)
	tb.Header("Job", "Saved", "Mode", "Status", "QA", "Cohort")
	for _, e := range list {
		var s payloadSummary
		if err := json.Unmarshal(e.Payload, &s); err != nil {
			tb.Row(e.JobID, humanize.RelTime(e.CreatedAt, now, "ago", "from now"), "?", "unreadable payload", "", "")
			continue
		}
		tb.Row(e.JobID, humanize.RelTime(e.CreatedAt, now, "ago", "from now"), s.Mode, s.Deployment.Status,
			fmt.Sprintf("%.2f", s.QA.Score), Truncate(s.Cohort.Name, 40))
	}
	return tb.String()
}

package format_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"autopilot/internal/artifact"
	"autopilot/internal/deploy"
	"autopilot/internal/format"
	"autopilot/internal/jobs"
	"autopilot/internal/orchestrate"
	"autopilot/internal/stage"
	"autopilot/internal/store"
)

func TestASCII_BasicTable(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("Channel", "Tone")
	tb.Row("email", "warm")
	tb.Row("sms", "direct")
	out := tb.String()

	for _, want := range []string{"CHANNEL", "email", "direct", "───"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestMarkdown_BasicTable(t *testing.T) {
	tb := format.NewTable(format.Markdown)
	tb.Header("Step", "Channel")
	tb.Row("T+48h", "email")
	out := tb.String()

	if !strings.Contains(out, "| Step") || !strings.Contains(out, "---") || !strings.Contains(out, "T+48h") {
		t.Errorf("unexpected markdown:\n%s", out)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]format.Mode{"": format.ASCII, "table": format.ASCII, "Markdown": format.Markdown, "md": format.Markdown} {
		got, err := format.ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := format.ParseMode("html"); err == nil {
		t.Error("expected error for html")
	}
}

func TestProgress(t *testing.T) {
	out := format.Progress([]jobs.Progress{
		{Text: "Cohort analysis running...", Kind: jobs.KindInfo},
		{Text: "Cohort analysis completed.", Done: true, Kind: jobs.KindInfo},
		{Text: "Error: boom", Kind: jobs.KindError},
	})
	want := "… Cohort analysis running...\n✓ Cohort analysis completed.\n✗ Error: boom\n"
	if out != want {
		t.Errorf("Progress =\n%s\nwant\n%s", out, want)
	}
}

func stubResult(t *testing.T, mode deploy.Mode) *orchestrate.Result {
	t.Helper()
	p := orchestrate.NewPipeline(stage.NewStubClient(), orchestrate.Models{Fast: "f", Quality: "q"})
	res, err := p.Run(context.Background(), "job", orchestrate.Input{
		Mode: mode,
		Stats: artifact.CohortStats{
			WedgeKey:    "no_consult_48h",
			CohortName:  "No first consult",
			CohortSize:  1400,
			TotalUsers:  10000,
			DropoffRate: "14%",
			UrgencyHint: artifact.UrgencyHigh,
		},
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestResult_Sections(t *testing.T) {
	out := format.Result(format.ASCII, stubResult(t, deploy.ModeAuto))
	for _, want := range []string{"1,400", "14%", "T+48h", "in_app", "api_ready", "0.86 ≥ 0.78", "sunset"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in result:\n%s", want, out)
		}
	}
}

func TestResult_ModeSpecificRows(t *testing.T) {
	shadow := format.Result(format.Markdown, stubResult(t, deploy.ModeShadow))
	if strings.Contains(shadow, "holdout") || strings.Contains(shadow, "sunset") {
		t.Errorf("shadow output has assisted/auto rows:\n%s", shadow)
	}
	assisted := format.Result(format.Markdown, stubResult(t, deploy.ModeAssisted))
	if !strings.Contains(assisted, "10%") || !strings.Contains(assisted, "ready_for_approval") {
		t.Errorf("assisted output missing template rows:\n%s", assisted)
	}
}

func TestExports(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list := []*store.Export{
		{Key: "abc", JobID: "abc", CreatedAt: now.Add(-2 * time.Hour),
			Payload: []byte(`{"mode":"assisted","cohort":{"name":"Stalled"},"qa":{"score":0.81},"deployment":{"status":"ready_for_approval"}}`)},
		{Key: "bad", JobID: "bad", CreatedAt: now, Payload: []byte(`not json`)},
	}
	out := format.Exports(format.Markdown, list, now)
	for _, want := range []string{"abc", "assisted", "ready_for_approval", "0.81", "2 hours ago", "unreadable payload"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in listing:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 8, "hello..."},
		{"ab", 3, "ab"},
		{"abcdef", 3, "abc"},
		{"héllo wörld", 8, "héllo..."},
	}
	for _, tc := range tests {
		if got := format.Truncate(tc.in, tc.maxLen); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}

func TestScore(t *testing.T) {
	if got := format.Score(0.5, 0.78); got != "0.50 < 0.78" {
		t.Errorf("Score = %q", got)
	}
	if got := format.Score(0.78, 0.78); got != "0.78 ≥ 0.78" {
		t.Errorf("Score = %q", got)
	}
}

func TestBoolMark(t *testing.T) {
	if format.BoolMark(true) != "✓" || format.BoolMark(false) != "✗" {
		t.Error("BoolMark marks wrong")
	}
}

package stage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"autopilot/internal/artifact"
	"autopilot/internal/llm"

	"github.com/google/go-cmp/cmp"
)

// replyClient returns the same content for every request and records them.
type replyClient struct {
	content string
	err     error
	reqs    []llm.ChatRequest
}

func (c *replyClient) Chat(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return llm.ChatResponse{}, c.err
	}
	return llm.ChatResponse{Content: c.content}, nil
}

func testStats() artifact.CohortStats {
	return artifact.CohortStats{
		WedgeKey:    "no_consult_48h",
		CohortName:  "No first consult",
		CohortSize:  140,
		TotalUsers:  1000,
		DropoffRate: "14%",
		UrgencyHint: artifact.UrgencyHigh,
	}
}

func TestStripFence(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                  `{"a":1}`,
		"```json\n{\"a\":1}\n```":  `{"a":1}`,
		"```\n{\"a\":1}\n```":      `{"a":1}`,
		"  ```{\"a\":1}```  ":      `{"a":1}`,
		"```json\n{\"a\":1}":       `{"a":1}`,
		"\n\n  {\"a\": [1,2]}  \n": `{"a": [1,2]}`,
	}
	for in, want := range cases {
		if got := StripFence(in); got != want {
			t.Errorf("StripFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCohort_TrustsUpstreamStats(t *testing.T) {
	client := &replyClient{content: "```json\n" +
		`{"name":"Stalled","story":"They stalled.","size":9999,"dropoff_rate":"99%","urgency":"Low"}` +
		"\n```"}
	p := Profile{Model: "fast", Temperature: TempCohort}

	got, err := Cohort(context.Background(), client, p, "activation", testStats())
	if err != nil {
		t.Fatalf("Cohort: %v", err)
	}
	want := artifact.CohortInsight{Name: "Stalled", Story: "They stalled.", Size: 140, DropoffRate: "14%", Urgency: "High"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cohort mismatch (-want +got):\n%s", diff)
	}

	req := client.reqs[0]
	if req.Stage != NameCohort || req.Model != "fast" || req.Temperature != TempCohort {
		t.Errorf("unexpected request: stage=%s model=%s temp=%v", req.Stage, req.Model, req.Temperature)
	}
	if req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Errorf("unexpected roles: %+v", req.Messages)
	}
	var ctxSent map[string]any
	if err := json.Unmarshal([]byte(req.Messages[1].Content), &ctxSent); err != nil {
		t.Fatalf("user content is not JSON: %v", err)
	}
	if ctxSent["cohort_size"] != float64(140) || ctxSent["wedge"] != "no_consult_48h" {
		t.Errorf("unexpected context: %v", ctxSent)
	}
}

func TestCohort_ModelUrgencyWithoutHint(t *testing.T) {
	client := &replyClient{content: `{"name":"n","story":"s","urgency":"Medium"}`}
	stats := testStats()
	stats.UrgencyHint = ""

	got, err := Cohort(context.Background(), client, Profile{}, "activation", stats)
	if err != nil {
		t.Fatalf("Cohort: %v", err)
	}
	if got.Urgency != "Medium" {
		t.Errorf("Urgency = %q, want model suggestion", got.Urgency)
	}
}

func TestCohort_ParseFailure(t *testing.T) {
	client := &replyClient{content: "I cannot comply."}
	_, err := Cohort(context.Background(), client, Profile{}, "activation", testStats())
	if !IsKind(err, KindParse) {
		t.Fatalf("expected parse failure, got %v", err)
	}
}

func TestCohort_ValidationFailure(t *testing.T) {
	client := &replyClient{content: `{"story":"s"}`}
	_, err := Cohort(context.Background(), client, Profile{}, "activation", testStats())
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	var ve *artifact.ValidationError
	if !errors.As(err, &ve) || ve.Field != "name" {
		t.Errorf("expected name validation error, got %v", err)
	}
}

func TestCompletionFailure(t *testing.T) {
	boom := errors.New("connection reset")
	client := &replyClient{err: boom}
	_, err := Flow(context.Background(), client, Profile{}, "activation", "No first consult", "High")
	if !IsKind(err, KindCompletion) {
		t.Fatalf("expected completion failure, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestFlow_Normalizes(t *testing.T) {
	client := &replyClient{content: `{"trigger":"signup","sequence":[
		{"t_plus":"T+48h","channel":"Email","goal":"g1","cta":"c1"},
		"garbage",
		{"t_plus":"T+60h","channel":"sms","goal":"g2","cta":"c2"}]}`}
	got, err := Flow(context.Background(), client, Profile{}, "activation", "w", "High")
	if err != nil {
		t.Fatalf("Flow: %v", err)
	}
	want := artifact.FlowSpec{Trigger: "signup", Sequence: []artifact.FlowStep{
		{TPlus: "T+48h", Channel: "email", Goal: "g1", CTA: "c1"},
		{TPlus: "T+60h", Channel: "sms", Goal: "g2", CTA: "c2"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("flow mismatch (-want +got):\n%s", diff)
	}
}

func TestFlow_RejectsUnknownChannel(t *testing.T) {
	client := &replyClient{content: `{"trigger":"signup","sequence":[{"t_plus":"T+1h","channel":"push"}]}`}
	_, err := Flow(context.Background(), client, Profile{}, "activation", "w", "High")
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestNormalizeMessages(t *testing.T) {
	var data map[string]any
	reply := `{
		"email": {"title": "Welcome", "variants": [
			{"tone": "warm", "cta": "Go", "text": "Hi there"},
			42,
			{"tone": "flat"},
			{"text": "Defaults please"}
		]},
		"sms": {"variants": "not a list"},
		"in_app": {"variants": [
			{"text":"1"},{"text":"2"},{"text":"3"},{"text":"4"},{"text":"5"},{"text":"6"}
		]}
	}`
	if err := json.Unmarshal([]byte(reply), &data); err != nil {
		t.Fatal(err)
	}

	got := NormalizeMessages(data, "No first consult")

	wantEmail := artifact.ChannelMessagePack{
		Title: "Welcome",
		Notes: "Brief email to prompt next action.",
		Variants: []artifact.MessageVariant{
			{Tone: "warm", CTA: "Go", Text: "Hi there"},
			{Tone: "clear", CTA: "Take the next step", Text: "Defaults please"},
		},
	}
	if diff := cmp.Diff(wantEmail, got.Email); diff != "" {
		t.Errorf("email mismatch (-want +got):\n%s", diff)
	}

	wantSMS := artifact.ChannelMessagePack{
		Title:    "No first consult - quick SMS",
		Notes:    "Short SMS reminder; under 240 characters.",
		Variants: []artifact.MessageVariant{{Tone: "clear", CTA: "Take the next step", Text: "Quick nudge to keep care moving."}},
	}
	if diff := cmp.Diff(wantSMS, got.SMS); diff != "" {
		t.Errorf("sms mismatch (-want +got):\n%s", diff)
	}

	if n := len(got.InApp.Variants); n != artifact.MaxVariants {
		t.Errorf("in_app variants = %d, want truncation to %d", n, artifact.MaxVariants)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("normalized bundle must validate: %v", err)
	}
}

func TestNormalizeMessages_MissingChannels(t *testing.T) {
	got := NormalizeMessages(map[string]any{"email": "oops"}, "W")
	if err := got.Validate(); err != nil {
		t.Fatalf("normalized bundle must validate: %v", err)
	}
	if got.InApp.Title != "W - in-app nudge" {
		t.Errorf("in_app title = %q", got.InApp.Title)
	}
}

func TestCopy_RejectsNonObject(t *testing.T) {
	client := &replyClient{content: `["email","sms"]`}
	_, err := Copy(context.Background(), client, Profile{}, CopyInput{WedgeName: "w"})
	if !IsKind(err, KindParse) {
		t.Fatalf("expected parse failure, got %v", err)
	}
}

func TestScore(t *testing.T) {
	client := &replyClient{content: `{"score": 0.91, "flags": ["Too long", 7, "Pushy"]}`}
	got, err := Score(context.Background(), client, Profile{}, "w", artifact.MessagesBundle{}, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := Scored{Score: 0.91, Flags: []string{"Too long", "Pushy"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("score mismatch (-want +got):\n%s", diff)
	}

	var sent map[string]any
	if err := json.Unmarshal([]byte(client.reqs[0].Messages[1].Content), &sent); err != nil {
		t.Fatal(err)
	}
	if flags, ok := sent["known_flags"].([]any); !ok || len(flags) != 0 {
		t.Errorf("known_flags should be an empty list, got %v", sent["known_flags"])
	}
}

func TestScore_DefaultsAndClamps(t *testing.T) {
	client := &replyClient{content: `{"flags": []}`}
	got, err := Score(context.Background(), client, Profile{}, "w", artifact.MessagesBundle{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != DefaultScore {
		t.Errorf("Score = %v, want default %v", got.Score, DefaultScore)
	}

	client = &replyClient{content: `{"score": "1.7"}`}
	got, err = Score(context.Background(), client, Profile{}, "w", artifact.MessagesBundle{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != 1 {
		t.Errorf("Score = %v, want clamp to 1", got.Score)
	}
}

func TestExplain_RequiresAllFields(t *testing.T) {
	client := &replyClient{content: `{"why_cohort":"a","why_timing":"b"}`}
	_, err := Explain(context.Background(), client, Profile{}, artifact.CohortInsight{}, artifact.FlowSpec{}, artifact.MessagesBundle{})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestExplain_SendsFinalMessages(t *testing.T) {
	client := &replyClient{content: `{"why_cohort":"a","why_timing":"b","why_message":"c"}`}
	msgs := artifact.MessagesBundle{
		Email: artifact.ChannelMessagePack{Title: "Welcome back", Variants: []artifact.MessageVariant{{Tone: "warm", CTA: "Book now", Text: "Your first consult is one click away."}}},
		SMS:   artifact.ChannelMessagePack{Title: "Reminder", Variants: []artifact.MessageVariant{{Tone: "direct", CTA: "Start", Text: "Start your consult today."}}},
	}
	if _, err := Explain(context.Background(), client, Profile{}, artifact.CohortInsight{}, artifact.FlowSpec{}, msgs); err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if len(client.reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(client.reqs))
	}
	var sent struct {
		Messages      artifact.MessagesBundle `json:"messages"`
		MessageIntent map[string]string       `json:"message_intent_summary"`
	}
	if err := json.Unmarshal([]byte(client.reqs[0].Messages[1].Content), &sent); err != nil {
		t.Fatalf("decode user message: %v", err)
	}
	if diff := cmp.Diff(msgs, sent.Messages); diff != "" {
		t.Errorf("messages sent to explain (-want +got):\n%s", diff)
	}
	if sent.MessageIntent[artifact.ChannelSMS] == "" {
		t.Error("message intent summary missing")
	}
}

func TestStubClient_AllStagesValid(t *testing.T) {
	ctx := context.Background()
	stub := NewStubClient()
	stats := testStats()

	cohort, err := Cohort(ctx, stub, Profile{}, "activation", stats)
	if err != nil {
		t.Fatalf("Cohort: %v", err)
	}
	flow, err := Flow(ctx, stub, Profile{}, "activation", stats.CohortName, cohort.Urgency)
	if err != nil {
		t.Fatalf("Flow: %v", err)
	}
	if len(flow.Sequence) != 3 {
		t.Errorf("stub flow steps = %d, want 3", len(flow.Sequence))
	}
	msgs, err := Copy(ctx, stub, Profile{}, CopyInput{Goal: "activation", WedgeName: stats.CohortName, Trigger: flow.Trigger, Sequence: flow.Sequence})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	for _, ch := range artifact.Channels {
		p, _ := msgs.Pack(ch)
		if len(p.Variants) != 3 {
			t.Errorf("%s variants = %d, want 3", ch, len(p.Variants))
		}
	}
	scored, err := Score(ctx, stub, Profile{}, stats.CohortName, msgs, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if scored.Score != 0.86 {
		t.Errorf("stub score = %v", scored.Score)
	}
	if _, err := Explain(ctx, stub, Profile{}, cohort, flow, msgs); err != nil {
		t.Fatalf("Explain: %v", err)
	}
}

// Package stage wraps each AI-generation step of the pipeline: build the
// request context, make exactly one completion call, decode the reply into
// a permissive shape, repair it, and validate it into an artifact type.
//
// Invokers never retry. Regeneration of copy is the orchestrator's job.
package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"autopilot/internal/llm"
)

// Stage names, also used as llm.ChatRequest.Stage routing tags.
const (
	NameCohort  = "cohort"
	NameFlow    = "flow"
	NameCopy    = "copy"
	NameQA      = "qa"
	NameExplain = "explain"
)

// Sampling temperatures per stage. Deterministic stages run cold; copy runs warm.
const (
	TempCohort  = 0.2
	TempFlow    = 0.25
	TempCopy    = 0.6
	TempQA      = 0.1
	TempExplain = 0.2
)

// Profile selects the model and creativity for one call.
type Profile struct {
	Model       string
	Temperature float64
}

// ErrorKind classifies a stage failure.
type ErrorKind string

const (
	KindCompletion ErrorKind = "completion"
	KindParse      ErrorKind = "parse"
	KindValidation ErrorKind = "validation"
)

// Error is returned by every invoker on failure.
type Error struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s stage %s failure: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a stage Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

func fail(stage string, kind ErrorKind, err error) error {
	return &Error{Stage: stage, Kind: kind, Err: err}
}

// StripFence removes an optional ``` or ```json wrapper around a reply.
func StripFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		// Drop a language tag on the opening fence line.
		if tag := strings.TrimSpace(t[:nl]); tag == "" || !strings.ContainsAny(tag, "{[") {
			t = t[nl+1:]
		}
	}
	if end := strings.Index(t, "```"); end >= 0 {
		t = t[:end]
	}
	return strings.TrimSpace(t)
}

// call sends one completion request with the given system instruction and
// JSON context, then decodes the reply into out.
func call(ctx context.Context, client llm.Client, stage string, p Profile, system string, input any, out any) error {
	user, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return fail(stage, KindCompletion, fmt.Errorf("marshal context: %w", err))
	}
	resp, err := client.Chat(ctx, llm.ChatRequest{
		Model:       p.Model,
		Temperature: p.Temperature,
		Stage:       stage,
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: string(user)},
		},
	})
	if err != nil {
		return fail(stage, KindCompletion, err)
	}
	body := StripFence(resp.Content)
	if body == "" {
		body = "{}"
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fail(stage, KindParse, fmt.Errorf("reply is not a JSON object: %w", err))
	}
	return nil
}

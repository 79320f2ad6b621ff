// Package mcp exposes autopilot jobs as MCP tools: start a job, poll its
// progress, list the supported wedges and read back saved exports.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"autopilot/internal/artifact"
	"autopilot/internal/deploy"
	"autopilot/internal/jobs"
	"autopilot/internal/logging"
	"autopilot/internal/orchestrate"
	"autopilot/internal/stage"
	"autopilot/internal/store"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Job states reported by get_job.
const (
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// Server wraps the MCP SDK server around one job table.
type Server struct {
	MCPServer *sdkmcp.Server
	Jobs      *jobs.Manager[orchestrate.Result]

	pipeline *orchestrate.Pipeline
	store    store.Store
}

// NewServer registers the autopilot tools. p runs every job; st backs
// get_export and may be nil.
func NewServer(p *orchestrate.Pipeline, st store.Store) *Server {
	s := &Server{
		Jobs:     jobs.NewManager[orchestrate.Result](),
		pipeline: p,
		store:    st,
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "autopilot", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "start_job",
		Description: "Start an autopilot job for one cohort. Returns a job ID immediately; poll get_job for progress.",
	}, s.handleStartJob)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_job",
		Description: "Get a job's progress lines and, once done, its result. A done job without a result failed.",
	}, s.handleGetJob)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_wedges",
		Description: "List the drop-off wedges a job can target, with default cohort names and urgency.",
	}, s.handleListWedges)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_export",
		Description: "Read a saved deployment payload by job ID, or the latest one.",
	}, s.handleGetExport)
}

// --- Tool input/output types ---

type startJobInput struct {
	Goal        string `json:"goal,omitempty" jsonschema:"business goal (default activation)"`
	Mode        string `json:"mode" jsonschema:"autonomy mode (shadow, assisted, auto)"`
	WedgeKey    string `json:"wedge_key" jsonschema:"wedge key from list_wedges"`
	CohortName  string `json:"cohort_name,omitempty" jsonschema:"cohort display name (default from the wedge)"`
	CohortSize  int    `json:"cohort_size" jsonschema:"users in the cohort"`
	TotalUsers  int    `json:"total_users" jsonschema:"users in the whole event log"`
	DropoffRate string `json:"dropoff_rate" jsonschema:"cohort share of users as a percentage, e.g. 14%"`
	UrgencyHint string `json:"urgency_hint,omitempty" jsonschema:"Low, Medium or High (default from the wedge)"`
	Adapter     string `json:"adapter,omitempty" jsonschema:"completion adapter: empty for the server default, or stub"`
}

type startJobOutput struct {
	JobID  string `json:"job_id"`
	Mode   string `json:"mode"`
	Status string `json:"status"`
}

type getJobInput struct {
	JobID string `json:"job_id" jsonschema:"job ID from start_job"`
	Since int    `json:"since,omitempty" jsonschema:"return progress from this index onward (0-based)"`
}

type getJobOutput struct {
	JobID    string              `json:"job_id"`
	Status   string              `json:"status"`
	Done     bool                `json:"done"`
	Progress []jobs.Progress     `json:"progress"`
	Total    int                 `json:"total"`
	Result   *orchestrate.Result `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
}

type listWedgesInput struct{}

type listWedgesOutput struct {
	Wedges []artifact.Wedge `json:"wedges"`
	Modes  []string         `json:"modes"`
}

type getExportInput struct {
	Key string `json:"key,omitempty" jsonschema:"job ID, or empty for the latest export"`
}

type getExportOutput struct {
	JobID     string         `json:"job_id"`
	CreatedAt string         `json:"created_at"`
	Payload   map[string]any `json:"payload"`
}

// --- Tool handlers ---

func (s *Server) handleStartJob(ctx context.Context, _ *sdkmcp.CallToolRequest, input startJobInput) (*sdkmcp.CallToolResult, startJobOutput, error) {
	logger := logging.New("mcp")

	in, err := jobInput(input)
	if err != nil {
		logger.Warn("start_job rejected", "error", err)
		return nil, startJobOutput{}, err
	}
	p, err := s.pipelineFor(input.Adapter)
	if err != nil {
		return nil, startJobOutput{}, err
	}

	id := s.Jobs.Create()
	if err := s.Jobs.Submit(id, p.Job(id, in, s.Jobs.Reporter(id))); err != nil {
		return nil, startJobOutput{}, fmt.Errorf("start job: %w", err)
	}
	logger.Info("job started", "job_id", id, "wedge", in.Stats.WedgeKey, "mode", in.Mode)

	return nil, startJobOutput{JobID: id, Mode: string(in.Mode), Status: StateRunning}, nil
}

// jobInput fills wedge defaults and validates before any job exists.
func jobInput(input startJobInput) (orchestrate.Input, error) {
	w, ok := artifact.LookupWedge(strings.TrimSpace(input.WedgeKey))
	if !ok {
		return orchestrate.Input{}, fmt.Errorf("unknown wedge_key %q (see list_wedges)", input.WedgeKey)
	}
	stats := artifact.CohortStats{
		WedgeKey:    w.Key,
		CohortName:  input.CohortName,
		CohortSize:  input.CohortSize,
		TotalUsers:  input.TotalUsers,
		DropoffRate: input.DropoffRate,
		UrgencyHint: input.UrgencyHint,
	}
	if stats.CohortName == "" {
		stats.CohortName = w.CohortName
	}
	if stats.UrgencyHint == "" {
		stats.UrgencyHint = w.UrgencyHint
	}
	return orchestrate.Input{Goal: input.Goal, Mode: deploy.Mode(input.Mode), Stats: stats}.Normalize()
}

func (s *Server) pipelineFor(adapter string) (*orchestrate.Pipeline, error) {
	switch strings.ToLower(strings.TrimSpace(adapter)) {
	case "":
		if s.pipeline == nil || s.pipeline.Client == nil {
			return nil, fmt.Errorf("server has no completion adapter configured; pass adapter=stub")
		}
		return s.pipeline, nil
	case "stub":
		p := orchestrate.Pipeline{Models: orchestrate.Models{Fast: "stub", Quality: "stub"}}
		if s.pipeline != nil {
			p = *s.pipeline
		}
		p.Client = stage.NewStubClient()
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown adapter %q (want stub or empty)", adapter)
	}
}

func (s *Server) handleGetJob(_ context.Context, _ *sdkmcp.CallToolRequest, input getJobInput) (*sdkmcp.CallToolResult, getJobOutput, error) {
	st, ok := s.Jobs.Get(input.JobID)
	if !ok {
		return nil, getJobOutput{}, fmt.Errorf("unknown job_id %q", input.JobID)
	}
	out := getJobOutput{
		JobID:    st.JobID,
		Status:   StateRunning,
		Done:     st.Done,
		Progress: since(st.Progress, input.Since),
		Total:    len(st.Progress),
		Result:   st.Result,
	}
	switch {
	case st.Done && st.Result != nil:
		out.Status = StateDone
	case st.Done:
		out.Status = StateFailed
		if n := len(st.Progress); n > 0 {
			out.Error = st.Progress[n-1].Text
		}
	}
	return nil, out, nil
}

// since returns progress[idx:], clamped to the list.
func since(progress []jobs.Progress, idx int) []jobs.Progress {
	if idx < 0 {
		idx = 0
	}
	if idx >= len(progress) {
		return []jobs.Progress{}
	}
	return progress[idx:]
}

func (s *Server) handleListWedges(_ context.Context, _ *sdkmcp.CallToolRequest, _ listWedgesInput) (*sdkmcp.CallToolResult, listWedgesOutput, error) {
	modes := make([]string, len(deploy.Modes))
	for i, m := range deploy.Modes {
		modes[i] = string(m)
	}
	wedges := append([]artifact.Wedge(nil), artifact.Wedges...)
	return nil, listWedgesOutput{Wedges: wedges, Modes: modes}, nil
}

func (s *Server) handleGetExport(ctx context.Context, _ *sdkmcp.CallToolRequest, input getExportInput) (*sdkmcp.CallToolResult, getExportOutput, error) {
	if s.store == nil {
		return nil, getExportOutput{}, fmt.Errorf("no export store configured")
	}
	key := strings.TrimSpace(input.Key)
	if key == "" {
		key = store.LatestKey
	}
	e, err := s.store.GetExport(ctx, key)
	if err != nil {
		return nil, getExportOutput{}, err
	}
	if e == nil {
		return nil, getExportOutput{}, fmt.Errorf("no export for %q", key)
	}
	var payload map[string]any
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, getExportOutput{}, fmt.Errorf("decode export %s: %w", key, err)
	}
	return nil, getExportOutput{
		JobID:     e.JobID,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
		Payload:   payload,
	}, nil
}

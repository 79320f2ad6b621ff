package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Exporter persists a finished job. payload is the deployment payload and
// result the full result, both as indented JSON.
type Exporter interface {
	SaveExport(ctx context.Context, key string, payload, result []byte) error
}

// Notifier announces a finished job.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// publish hands the result to the export sink and then the notifier.
// Failures are logged and never affect the job.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, jobID string, res *Result) {
	if p.Exporter != nil {
		if err := export(ctx, p.Exporter, jobID, res); err != nil {
			logger.Warn("export failed", "error", err)
		}
	}
	if p.Notifier != nil {
		if err := p.Notifier.Notify(ctx, Summary(res)); err != nil {
			logger.Warn("notification failed", "error", err)
		}
	}
}

func export(ctx context.Context, e Exporter, jobID string, res *Result) error {
	payload, err := json.MarshalIndent(res.DeployPayload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	result, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return e.SaveExport(ctx, jobID, payload, result)
}

// Summary is the short announcement posted after a job finishes.
func Summary(res *Result) string {
	return fmt.Sprintf("*Lifecycle Autopilot generated a flow*\n"+
		"- Cohort: %s (%s)\n"+
		"- Trigger: %s\n"+
		"- QA score: %.2f\n"+
		"- Mode: %s",
		res.Cohort.Name, res.Cohort.DropoffRate, res.Flow.Trigger, res.QA.Score, res.DeployPayload.Mode)
}

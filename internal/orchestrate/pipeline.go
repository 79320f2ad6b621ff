// Package orchestrate runs the generation stages of one autopilot job in
// fixed order, gates the copy on quality with bounded regeneration, and
// assembles the final result and deployment payload.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"autopilot/internal/artifact"
	"autopilot/internal/deploy"
	"autopilot/internal/jobs"
	"autopilot/internal/llm"
	"autopilot/internal/logging"
	"autopilot/internal/qa"
	"autopilot/internal/stage"

	"github.com/dustin/go-humanize"
)

// DefaultGoal is used when the caller leaves the goal empty.
const DefaultGoal = "activation"

// ProgressFunc receives progress lines. It is fire-and-forget.
type ProgressFunc func(text string, done bool, kind jobs.Kind)

// Models names the two model tiers. Fast serves the analytic stages and the
// first QA pass; Quality serves copywriting and every regeneration.
type Models struct {
	Fast    string
	Quality string
}

// Input is one autopilot request.
type Input struct {
	Goal  string               `json:"goal"`
	Mode  deploy.Mode          `json:"mode"`
	Stats artifact.CohortStats `json:"stats"`
}

// Normalize fills the default goal and canonicalizes the mode. It returns
// an error for anything that must be rejected before a completion call.
func (in Input) Normalize() (Input, error) {
	if strings.TrimSpace(in.Goal) == "" {
		in.Goal = DefaultGoal
	}
	mode, err := deploy.ParseMode(string(in.Mode))
	if err != nil {
		return Input{}, err
	}
	in.Mode = mode
	if err := in.Stats.Validate(); err != nil {
		return Input{}, err
	}
	return in, nil
}

// Result is the complete output of a successful job.
type Result struct {
	Cohort        artifact.CohortInsight  `json:"cohort"`
	Flow          artifact.FlowSpec       `json:"flow"`
	Messages      artifact.MessagesBundle `json:"messages"`
	QA            artifact.QAGate         `json:"qa"`
	Explain       artifact.ExplainBundle  `json:"explain"`
	Adoption      map[string]string       `json:"adoption"`
	DeployPayload deploy.Payload          `json:"deploy_payload"`
}

// Pipeline holds everything a job needs besides its input. Exporter and
// Notifier are optional.
type Pipeline struct {
	Client   llm.Client
	Models   Models
	Exporter Exporter
	Notifier Notifier
}

// NewPipeline returns a pipeline without sinks.
func NewPipeline(client llm.Client, models Models) *Pipeline {
	return &Pipeline{Client: client, Models: models}
}

// Job binds one run to the job engine.
func (p *Pipeline) Job(jobID string, in Input, progress ProgressFunc) jobs.Func[Result] {
	return func(ctx context.Context) (*Result, error) {
		return p.Run(ctx, jobID, in, progress)
	}
}

// Run executes cohort, flow, copy, qa (with regeneration) and explain in
// order. Any stage failure aborts the run and no result is produced.
func (p *Pipeline) Run(ctx context.Context, jobID string, in Input, progress ProgressFunc) (*Result, error) {
	if p.Client == nil {
		return nil, errors.New("pipeline has no completion client")
	}
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(string, bool, jobs.Kind) {}
	}
	logger := logging.New("orchestrate").With("job_id", jobID)

	progress(fmt.Sprintf("Cohort prepared: %s users (%s)", humanize.Comma(int64(in.Stats.CohortSize)), in.Stats.DropoffRate), true, jobs.KindInfo)

	fast := func(temp float64) stage.Profile { return stage.Profile{Model: p.Models.Fast, Temperature: temp} }
	quality := func(temp float64) stage.Profile { return stage.Profile{Model: p.Models.Quality, Temperature: temp} }

	var cohort artifact.CohortInsight
	if err := step(progress, "Cohort analysis", func() (_ string, err error) {
		cohort, err = stage.Cohort(ctx, p.Client, fast(stage.TempCohort), in.Goal, in.Stats)
		return "", err
	}); err != nil {
		return nil, err
	}
	logger.Info("stage completed", "stage", stage.NameCohort, "urgency", cohort.Urgency)

	var flow artifact.FlowSpec
	if err := step(progress, "Flow design", func() (_ string, err error) {
		flow, err = stage.Flow(ctx, p.Client, fast(stage.TempFlow), in.Goal, in.Stats.CohortName, cohort.Urgency)
		return "", err
	}); err != nil {
		return nil, err
	}
	logger.Info("stage completed", "stage", stage.NameFlow, "steps", len(flow.Sequence))

	copyIn := stage.CopyInput{
		Goal:      in.Goal,
		WedgeName: in.Stats.CohortName,
		Trigger:   flow.Trigger,
		Sequence:  flow.Sequence,
	}
	var messages artifact.MessagesBundle
	if err := step(progress, "Copywriting", func() (_ string, err error) {
		messages, err = stage.Copy(ctx, p.Client, quality(stage.TempCopy), copyIn)
		return "", err
	}); err != nil {
		return nil, err
	}
	logger.Info("stage completed", "stage", stage.NameCopy)

	var verdict artifact.QAGate
	if err := step(progress, "QA gate", func() (_ string, err error) {
		messages, verdict, err = p.gate(ctx, logger, copyIn, messages, fast(stage.TempQA), quality)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("score %.2f, %d regeneration(s)", verdict.Score, verdict.Regenerations), nil
	}); err != nil {
		return nil, err
	}
	logger.Info("stage completed", "stage", stage.NameQA, "score", verdict.Score, "regenerations", verdict.Regenerations, "flags", len(verdict.Flags))

	var explain artifact.ExplainBundle
	if err := step(progress, "Explanation", func() (_ string, err error) {
		explain, err = stage.Explain(ctx, p.Client, fast(stage.TempExplain), cohort, flow, messages)
		return "", err
	}); err != nil {
		return nil, err
	}
	logger.Info("stage completed", "stage", stage.NameExplain)

	res := &Result{
		Cohort:        cohort,
		Flow:          flow,
		Messages:      messages,
		QA:            verdict,
		Explain:       explain,
		Adoption:      deploy.Adoption(),
		DeployPayload: deploy.Build(in.Mode, cohort, flow, messages, verdict),
	}

	p.publish(ctx, logger, jobID, res)
	progress("Export ready.", true, jobs.KindInfo)
	return res, nil
}

// gate scores the copy and regenerates it while the score stays under the
// floor and attempts remain. The last attempt is kept even when it never
// clears the floor.
func (p *Pipeline) gate(
	ctx context.Context,
	logger *slog.Logger,
	copyIn stage.CopyInput,
	messages artifact.MessagesBundle,
	first stage.Profile,
	quality func(float64) stage.Profile,
) (artifact.MessagesBundle, artifact.QAGate, error) {
	g := qa.Gate{Client: p.Client}
	verdict, err := g.Evaluate(ctx, first, copyIn.WedgeName, messages)
	if err != nil {
		return messages, artifact.QAGate{}, err
	}

	for regens := 0; needsRegeneration(verdict.Score, regens); {
		regens++
		logger.Info("regenerating copy", "attempt", regens, "score", verdict.Score, "floor", QualityFloor)
		next, err := stage.Copy(ctx, p.Client, quality(stage.TempCopy), copyIn)
		if err != nil {
			return messages, artifact.QAGate{}, err
		}
		rescored, err := g.Evaluate(ctx, quality(stage.TempQA), copyIn.WedgeName, next)
		if err != nil {
			return messages, artifact.QAGate{}, err
		}
		messages, verdict = next, rescored
		verdict.Regenerations = regens
	}
	return messages, verdict, nil
}

// step wraps one stage with its started and completed progress lines.
// Errors are returned unreported; the job engine writes the error line.
func step(progress ProgressFunc, label string, fn func() (string, error)) error {
	progress(label+" running...", false, jobs.KindInfo)
	detail, err := fn()
	if err != nil {
		return err
	}
	if detail != "" {
		progress(fmt.Sprintf("%s completed (%s).", label, detail), true, jobs.KindInfo)
	} else {
		progress(label+" completed.", true, jobs.KindInfo)
	}
	return nil
}

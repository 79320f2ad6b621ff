package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"autopilot/internal/format"
	"autopilot/internal/jobs"
	"autopilot/internal/logging"
	"autopilot/internal/orchestrate"
	"autopilot/internal/store"
)

const pollInterval = 100 * time.Millisecond

var runFlags struct {
	statsPath  string
	goal       string
	modes      string
	adapter    string
	format     string
	dbPath     string
	exportsDir string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a lifecycle flow for one cohort",
	Long: `Run the full pipeline for the cohort described by --stats and print
progress as it happens, then the generated flow, copy, QA verdict and
deployment payload.

Several modes may be given comma-separated; each runs as its own job:
  autopilot run --stats cohort.yaml --mode shadow,assisted,auto

Every finished job is saved to the export database and directory. With
notify.slack_webhook_url set, a summary is posted after each export.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.statsPath, "stats", "", "Path to the cohort statistics file (YAML or JSON)")
	f.StringVar(&runFlags.goal, "goal", orchestrate.DefaultGoal, "Business goal for the flow")
	f.StringVar(&runFlags.modes, "mode", "shadow", "Autonomy mode(s): shadow, assisted, auto (comma-separated)")
	f.StringVar(&runFlags.adapter, "adapter", adapterOpenAI, "Completion adapter: openai or stub (offline)")
	f.StringVar(&runFlags.format, "format", "table", "Output format: table or markdown")
	f.StringVar(&runFlags.dbPath, "db", "", "Export DB path (default: exports.db from config)")
	f.StringVar(&runFlags.exportsDir, "exports-dir", "", "Export directory (default: exports.dir from config)")

	_ = runCmd.MarkFlagRequired("stats")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	if runFlags.dbPath != "" {
		cfg.Exports.DB = runFlags.dbPath
	}
	if runFlags.exportsDir != "" {
		cfg.Exports.Dir = runFlags.exportsDir
	}

	stats, err := loadStats(runFlags.statsPath)
	if err != nil {
		return err
	}
	modes, err := parseModes(runFlags.modes)
	if err != nil {
		return err
	}
	fm, err := format.ParseMode(runFlags.format)
	if err != nil {
		return err
	}
	inputs := make([]orchestrate.Input, 0, len(modes))
	for _, m := range modes {
		in, err := orchestrate.Input{Goal: runFlags.goal, Mode: m, Stats: stats}.Normalize()
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}

	p, err := newPipeline(cfg, runFlags.adapter)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Exports.DB)
	if err != nil {
		return err
	}
	defer st.Close()
	p.Exporter = store.Multi{st, store.DirStore{Dir: cfg.Exports.Dir}}
	if p.Notifier, err = newNotifier(cfg); err != nil {
		return err
	}

	mgr := jobs.NewManager[orchestrate.Result]()
	ids := make([]string, len(inputs))
	for i, in := range inputs {
		id := mgr.Create()
		if err := mgr.Submit(id, p.Job(id, in, mgr.Reporter(id))); err != nil {
			return err
		}
		ids[i] = id
		logging.New("cli").Info("job submitted", "job_id", id, "mode", in.Mode)
	}

	out := &lockedWriter{w: cmd.OutOrStdout()}
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			return follow(cmd.Context(), mgr, id, len(ids) > 1, fm, out)
		})
	}
	return g.Wait()
}

// follow prints a job's progress until it is done, then its result.
// A failed job is an error.
func follow(ctx context.Context, mgr *jobs.Manager[orchestrate.Result], id string, tagged bool, fm format.Mode, out *lockedWriter) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	seen := 0
	for {
		st, ok := mgr.Get(id)
		if !ok {
			return fmt.Errorf("job %s: %w", id, jobs.ErrUnknownJob)
		}
		if n := len(st.Progress); n > seen {
			out.write(tag(id, tagged, format.Progress(st.Progress[seen:])))
			seen = n
		}
		if st.Done {
			if st.Result == nil {
				return fmt.Errorf("job %s failed", id)
			}
			out.write(fmt.Sprintf("\nJob %s (%s)\n%s", id, st.Result.DeployPayload.Mode, format.Result(fm, st.Result)))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tag prefixes each line with the job ID when several jobs share stdout.
func tag(id string, tagged bool, s string) string {
	if !tagged {
		return s
	}
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString("[" + id + "] " + l)
	}
	return b.String()
}

// lockedWriter serializes whole writes from concurrent followers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, s)
}

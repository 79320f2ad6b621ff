package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"autopilot/internal/format"
	"autopilot/internal/store"
)

var showFlags struct {
	list   bool
	result bool
	format string
	dbPath string
}

var showCmd = &cobra.Command{
	Use:   "show [job-id]",
	Short: "Show a saved deployment payload",
	Long: `Print the deployment payload saved for a job, or the latest one when no
job ID is given. --list prints every saved export instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	f := showCmd.Flags()
	f.BoolVar(&showFlags.list, "list", false, "List saved exports")
	f.BoolVar(&showFlags.result, "result", false, "Print the full job result instead of the payload")
	f.StringVar(&showFlags.format, "format", "table", "Listing format: table or markdown")
	f.StringVar(&showFlags.dbPath, "db", "", "Export DB path (default: exports.db from config)")
}

func runShow(cmd *cobra.Command, args []string) error {
	dbPath := appConfig.Exports.DB
	if showFlags.dbPath != "" {
		dbPath = showFlags.dbPath
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if showFlags.list {
		fm, err := format.ParseMode(showFlags.format)
		if err != nil {
			return err
		}
		list, err := st.ListExports(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "No exports yet. Run 'autopilot run' to generate one.")
			return nil
		}
		fmt.Fprint(out, format.Exports(fm, list, time.Now()))
		return nil
	}

	key := store.LatestKey
	if len(args) == 1 {
		key = args[0]
	}
	e, err := st.GetExport(ctx, key)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("no export for %q", key)
	}
	data := e.Payload
	if showFlags.result {
		data = e.Result
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("decode export %s: %w", key, err)
	}
	fmt.Fprintf(out, "Job:     %s\n", e.JobID)
	fmt.Fprintf(out, "Saved:   %s\n\n", e.CreatedAt.Format(time.RFC3339))
	fmt.Fprintln(out, buf.String())
	return nil
}

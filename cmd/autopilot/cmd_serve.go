package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"autopilot/internal/logging"
	mcpserver "autopilot/internal/mcp"
	"autopilot/internal/orchestrate"
	"autopilot/internal/store"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var serveFlags struct {
	adapter string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing start_job, get_job,
list_wedges and get_export. Jobs run in the background; clients poll
get_job for progress.

The server exits when its parent process goes away or on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.adapter, "adapter", adapterOpenAI, "Default completion adapter: openai or stub")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := logging.New("mcp")
	cfg := appConfig

	p, err := newPipeline(cfg, serveFlags.adapter)
	if err != nil {
		// Jobs can still run with adapter=stub and keep the sinks below.
		logger.Warn("no default completion adapter", "error", err)
		p = orchestrate.NewPipeline(nil, orchestrate.Models{Fast: cfg.LLM.ModelFast, Quality: cfg.LLM.ModelQuality})
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
	srv := mcpserver.NewServer(p, st)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	mcpserver.WatchParent(ctx, mcpserver.DefaultParentPoll, cancel)

	logger.Info("starting autopilot MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

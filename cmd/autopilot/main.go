// autopilot generates quality-gated lifecycle flows for drop-off cohorts.
//
// Usage:
//
//	autopilot run --stats cohort.yaml --mode assisted [--adapter stub]
//	autopilot serve
//	autopilot show [job-id] [--list]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"autopilot/internal/config"
	"autopilot/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// appConfig is loaded once per invocation before any subcommand runs.
var appConfig config.Config

var rootCmd = &cobra.Command{
	Use:   "autopilot",
	Short: "Quality-gated lifecycle flows for drop-off cohorts",
	Long: `Autopilot turns a drop-off cohort into a lifecycle flow: cohort insight,
flow design, channel copy, a QA gate with bounded regeneration, an
explanation and a deployment payload for the chosen autonomy mode.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "Log format override (text, json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.Version = version
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return err
	}
	if rootFlags.logLevel != "" {
		cfg.Log.Level = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		cfg.Log.Format = rootFlags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := logging.ParseLevel(cfg.Log.Level)
	logging.Init(level, cfg.Log.Format, cmd.ErrOrStderr())
	appConfig = cfg
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

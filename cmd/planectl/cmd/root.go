package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "planectl",
	Short: "Planectl drives a roster of model workloads against an execution host",
	Long: `planectl is the command-line interface for modelplane, a sequential
budgeted executor for local model workloads.

Modelplane iterates a fixed roster of workloads against a model-serving host.
For each workload it takes a capacity snapshot, checks the declared footprint
against a safety threshold, and only then drives the load / warm-up / execute /
unload lifecycle. Every attempt - admitted or rejected - is appended to a
per-session SQLite history.

Common workflows:

  Run the executor for one hour:
    planectl run --duration 1h

  Inspect the history of a session:
    planectl history --session <id>
    planectl history --session <id> --workload alpha

  Check the current capacity reading:
    planectl snapshot

  Release workloads left resident by a crash:
    planectl force-unload --session <id>

Configuration:
  The roster and executor settings live in a YAML file (default:
  modelplane.yaml in the current directory). Settings can be overridden via
  MODELPLANE_* environment variables:
    MODELPLANE_HOST_URL     Execution host URL (default: http://localhost:11434)
    MODELPLANE_STATE_DIR    Directory for session databases`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./modelplane.yaml)")

	rootCmd.PersistentFlags().String("host", "", "Execution host URL (overrides config)")
	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))

	rootCmd.PersistentFlags().String("session", "", "Session ID namespacing the persisted state")
	viper.BindPFlag("session", rootCmd.PersistentFlags().Lookup("session"))
}

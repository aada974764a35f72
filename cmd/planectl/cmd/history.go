package cmd

import (
	"context"
	"fmt"

	"modelplane/internal/config"
	"modelplane/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the run history of a session",
	Long: `History prints the per-run records of a session: cycle, workload,
admission outcome, duration, tokens, and throughput. Filter to one workload
with --workload or one cycle with --cycle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()
		st, err := openSessionStore(ctx, cfg.StateDir, viper.GetString("session"))
		if err != nil {
			return err
		}
		defer st.Close()

		workload, _ := cmd.Flags().GetString("workload")
		cycle, _ := cmd.Flags().GetInt("cycle")

		var records []store.RunRecord
		switch {
		case workload != "":
			records, err = st.RunsForWorkload(ctx, workload)
		case cmd.Flags().Changed("cycle"):
			records, err = st.RunsForCycle(ctx, cycle)
		default:
			records, err = st.AllRuns(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}

		if len(records) == 0 {
			cmd.Println("No runs recorded.")
			return nil
		}

		printRuns(cmd, records)
		return nil
	},
}

func printRuns(cmd *cobra.Command, records []store.RunRecord) {
	cmd.Printf("%-6s %-16s %-8s %-22s %9s %8s %10s\n",
		"CYCLE", "WORKLOAD", "OK", "REASON", "DURATION", "TOKENS", "TOK/S")

	for _, rec := range records {
		ok := "no"
		if rec.Success {
			ok = "yes"
		}
		cmd.Printf("%-6d %-16s %-8s %-22s %9.1fs %8d %10.1f\n",
			rec.Cycle, rec.Workload, ok, string(rec.Reason),
			rec.Duration.Seconds(), rec.Tokens, rec.Throughput)
	}
}

func init() {
	historyCmd.Flags().String("workload", "", "Only show runs for this workload")
	historyCmd.Flags().Int("cycle", 0, "Only show runs from this cycle")
	rootCmd.AddCommand(historyCmd)
}

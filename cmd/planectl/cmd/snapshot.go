package cmd

import (
	"context"
	"fmt"

	"modelplane/internal/config"
	"modelplane/internal/host"
	"modelplane/internal/resource"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print one capacity reading",
	Long: `Snapshot takes a single capacity reading using the configured probe
(system memory, or the host's loaded footprints when capacity_override is
set) and prints it. Useful to sanity-check admission behavior before a run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if hostURL := viper.GetString("host"); hostURL != "" {
			cfg.HostURL = hostURL
		}

		probe := resource.Probe(resource.MemoryProbe)
		if cfg.CapacityOverride > 0 {
			hostClient := host.NewHTTPHost(host.Options{BaseURL: cfg.HostURL})
			probe = resource.HostProbe(cfg.CapacityOverride, hostClient.LoadedFootprint)
		}

		snap := resource.NewReader(probe).Read(context.Background())

		if snap.Unknown {
			cmd.Println("Capacity unknown: the probe could not be read.")
			cmd.Println("The executor would reject every workload in this state.")
			return nil
		}

		cmd.Printf("Total:    %d MB\n", snap.Total)
		cmd.Printf("Used:     %d MB\n", snap.Used)
		cmd.Printf("Free:     %d MB\n", snap.Free)
		cmd.Printf("Usage:    %.1f%%\n", snap.Percent*100)
		cmd.Printf("Headroom: %.1f%% until the %.0f%% safety threshold\n",
			(cfg.SafetyThreshold-snap.Percent)*100, cfg.SafetyThreshold*100)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

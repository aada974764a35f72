package cmd

import (
	"context"
	"fmt"
	"time"

	"modelplane/internal/config"
	"modelplane/internal/host"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var forceUnloadCmd = &cobra.Command{
	Use:   "force-unload",
	Short: "Release workloads left resident by a crashed run",
	Long: `Force-unload replays the session's unreleased load intents against the
execution host. A crash between load and unload leaves the workload resident
on the host with no record of release; this command closes that window
manually.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if hostURL := viper.GetString("host"); hostURL != "" {
			cfg.HostURL = hostURL
		}

		ctx := context.Background()
		st, err := openSessionStore(ctx, cfg.StateDir, viper.GetString("session"))
		if err != nil {
			return err
		}
		defer st.Close()

		intents, err := st.OpenIntents(ctx)
		if err != nil {
			return fmt.Errorf("failed to read open intents: %w", err)
		}

		if len(intents) == 0 {
			cmd.Println("No unreleased load intents. Nothing to do.")
			return nil
		}

		hostClient := host.NewHTTPHost(host.Options{BaseURL: cfg.HostURL})

		failed := 0
		for _, intent := range intents {
			cmd.Printf("Unloading %s (loaded %s)... ", intent.Workload, intent.IssuedAt.Format(time.RFC3339))

			if err := hostClient.Unload(ctx, intent.Workload); err != nil {
				failed++
				cmd.Printf("failed: %v\n", err)
				continue
			}

			if err := st.MarkReleased(ctx, intent.ID, time.Now().UTC()); err != nil {
				cmd.Printf("unloaded, but failed to mark released: %v\n", err)
				continue
			}

			cmd.Println("done")
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d unloads failed", failed, len(intents))
		}

		cmd.Printf("Released %d workload(s)\n", len(intents))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forceUnloadCmd)
}

package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modelplane/internal/carrier"
	"modelplane/internal/config"
	"modelplane/internal/host"
	"modelplane/internal/lifecycle"
	"modelplane/internal/logger"
	"modelplane/internal/observability"
	"modelplane/internal/resource"
	"modelplane/internal/scheduler"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the executor until the duration budget elapses",
	Long: `Run iterates the configured roster in cycles until the wall-clock
duration budget expires. Each workload is admission-checked against a fresh
capacity snapshot before its lifecycle starts; every attempt is recorded in
the session's history database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if hostURL := viper.GetString("host"); hostURL != "" {
			cfg.HostURL = hostURL
		}
		if duration, _ := cmd.Flags().GetDuration("duration"); cmd.Flags().Changed("duration") {
			cfg.DurationBudget = duration
		}

		sessionID := viper.GetString("session")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ctx = logger.WithSessionID(ctx, sessionID)
		slogger := logger.FromContext(ctx, logger.New())

		// Tracing
		if cfg.OTELEndpoint != "" {
			shutdownTracer, err := observability.InitTracer(ctx, "modelplane-executor", cfg.OTELEndpoint)
			if err != nil {
				return fmt.Errorf("failed to init tracing: %w", err)
			}
			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					log.Printf("Failed to shutdown tracer: %v", err)
				}
			}()
		}

		// Metrics
		metricsHandler, shutdownMetrics, err := observability.InitMetrics()
		if err != nil {
			return fmt.Errorf("failed to init metrics: %w", err)
		}
		defer func() {
			if err := shutdownMetrics(context.Background()); err != nil {
				log.Printf("Failed to shutdown metrics: %v", err)
			}
		}()

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metricsHandler)
			addr := fmt.Sprintf(":%d", cfg.MetricsPort)
			log.Printf("Metrics listening on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()

		st, err := openSessionStore(ctx, cfg.StateDir, sessionID)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer st.Close()

		hostClient := host.NewHTTPHost(host.Options{
			BaseURL:   cfg.HostURL,
			RateLimit: cfg.HostRateLimit,
		})

		// Budget against the host's own footprint report when a capacity
		// override is configured, else against system memory.
		probe := resource.Probe(resource.MemoryProbe)
		if cfg.CapacityOverride > 0 {
			probe = resource.HostProbe(cfg.CapacityOverride, hostClient.LoadedFootprint)
		}

		execMetrics, err := observability.NewExecutorMetrics()
		if err != nil {
			log.Printf("Failed to register executor metrics: %v", err)
		}

		sched := scheduler.New(cfg.Roster, scheduler.Deps{
			Reader:    resource.NewReader(probe),
			Runner:    lifecycle.New(hostClient, st, slogger),
			Runs:      st,
			Snapshots: st,
			Carrier:   carrier.New(carrier.DefaultMaxChars),
			Metrics:   execMetrics,
			Logger:    slogger,
		}, scheduler.Config{
			SafetyThreshold: cfg.SafetyThreshold,
			Backoff:         cfg.Backoff,
			MaxBackoff:      cfg.MaxBackoff,
			Adaptive:        cfg.Adaptive,
		})

		log.Printf("Session %s: %d workloads, budget %v", sessionID, len(cfg.Roster), cfg.DurationBudget)

		errCh := make(chan error, 1)
		go func() {
			errCh <- sched.Run(ctx, cfg.DurationBudget)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-quit:
			log.Println("Shutting down executor...")
			cancel()
			<-sched.Done()
		case err := <-errCh:
			if err != nil && err != context.Canceled {
				return err
			}
		}

		log.Printf("Session %s finished", sessionID)
		return nil
	},
}

func init() {
	runCmd.Flags().Duration("duration", 30*time.Minute, "Wall-clock budget for this run")
	rootCmd.AddCommand(runCmd)
}

// Package main is the CLI entry point for chronos.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/chronos/internal/api"
	"github.com/eliteGoblin/focusd/chronos/internal/app"
	"github.com/eliteGoblin/focusd/chronos/internal/config"
	"github.com/eliteGoblin/focusd/chronos/internal/daemon"
	"github.com/eliteGoblin/focusd/chronos/internal/domain"
	"github.com/eliteGoblin/focusd/chronos/internal/infra"
	"github.com/eliteGoblin/focusd/chronos/internal/ui"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli holds flags shared by every command.
type cli struct {
	configPath string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "chronos",
		Short: "Desktop activity tracker",
		Long: `chronos samples the foreground window in the background, records
how long you spend in each application, and reports productive time
against a daily goal.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Config file (default ~/.config/chronos/config.yaml)")

	root.AddCommand(
		c.runCmd(),
		c.startCmd(),
		c.stopCmd(),
		c.statusCmd(),
		c.statsCmd(),
		c.activitiesCmd(),
		c.categoryCmd(),
		c.appCmd(),
		c.goalCmd(),
		c.dashboardCmd(),
		c.backupCmd(),
		c.autostartCmd(),
		c.versionCmd(),
	)
	return root
}

// loadConfig falls back to defaults with a warning when the file is unusable.
func (c *cli) loadConfig(cmd *cobra.Command) *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath == "" {
		cfg, err = config.LoadOrCreate()
	} else {
		cfg, err = config.LoadOrCreateAt(config.ExpandHome(c.configPath))
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; using defaults\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// withBackend runs fn against the running daemon's API or the local files.
func (c *cli) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b api.Backend) error) error {
	cfg := c.loadConfig(cmd)
	logger := app.NewCLILogger()
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	backend, closeFn, err := app.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(ctx, backend)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the tracker in the foreground",
		Long: `Samples the foreground window, serves the local API and refreshes
today's summary until interrupted. "chronos start" runs this detached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.loadConfig(cmd)

			logger, err := app.NewDaemonLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := app.Open(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.RunDaemon(ctx, Version)
		},
	}
}

func (c *cli) startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the tracker in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.loadConfig(cmd)
			out := cmd.OutOrStdout()

			info, err := app.RunningDaemon(cfg)
			if err != nil {
				return err
			}
			if info != nil {
				fmt.Fprintf(out, "chronos is already running (pid %d)\n", info.PID)
				return nil
			}

			pid, err := daemon.StartDaemon(c.configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "chronos started (pid %d)\n", pid)
			return nil
		},
	}
}

func (c *cli) stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.loadConfig(cmd)
			pi := infra.NewProcessInspector()
			registry := infra.NewFileRegistry(cfg.DataDir(), pi)

			pid, err := daemon.StopDaemon(registry, pi)
			if errors.Is(err, domain.ErrNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "chronos is not running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chronos stopped (pid %d)\n", pid)
			return nil
		},
	}
}

type statusReport struct {
	Running       bool                 `json:"running"`
	PID           int                  `json:"pid,omitempty"`
	StartedAt     *time.Time           `json:"started_at,omitempty"`
	HeartbeatAge  string               `json:"heartbeat_age,omitempty"`
	APIAddr       string               `json:"api_addr,omitempty"`
	Version       string               `json:"version,omitempty"`
	Today         *domain.TodaySummary `json:"today,omitempty"`
	DataDirectory string               `json:"data_dir"`
}

func (c *cli) statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the tracker is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.loadConfig(cmd)
			report := statusReport{DataDirectory: cfg.DataDir()}

			info, err := app.RunningDaemon(cfg)
			if err != nil {
				return err
			}
			if info != nil {
				report.Running = true
				report.PID = info.PID
				report.StartedAt = &info.StartedAt
				report.HeartbeatAge = time.Since(time.Unix(info.LastHeartbeat, 0)).Truncate(time.Second).String()
				report.APIAddr = info.APIAddr
				report.Version = info.Version

				if info.APIAddr != "" {
					if summary, err := api.NewClient(info.APIAddr).TodaySummary(cmd.Context()); err == nil {
						report.Today = &summary
					}
				}
			}

			out := cmd.OutOrStdout()
			if c.jsonOutput {
				return writeJSON(out, report)
			}
			printStatus(out, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&c.jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printStatus(out io.Writer, r statusReport) {
	if !r.Running {
		fmt.Fprintln(out, "chronos is not running")
		fmt.Fprintf(out, "data:      %s\n", r.DataDirectory)
		return
	}
	fmt.Fprintf(out, "chronos is running (pid %d, version %s)\n", r.PID, r.Version)
	fmt.Fprintf(out, "started:   %s\n", r.StartedAt.Format(time.RFC1123))
	fmt.Fprintf(out, "heartbeat: %s ago\n", r.HeartbeatAge)
	if r.APIAddr != "" {
		fmt.Fprintf(out, "api:       http://%s\n", r.APIAddr)
	}
	fmt.Fprintf(out, "data:      %s\n", r.DataDirectory)
	if r.Today != nil {
		fmt.Fprintln(out, ui.RenderSummary(*r.Today))
	}
}

func (c *cli) versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if c.jsonOutput {
				return writeJSON(out, map[string]string{
					"version":    Version,
					"commit":     Commit,
					"build_time": BuildTime,
				})
			}
			fmt.Fprintf(out, "chronos %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
			return nil
		},
	}
	cmd.Flags().BoolVar(&c.jsonOutput, "json", false, "Output version info as JSON")
	return cmd
}

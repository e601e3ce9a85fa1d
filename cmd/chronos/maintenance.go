package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/chronos/internal/app"
	"github.com/eliteGoblin/focusd/chronos/internal/config"
	"github.com/eliteGoblin/focusd/chronos/internal/domain"
	"github.com/eliteGoblin/focusd/chronos/internal/infra"
)

func (c *cli) backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, verify and restore data backups",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Back up the database and categories now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.loadConfig(cmd)
			logger := app.NewCLILogger()
			defer func() { _ = logger.Sync() }()

			a, err := app.Open(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.Backup(cmd.Context(), Version)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), m)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %s created in %s\n", m.ID, cfg.BackupDir())
			return nil
		},
	}
	create.Flags().BoolVar(&c.jsonOutput, "json", false, "Output as JSON")

	list := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := c.backupManager(cmd)
			backups, err := manager.List()
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), backups)
			}
			if len(backups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no backups")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tFILES\tSIZE\tENCRYPTED")
			for _, b := range backups {
				var size int64
				for _, f := range b.Files {
					size += f.Size
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%t\n",
					b.ID, b.CreatedAt.Local().Format(time.DateTime), len(b.Files), humanBytes(size), b.Encrypted)
			}
			return w.Flush()
		},
	}
	list.Flags().BoolVar(&c.jsonOutput, "json", false, "Output as JSON")

	verify := &cobra.Command{
		Use:   "verify ID",
		Short: "Check a backup against its checksums",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.backupManager(cmd).Verify(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %s is intact\n", args[0])
			return nil
		},
	}

	restore := &cobra.Command{
		Use:   "restore ID",
		Short: "Replace the database and categories with a backup",
		Long: `Restores a verified backup over the current database and category
file. The tracker must be stopped first. An encrypted backup needs the
database key it was created with.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.loadConfig(cmd)
			logger := app.NewCLILogger()
			defer func() { _ = logger.Sync() }()

			if err := app.RestoreBackup(cfg, args[0], logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored backup %s\n", args[0])
			return nil
		},
	}

	var keep int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := c.backupManager(cmd).Prune(keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d backup(s)\n", len(removed))
			return nil
		},
	}
	prune.Flags().IntVar(&keep, "keep", 7, "Number of backups to keep")

	cmd.AddCommand(create, list, verify, restore, prune)
	return cmd
}

func (c *cli) backupManager(cmd *cobra.Command) *infra.BackupManager {
	cfg := c.loadConfig(cmd)
	return infra.NewBackupManager(cfg.BackupDir(), domain.SystemClock{}, app.NewCLILogger())
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func (c *cli) autostartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Start the tracker with your desktop session",
	}

	loginItem := func(cmd *cobra.Command) (*infra.LoginItem, error) {
		cfg := c.loadConfig(cmd)
		return infra.NewLoginItem(cfg.DataDir())
	}

	// configArg pins the config file the login item passes to "run".
	configArg := func() string {
		if c.configPath == "" {
			return ""
		}
		if abs, err := filepath.Abs(config.ExpandHome(c.configPath)); err == nil {
			return abs
		}
		return c.configPath
	}

	enable := &cobra.Command{
		Use:   "enable",
		Short: "Install the login item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := loginItem(cmd)
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("failed to get executable path: %w", err)
			}
			if err := item.Install(exe, configArg()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "autostart enabled (%s)\n", item.Path())
			return nil
		},
	}

	disable := &cobra.Command{
		Use:   "disable",
		Short: "Remove the login item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := loginItem(cmd)
			if err != nil {
				return err
			}
			if err := item.Uninstall(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "autostart disabled")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether the login item is installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := loginItem(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !item.IsInstalled() {
				fmt.Fprintln(out, "autostart is disabled")
				return nil
			}
			fmt.Fprintf(out, "autostart is enabled (%s)\n", item.Path())
			if exe, err := os.Executable(); err == nil && item.NeedsUpdate(exe, configArg()) {
				fmt.Fprintln(out, "the login item points elsewhere; run \"chronos autostart enable\" to update it")
			}
			return nil
		},
	}

	cmd.AddCommand(enable, disable, status)
	return cmd
}

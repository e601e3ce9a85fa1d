package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/chronos/internal/api"
	"github.com/eliteGoblin/focusd/chronos/internal/domain"
	"github.com/eliteGoblin/focusd/chronos/internal/ui"
)

const dashboardRefresh = 30 * time.Second

// parseDay reads YYYY-MM-DD in local time; empty means today.
func parseDay(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	t, err := time.ParseInLocation(api.DateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", domain.ErrInvalidInput, raw)
	}
	return t, nil
}

// parseInstant reads RFC3339 or "YYYY-MM-DD HH:MM" in local time.
func parseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Local(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", raw, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: expected RFC3339 or \"YYYY-MM-DD HH:MM\", got %q", domain.ErrInvalidInput, raw)
}

func (c *cli) statsCmd() *cobra.Command {
	var rangeName, date string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show productivity statistics",
		Long: `Shows tracked, idle and productive time with the top applications
for a day, the week (Monday to Sunday) or the calendar month containing --date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(date)
			if err != nil {
				return err
			}

			return c.withBackend(cmd, func(ctx context.Context, b api.Backend) error {
				var (
					stats *domain.Stats
					title string
				)
				switch rangeName {
				case "day":
					title = "Daily report"
					stats, err = b.DailyStats(ctx, day)
				case "week":
					title = "Weekly report"
					stats, err = b.WeeklyStats(ctx, day)
				case "month":
					title = "Monthly report"
					stats, err = b.MonthlyStats(ctx, day)
				default:
					return fmt.Errorf("%w: --range must be day, week or month", domain.ErrInvalidInput)
				}
				if err != nil {
					return err
				}

				if c.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), stats)
				}
				fmt.Fprint(cmd.OutOrStdout(), ui.RenderStats(title, stats))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rangeName, "range", "day", "Report range: day, week or month")
	cmd.Flags().StringVar(&date, "date", "", "Any date in the range, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&c.jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func (c *cli) activitiesCmd() *cobra.Command {
	var day, start, end string

	cmd := &cobra.Command{
		Use:   "activities",
		Short: "List recorded activity intervals",
		Long: `Lists intervals for one day (--day, default today) or for a time
range (--start and --end), newest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (start == "") != (end == "") {
				return fmt.Errorf("%w: --start and --end go together", domain.ErrInvalidInput)
			}

			return c.withBackend(cmd, func(ctx context.Context, b api.Backend) error {
				var (
					acts []domain.Activity
					err  error
				)
				if start != "" {
					from, perr := parseInstant(start)
					if perr != nil {
						return perr
					}
					to, perr := parseInstant(end)
					if perr != nil {
						return perr
					}
					acts, err = b.Activities(ctx, from, to)
				} else {
					date, perr := parseDay(day)
					if perr != nil {
						return perr
					}
					acts, err = b.ActivitiesForDay(ctx, date)
				}
				if err != nil {
					return err
				}

				if c.jsonOutput {
					if acts == nil {
						acts = []domain.Activity{}
					}
					return writeJSON(cmd.OutOrStdout(), acts)
				}
				fmt.Fprint(cmd.OutOrStdout(), ui.RenderActivities(acts))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "Day to list, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&start, "start", "", "Range start (RFC3339 or \"YYYY-MM-DD HH:MM\")")
	cmd.Flags().StringVar(&end, "end", "", "Range end (RFC3339 or \"YYYY-MM-DD HH:MM\")")
	cmd.Flags().BoolVar(&c.jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the live terminal dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b api.Backend) error {
				p := tea.NewProgram(ui.NewDashboard(b, dashboardRefresh), tea.WithAltScreen())
				_, err := p.Run()
				return err
			})
		},
	}
}

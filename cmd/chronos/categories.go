package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/chronos/internal/api"
	"github.com/eliteGoblin/focusd/chronos/internal/domain"
	"github.com/eliteGoblin/focusd/chronos/internal/ui"
)

// resolveCategory accepts a category id or a case-insensitive name.
func resolveCategory(ctx context.Context, b api.Backend, ref string) (domain.Category, error) {
	cats, err := b.Categories(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	for _, c := range cats {
		if c.ID == ref {
			return c, nil
		}
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return domain.Category{}, fmt.Errorf("%w: %q", domain.ErrCategoryNotFound, ref)
}

func (c *cli) categoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories and their applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b api.Backend) error {
				cats, err := b.Categories(ctx)
				if err != nil {
					return err
				}
				mappings, err := b.AppCategories(ctx)
				if err != nil {
					return err
				}
				if c.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), cats)
				}
				fmt.Fprint(cmd.OutOrStdout(), ui.RenderCategories(cats, mappings))
				return nil
			})
		},
	}
	list.Flags().BoolVar(&c.jsonOutput, "json", false, "Output as JSON")

	var color string
	var productive bool
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b api.Backend) error {
				cat, err := b.AddCategory(ctx, args[0], color, productive)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", cat.Name, cat.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&color, "color", "", "Display color, e.g. #10B981")
	add.Flags().BoolVar(&productive, "productive", false, "Count time in this category as productive")

	var newName, newColor string
	var newProductive bool
	update := &cobra.Command{
		Use:   "update ID|NAME",
		Short: "Rename, recolor or reclassify a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b api.Backend) error {
				cat, err := resolveCategory(ctx, b, args[0])
				if err != nil {
					return err
				}
				flags := cmd.Flags()
				if flags.Changed("name") {
					cat.Name = newName
				}
				if flags.Changed("color") {
					cat.Color = newColor
				}
				if flags.Changed("productive") {
					cat.IsProductive = newProductive
				}
				if err := b.UpdateCategory(ctx, cat); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s)\n", cat.Name, cat.ID)
				return nil
			})
		},
	}
	update.Flags().StringVar(&newName, "name", "", "New name")
	update.Flags().StringVar(&newColor, "color", "", "New display color")
	update.Flags().BoolVar(&newProductive, "productive", false, "Whether time counts as productive")

	del := &cobra.Command{
		Use:   "delete ID|NAME",
		Short: "Delete a category and unmap its applications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b api.Backend) error {
				cat, err := resolveCategory(ctx, b, args[0])
				if err != nil {
					return err
				}
				if err := b.DeleteCategory(ctx, cat.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", cat.Name)
				return nil
			})
		},
	}

	cmd.AddCommand(list, add, update, del)
	return cmd
}

func (c *cli) appCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Map applications to categories",
	}

	set := &cobra.Command{
		Use:   "set APP CATEGORY",
		Short: "Assign an application to a category (id or name)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b api.Backend) error {
				cat, err := resolveCategory(ctx, b, args[1])
				if err != nil {
					return err
				}
				if err := b.SetAppCategory(ctx, args[0], cat.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], cat.Name)
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List application mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b api.Backend) error {
				mappings, err := b.AppCategories(ctx)
				if err != nil {
					return err
				}
				cats, err := b.Categories(ctx)
				if err != nil {
					return err
				}
				names := make(map[string]string, len(cats))
				for _, cat := range cats {
					names[cat.ID] = cat.Name
				}
				if c.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), mappings)
				}
				for _, m := range mappings {
					fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", m.AppName, names[m.CategoryID])
				}
				return nil
			})
		},
	}
	list.Flags().BoolVar(&c.jsonOutput, "json", false, "Output as JSON")

	uncategorized := &cobra.Command{
		Use:   "uncategorized",
		Short: "List recorded applications without a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b api.Backend) error {
				apps, err := b.UncategorizedApps(ctx)
				if err != nil {
					return err
				}
				if c.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), apps)
				}
				for _, app := range apps {
					fmt.Fprintln(cmd.OutOrStdout(), app)
				}
				return nil
			})
		},
	}
	uncategorized.Flags().BoolVar(&c.jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(set, list, uncategorized)
	return cmd
}

func (c *cli) goalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "goal [MINUTES]",
		Short: "Show or set the daily productive-time goal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b api.Backend) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					minutes, err := b.DailyGoal(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "daily goal: %d minutes\n", minutes)
					return nil
				}

				minutes, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("%w: goal must be a whole number of minutes, got %q", domain.ErrInvalidInput, args[0])
				}
				if err := b.SetDailyGoal(ctx, minutes); err != nil {
					return err
				}
				fmt.Fprintf(out, "daily goal set to %d minutes\n", minutes)
				return nil
			})
		},
	}
}
